package swap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/inventory"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/seed"
	"github.com/taoyao-code/swap-server/internal/storage/gormrepo"
	"github.com/taoyao-code/swap-server/internal/swap"
	"github.com/taoyao-code/swap-server/internal/testutil"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*thirdparty.StandardEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e *thirdparty.StandardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []thirdparty.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]thirdparty.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type harness struct {
	repo     *gormrepo.Repository
	fx       *seed.Fixture
	clk      *clock.FakeClock
	pub      *recordingPublisher
	metrics  *metrics.AppMetrics
	engine   *swap.Engine
	resolver *swap.Resolver
}

func newHarness(t *testing.T, doc string, opts swap.Options) *harness {
	t.Helper()
	repo, _ := testutil.NewRepo(t)
	fx := testutil.Seed(t, repo, doc)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	h := &harness{
		repo:    repo,
		fx:      fx,
		clk:     clock.NewFakeClock(t0),
		pub:     &recordingPublisher{},
		metrics: metrics.NewNopMetrics(),
	}
	h.engine = swap.NewEngine(repo, node, h.clk, h.pub, h.metrics, zap.NewNop(), opts)
	h.resolver = swap.NewResolver(repo, nil, h.clk, h.pub, h.metrics, zap.NewNop())
	return h
}

func (h *harness) commit(t *testing.T, bookingRef string, staffID int64, serials ...string) ([]swap.Outcome, error) {
	t.Helper()
	ids := make([]int64, len(serials))
	for i, s := range serials {
		id, ok := h.fx.Batteries[s]
		require.True(t, ok, "unknown battery %s", s)
		ids[i] = id
	}
	return h.engine.CommitSwap(context.Background(), swap.CommitRequest{
		BookingID:          h.fx.Bookings[bookingRef],
		IncomingBatteryIDs: ids,
		StaffID:            staffID,
	})
}

// requireConsistent 每次提交或撤销后库存不变量必须成立
func (h *harness) requireConsistent(t *testing.T) {
	t.Helper()
	data, err := h.repo.LoadInventory(context.Background(), 0)
	require.NoError(t, err)
	report := inventory.Check(inventory.NewSnapshot(data), h.clk.Now())
	require.True(t, report.OK(), "inventory violations: %+v", report.Violations)
}

const scenarioInventory = `
stations:
  - name: S
    staff: [7]
    docks:
      - name: Dock-A
        slots: 3
    batteries:
      - {serial: OUT, type: LFP, soh: 95, dock: Dock-A, slot: 3}
batteries:
  - {serial: IN, type: LFP, soh: 40}
  - {serial: IN-NMC, type: NMC, soh: 90}
bookings:
  - {ref: bk, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, batteryType: LFP, count: 1, amountCent: 1500}
  - {ref: open, station: S, customer: 2, vehicle: 2, scheduledAt: 2025-06-01T10:00:00Z, count: 1, amountCent: 1500}
`
