package swap_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	"github.com/taoyao-code/swap-server/internal/swap"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestSweeper_RunOnce(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()
	sweeper := swap.NewSweeper(h.repo, h.resolver, h.clk, h.metrics, zap.NewNop(), 30*time.Minute, time.Hour, 10)

	t.Run("宽限期内不处理", func(t *testing.T) {
		h.clk.Advance(30 * time.Minute)
		assert.Equal(t, 0, sweeper.RunOnce(ctx))
		sw, err := h.repo.GetSwap(ctx, swapID)
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.SwapWaitingUserRetry), sw.Status)
	})

	t.Run("超过宽限期永久撤销", func(t *testing.T) {
		h.clk.Advance(31 * time.Minute)
		assert.Equal(t, 1, sweeper.RunOnce(ctx))

		sw, err := h.repo.GetSwap(ctx, swapID)
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.SwapCancelled), sw.Status)

		bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["open"])
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.BookingCancelled), bk.Status)
		require.NotNil(t, bk.CancelReason)
		assert.Equal(t, swap.SweepReason, *bk.CancelReason)
		h.requireConsistent(t)
	})

	t.Run("已处理的记录不再出现", func(t *testing.T) {
		assert.Equal(t, 0, sweeper.RunOnce(ctx))
	})

	stats := sweeper.Stats()
	assert.Equal(t, int64(3), stats["runs"])
	assert.Equal(t, int64(1), stats["cancelled"])
}

func TestSweeper_SkipsManuallyResolved(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()
	sweeper := swap.NewSweeper(h.repo, h.resolver, h.clk, h.metrics, zap.NewNop(), time.Minute, time.Hour, 10)

	_, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelSoft, "retry tomorrow")
	require.NoError(t, err)

	h.clk.Advance(2 * time.Hour)
	assert.Equal(t, 0, sweeper.RunOnce(ctx))

	sw, err := h.repo.GetSwap(ctx, swapID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelledTemp), sw.Status)
}

// softCancelAfterList 扫描返回后、永久撤销前插入一次人工临时撤销
type softCancelAfterList struct {
	storage.SwapRepo
	resolver *swap.Resolver
}

func (r softCancelAfterList) ListStaleSwaps(ctx context.Context, status coremodel.SwapStatus, before time.Time, limit int) ([]models.Swap, error) {
	swaps, err := r.SwapRepo.ListStaleSwaps(ctx, status, before, limit)
	if err != nil {
		return nil, err
	}
	for _, sw := range swaps {
		if _, err := r.resolver.CancelSwap(ctx, sw.ID, coremodel.CancelSoft, "customer called"); err != nil {
			return nil, err
		}
	}
	return swaps, nil
}

func TestSweeper_SoftCancelAfterScan(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()
	repo := softCancelAfterList{SwapRepo: h.repo, resolver: h.resolver}
	sweeper := swap.NewSweeper(repo, h.resolver, h.clk, h.metrics, zap.NewNop(), time.Minute, time.Hour, 10)

	h.clk.Advance(2 * time.Hour)
	assert.Equal(t, 0, sweeper.RunOnce(ctx))

	sw, err := h.repo.GetSwap(ctx, swapID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelledTemp), sw.Status)

	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["open"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingPendingSwapping), bk.Status)

	in, err := h.repo.GetBattery(ctx, h.fx.Batteries["IN-NMC"])
	require.NoError(t, err)
	assert.NotNil(t, in.SlotID, "换入电池未被回滚")

	stats := sweeper.Stats()
	assert.Equal(t, int64(0), stats["cancelled"])
	assert.Equal(t, int64(1), stats["skipped"])
	h.requireConsistent(t)
}

func TestResolver_ExpireWaitingOnlyWaiting(t *testing.T) {
	h := newHarness(t, scenarioInventory, swap.Options{})
	ctx := context.Background()
	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)
	require.Equal(t, string(coremodel.SwapSuccess), outcomes[0].Status)

	_, err = h.resolver.ExpireWaiting(ctx, outcomes[0].SwapID, swap.SweepReason)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeSwapState, apperr.CodeOf(err))

	sw, err := h.repo.GetSwap(ctx, outcomes[0].SwapID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapSuccess), sw.Status)
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	h, _ := waitingSwap(t)
	sweeper := swap.NewSweeper(h.repo, h.resolver, h.clk, h.metrics, zap.NewNop(), 10*time.Millisecond, time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.GreaterOrEqual(t, sweeper.Stats()["runs"].(int64), int64(1))
}
