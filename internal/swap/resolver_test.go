package swap_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/seed"
	redisstore "github.com/taoyao-code/swap-server/internal/storage/redis"
	"github.com/taoyao-code/swap-server/internal/swap"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

const mismatchInventory = `
stations:
  - name: S
    staff: [7]
    docks:
      - name: A
        slots: 3
    batteries:
      - {serial: LFP-1, type: LFP, soh: 95, dock: A, slot: 2}
batteries:
  - {serial: IN-NMC, type: NMC, soh: 90}
bookings:
  - {ref: open, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, count: 1}
`

// waitingSwap 构造一条 WAITING_USER_RETRY 换电记录
func waitingSwap(t *testing.T) (*harness, int64) {
	t.Helper()
	h := newHarness(t, mismatchInventory, swap.Options{MismatchPolicy: swap.MismatchDefer})
	outcomes, err := h.commit(t, "open", 7, "IN-NMC")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, string(coremodel.SwapWaitingUserRetry), outcomes[0].Status)
	return h, outcomes[0].SwapID
}

func TestCancelSwap_ScenarioC_Permanent(t *testing.T) {
	h := newHarness(t, scenarioInventory, swap.Options{})
	ctx := context.Background()
	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)
	swapID := outcomes[0].SwapID

	res, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "customer returned the vehicle")
	require.NoError(t, err)
	assert.Equal(t, swapID, res.SwapID)
	assert.Equal(t, string(coremodel.SwapCancelled), res.Status)

	out, err := h.repo.GetBattery(ctx, h.fx.Batteries["OUT"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryAvailable), out.Status)
	require.NotNil(t, out.SlotID)
	require.NotNil(t, out.StationID)
	assert.Equal(t, h.fx.Stations["S"], *out.StationID)
	slot, err := h.repo.GetSlot(ctx, *out.SlotID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SlotOccupied), slot.Status)

	in, err := h.repo.GetBattery(ctx, h.fx.Batteries["IN"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryInUse), in.Status)
	assert.Nil(t, in.SlotID)
	assert.Nil(t, in.StationID)

	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["bk"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingCancelled), bk.Status)
	require.NotNil(t, bk.CancelReason)
	assert.Equal(t, "customer returned the vehicle", *bk.CancelReason)

	sw, err := h.repo.GetSwap(ctx, swapID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelled), sw.Status)

	assert.Contains(t, h.pub.types(), thirdparty.EventSwapCancelled)
	assert.Contains(t, h.pub.types(), thirdparty.EventBookingCancelled)
	h.requireConsistent(t)

	t.Run("重复永久撤销被拒绝且不重复回滚", func(t *testing.T) {
		_, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "again")
		assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
		assert.Equal(t, apperr.CodeSwapState, apperr.CodeOf(err))
		h.requireConsistent(t)
	})
}

func TestCancelSwap_SoftIdempotent(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()

	before, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)

	first, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelSoft, "customer will come back")
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelledTemp), first.Status)

	second, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelSoft, "")
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelledTemp), second.Status)

	after, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)
	for i := range before.Batteries {
		assert.Equal(t, before.Batteries[i].Status, after.Batteries[i].Status)
		assert.Equal(t, before.Batteries[i].SlotID, after.Batteries[i].SlotID)
	}

	sw, err := h.repo.GetSwap(ctx, swapID)
	require.NoError(t, err)
	assert.Equal(t, "customer will come back", sw.Description)

	var cancelledEvents int
	for _, et := range h.pub.types() {
		if et == thirdparty.EventSwapCancelled {
			cancelledEvents++
		}
	}
	assert.Equal(t, 1, cancelledEvents, "重复调用不产生新事件")

	t.Run("临时撤销后可永久撤销", func(t *testing.T) {
		res, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "gave up")
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.SwapCancelled), res.Status)
		h.requireConsistent(t)
	})

	t.Run("已永久撤销的记录不能临时撤销", func(t *testing.T) {
		_, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelSoft, "")
		assert.Equal(t, apperr.CodeSwapState, apperr.CodeOf(err))
	})
}

func TestCancelSwap_IncomingBatteryMoved(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()
	incoming := h.fx.Batteries["IN-NMC"]

	// 换入电池被运维取出后另行发放
	require.NoError(t, h.repo.RemoveBattery(ctx, incoming, nil, coremodel.BatteryInUse))
	before, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)

	_, err = h.resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "reverse")
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeBatteryMoved, apperr.CodeOf(err))

	sw, err := h.repo.GetSwap(ctx, swapID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapWaitingUserRetry), sw.Status)
	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["open"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingPendingSwapping), bk.Status)

	after, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before.Batteries, after.Batteries, "回滚失败不改动库存")

	t.Run("放到其他仓位同样拒绝", func(t *testing.T) {
		slot3 := h.fx.Slots[seed.SlotKey("S", "A", 3)]
		require.NoError(t, h.repo.PlaceBattery(ctx, incoming, slot3, coremodel.BatteryAvailable, coremodel.SlotOccupied))
		_, err := h.resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "reverse")
		assert.Equal(t, apperr.CodeBatteryMoved, apperr.CodeOf(err))
	})
}

func TestCancelSwap_Rejections(t *testing.T) {
	h := newHarness(t, scenarioInventory, swap.Options{})
	ctx := context.Background()
	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)

	t.Run("未知模式", func(t *testing.T) {
		_, err := h.resolver.CancelSwap(ctx, outcomes[0].SwapID, coremodel.CancelMode("hard"), "")
		assert.Equal(t, apperr.CodeCancelMode, apperr.CodeOf(err))
	})

	t.Run("成功记录不能临时撤销", func(t *testing.T) {
		_, err := h.resolver.CancelSwap(ctx, outcomes[0].SwapID, coremodel.CancelSoft, "")
		assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
	})

	t.Run("记录不存在", func(t *testing.T) {
		_, err := h.resolver.CancelSwap(ctx, 42, coremodel.CancelPermanent, "")
		assert.Equal(t, apperr.CodeSwapNotFound, apperr.CodeOf(err))
		_, err = h.resolver.GetSwap(ctx, 42)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestCancelSwap_LockHeld(t *testing.T) {
	h, swapID := waitingSwap(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := redisstore.NewLocker(rdb, time.Minute)
	resolver := swap.NewResolver(h.repo, locker, h.clk, h.pub, h.metrics, zap.NewNop())

	release, err := locker.Acquire(ctx, "swap:"+itoa(swapID))
	require.NoError(t, err)

	_, err = resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "")
	assert.Equal(t, apperr.CodeClaimConflict, apperr.CodeOf(err))

	release()
	res, err := resolver.CancelSwap(ctx, swapID, coremodel.CancelPermanent, "")
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SwapCancelled), res.Status)
	assert.False(t, mr.Exists("swap:lock:swap:"+itoa(swapID)), "处理完成后释放锁")
}
