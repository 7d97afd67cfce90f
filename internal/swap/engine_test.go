package swap_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/seed"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/swap"
	"github.com/taoyao-code/swap-server/internal/testutil"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

func TestCommitSwap_ScenarioA_HealthQuarantine(t *testing.T) {
	h := newHarness(t, scenarioInventory, swap.Options{})
	ctx := context.Background()

	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.Equal(t, string(coremodel.SwapSuccess), o.Status)
	assert.NotZero(t, o.SwapID)
	assert.True(t, o.Quarantined)
	assert.Equal(t, h.fx.Batteries["OUT"], o.OutgoingBatteryID)
	assert.Equal(t, "Dock-A-03", o.OutgoingSlotCode)
	assert.Equal(t, "Dock-A-01", o.IncomingSlotCode)

	out, err := h.repo.GetBattery(ctx, h.fx.Batteries["OUT"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryInUse), out.Status)
	assert.Nil(t, out.SlotID)
	assert.Nil(t, out.StationID)

	in, err := h.repo.GetBattery(ctx, h.fx.Batteries["IN"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryMaintenance), in.Status)
	require.NotNil(t, in.SlotID)
	slot, err := h.repo.GetSlot(ctx, *in.SlotID)
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.SlotReserved), slot.Status)

	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["bk"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingCompleted), bk.Status)
	require.NotNil(t, bk.CompletedAt)
	assert.True(t, t0.Equal(*bk.CompletedAt))

	assert.Equal(t, []thirdparty.EventType{thirdparty.EventSwapRecorded, thirdparty.EventBookingCompleted}, h.pub.types())
	h.requireConsistent(t)

	t.Run("已完成预约不可再次提交", func(t *testing.T) {
		_, err := h.commit(t, "bk", 7, "IN-NMC")
		assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
		assert.Equal(t, apperr.CodeBookingState, apperr.CodeOf(err))
	})
}

func TestCommitSwap_ScenarioB_NoMatchingType(t *testing.T) {
	h := newHarness(t, `
stations:
  - name: S
    staff: [7]
    docks:
      - name: A
        slots: 2
    batteries:
      - {serial: NMC-1, type: NMC, soh: 95, dock: A, slot: 1}
batteries:
  - {serial: IN, type: LFP, soh: 90}
bookings:
  - {ref: bk, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, batteryType: LFP, count: 1}
`, swap.Options{})
	ctx := context.Background()

	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, coremodel.OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, apperr.CodeNoMatchingBattery, outcomes[0].Code)
	assert.Zero(t, outcomes[0].SwapID)

	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["bk"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingPendingSwapping), bk.Status)

	nmc, err := h.repo.GetBattery(ctx, h.fx.Batteries["NMC-1"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryAvailable), nmc.Status, "失败项不触碰库存")
	assert.Empty(t, h.pub.types())
	h.requireConsistent(t)
}

func TestCommitSwap_ScenarioD_ConcurrentClaim(t *testing.T) {
	h := newHarness(t, `
stations:
  - name: S
    staff: [7, 8]
    docks:
      - name: A
        slots: 3
    batteries:
      - {serial: LAST, type: LFP, soh: 95, dock: A, slot: 1}
batteries:
  - {serial: IN-1, type: LFP, soh: 90}
  - {serial: IN-2, type: LFP, soh: 90}
bookings:
  - {ref: b1, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, batteryType: LFP, count: 1}
  - {ref: b2, station: S, customer: 2, vehicle: 2, scheduledAt: 2025-06-01T10:00:00Z, batteryType: LFP, count: 1}
`, swap.Options{ClaimRetries: 3})
	ctx := context.Background()

	type result struct {
		outcomes []swap.Outcome
		err      error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i, ref := range []string{"b1", "b2"} {
		wg.Add(1)
		go func(i int, ref, serial string, staff int64) {
			defer wg.Done()
			outcomes, err := h.engine.CommitSwap(ctx, swap.CommitRequest{
				BookingID:          h.fx.Bookings[ref],
				IncomingBatteryIDs: []int64{h.fx.Batteries[serial]},
				StaffID:            staff,
			})
			results[i] = result{outcomes, err}
		}(i, ref, []string{"IN-1", "IN-2"}[i], int64(7+i))
	}
	wg.Wait()

	var succeeded, exhausted int
	for _, r := range results {
		if r.err != nil {
			// 另一方已取走唯一电池时，前置库存检查整体拒绝
			assert.Equal(t, apperr.KindResourceExhausted, apperr.KindOf(r.err))
			exhausted++
			continue
		}
		require.Len(t, r.outcomes, 1)
		switch r.outcomes[0].Status {
		case string(coremodel.SwapSuccess):
			succeeded++
			assert.Equal(t, h.fx.Batteries["LAST"], r.outcomes[0].OutgoingBatteryID)
		default:
			assert.Contains(t, []string{apperr.CodeNoMatchingBattery, apperr.CodeClaimConflict}, r.outcomes[0].Code)
			exhausted++
		}
	}
	assert.Equal(t, 1, succeeded, "唯一电池只能被认领一次")
	assert.Equal(t, 1, exhausted)

	last, err := h.repo.GetBattery(ctx, h.fx.Batteries["LAST"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryInUse), last.Status)

	var swaps int
	for _, ref := range []string{"b1", "b2"} {
		list, err := h.repo.ListSwapsByBooking(ctx, h.fx.Bookings[ref])
		require.NoError(t, err)
		swaps += len(list)
	}
	assert.Equal(t, 1, swaps)
	h.requireConsistent(t)
}

func TestCommitSwap_Preconditions(t *testing.T) {
	h := newHarness(t, testutil.StandardInventory, swap.Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  swap.CommitRequest
		kind apperr.Kind
		code string
	}{
		{"缺少工作人员", swap.CommitRequest{BookingID: h.fx.Bookings["single"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}},
			apperr.KindValidation, apperr.CodeStaffMissing},
		{"工作人员未分配到该站", swap.CommitRequest{BookingID: h.fx.Bookings["single"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}, StaffID: 201},
			apperr.KindStateConflict, apperr.CodeStaffNotAssigned},
		{"数量少于预约", swap.CommitRequest{BookingID: h.fx.Bookings["double"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}, StaffID: 101},
			apperr.KindValidation, apperr.CodeBatteryCount},
		{"数量多于预约", swap.CommitRequest{BookingID: h.fx.Bookings["single"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"], h.fx.Batteries["IN-4"]}, StaffID: 101},
			apperr.KindValidation, apperr.CodeBatteryCount},
		{"重复电池", swap.CommitRequest{BookingID: h.fx.Bookings["double"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"], h.fx.Batteries["IN-1"]}, StaffID: 101},
			apperr.KindValidation, apperr.CodeDuplicateBattery},
		{"空列表", swap.CommitRequest{BookingID: h.fx.Bookings["single"], StaffID: 101},
			apperr.KindValidation, apperr.CodeBatteryCount},
		{"预约不存在", swap.CommitRequest{BookingID: 777777, IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}, StaffID: 101},
			apperr.KindNotFound, apperr.CodeBookingNotFound},
		{"未支付预约", swap.CommitRequest{BookingID: h.fx.Bookings["unpaid"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}, StaffID: 101},
			apperr.KindStateConflict, apperr.CodeBookingState},
		{"站点无可用电池", swap.CommitRequest{BookingID: h.fx.Bookings["north"], IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]}, StaffID: 201},
			apperr.KindResourceExhausted, apperr.CodeNoStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcomes, err := h.engine.CommitSwap(ctx, tc.req)
			require.Error(t, err)
			assert.Nil(t, outcomes)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.code, apperr.CodeOf(err))
		})
	}

	// 所有前置失败都不触碰库存
	for _, serial := range []string{"CH-A1", "CH-A2", "CH-B1"} {
		b, err := h.repo.GetBattery(ctx, h.fx.Batteries[serial])
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.BatteryAvailable), b.Status, serial)
	}
	assert.Empty(t, h.pub.types())
}

func TestCommitSwap_CallerTakesPrecedence(t *testing.T) {
	h := newHarness(t, testutil.StandardInventory, swap.Options{})

	outcomes, err := h.engine.CommitSwap(context.Background(), swap.CommitRequest{
		BookingID:          h.fx.Bookings["single"],
		IncomingBatteryIDs: []int64{h.fx.Batteries["IN-1"]},
		StaffID:            201,
		Caller:             &swap.Caller{StaffID: 101},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, string(coremodel.SwapSuccess), outcomes[0].Status)

	list, err := h.repo.ListSwapsByBooking(context.Background(), h.fx.Bookings["single"])
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(101), list[0].StaffID)
}

func TestCommitSwap_PartialBatch(t *testing.T) {
	h := newHarness(t, testutil.StandardInventory, swap.Options{})
	ctx := context.Background()

	outcomes, err := h.commit(t, "double", 101, "IN-1", "MT-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, string(coremodel.SwapSuccess), outcomes[0].Status)
	assert.Equal(t, "A-01", outcomes[0].OutgoingSlotCode)
	assert.Equal(t, "A-03", outcomes[0].IncomingSlotCode)
	assert.False(t, outcomes[0].Quarantined)

	assert.Equal(t, coremodel.OutcomeFailed, outcomes[1].Status)
	assert.Equal(t, apperr.CodeBatteryUnusable, outcomes[1].Code)
	assert.Equal(t, h.fx.Batteries["MT-1"], outcomes[1].IncomingBatteryID)

	bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["double"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BookingPendingSwapping), bk.Status, "后续失败不撤销已成功的交换")

	in1, err := h.repo.GetBattery(ctx, h.fx.Batteries["IN-1"])
	require.NoError(t, err)
	assert.Equal(t, string(coremodel.BatteryAvailable), in1.Status)
	h.requireConsistent(t)

	t.Run("重试只需补齐剩余数量", func(t *testing.T) {
		_, err := h.commit(t, "double", 101, "IN-4", "IN-2")
		assert.Equal(t, apperr.CodeBatteryCount, apperr.CodeOf(err))

		outcomes, err := h.commit(t, "double", 101, "IN-4")
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, string(coremodel.SwapSuccess), outcomes[0].Status)
		assert.Equal(t, "A-02", outcomes[0].OutgoingSlotCode)
		assert.Equal(t, "A-04", outcomes[0].IncomingSlotCode)

		bk, err := h.repo.GetBooking(ctx, h.fx.Bookings["double"])
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.BookingCompleted), bk.Status)
		h.requireConsistent(t)
	})
}

func TestCommitSwap_PerItemValidation(t *testing.T) {
	cases := []struct {
		name   string
		ref    string
		serial string
		code   string
	}{
		{"维护中电池", "single", "MT-1", apperr.CodeBatteryUnusable},
		{"类型与预约不符", "single", "IN-3", apperr.CodeBatteryTypeMismatch},
		{"换入电池与换出电池相同", "untyped", "CH-B1", apperr.CodeNoMatchingBattery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, testutil.StandardInventory, swap.Options{})
			outcomes, err := h.commit(t, tc.ref, 101, tc.serial)
			require.NoError(t, err)
			require.Len(t, outcomes, 1)
			assert.Equal(t, coremodel.OutcomeFailed, outcomes[0].Status)
			assert.Equal(t, tc.code, outcomes[0].Code)
			h.requireConsistent(t)
		})
	}

	t.Run("电池不存在", func(t *testing.T) {
		h := newHarness(t, testutil.StandardInventory, swap.Options{})
		outcomes, err := h.engine.CommitSwap(context.Background(), swap.CommitRequest{
			BookingID:          h.fx.Bookings["single"],
			IncomingBatteryIDs: []int64{999999},
			StaffID:            101,
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, apperr.CodeBatteryNotFound, outcomes[0].Code)
	})
}

func TestCommitSwap_IncomingAlreadyStationedKeepsSlot(t *testing.T) {
	h := newHarness(t, testutil.StandardInventory, swap.Options{})
	ctx := context.Background()

	// CH-A2 作为换入电池：原位放回，换出同类型的 CH-A1
	outcomes, err := h.commit(t, "single", 101, "CH-A2")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, string(coremodel.SwapSuccess), outcomes[0].Status)
	assert.Equal(t, "A-01", outcomes[0].OutgoingSlotCode)
	assert.Equal(t, "A-02", outcomes[0].IncomingSlotCode)

	b, err := h.repo.GetBattery(ctx, h.fx.Batteries["CH-A2"])
	require.NoError(t, err)
	require.NotNil(t, b.SlotID)
	assert.Equal(t, h.fx.Slots[seed.SlotKey("Central", "A", 2)], *b.SlotID)
	h.requireConsistent(t)
}

func TestCommitSwap_FullStationFails(t *testing.T) {
	h := newHarness(t, `
stations:
  - name: S
    staff: [7]
    docks:
      - name: A
        slots: 1
    batteries:
      - {serial: ONLY, type: LFP, soh: 95, dock: A, slot: 1}
batteries:
  - {serial: IN, type: LFP, soh: 90}
bookings:
  - {ref: bk, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, batteryType: LFP, count: 1}
`, swap.Options{})
	ctx := context.Background()

	before, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)

	outcomes, err := h.commit(t, "bk", 7, "IN")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, apperr.CodeNoEmptySlot, outcomes[0].Code)
	assert.Zero(t, outcomes[0].SwapID)

	after, err := h.repo.LoadInventory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before.Batteries, after.Batteries, "满仓失败不改动库存")
	assert.Equal(t, before.Slots, after.Slots)
	h.requireConsistent(t)
}

func TestCommitSwap_MismatchPolicy(t *testing.T) {
	doc := `
stations:
  - name: S
    staff: [7]
    docks:
      - name: A
        slots: 2
    batteries:
      - {serial: LFP-1, type: LFP, soh: 95, dock: A, slot: 1}
batteries:
  - {serial: IN-NMC, type: NMC, soh: 90}
bookings:
  - {ref: open, station: S, customer: 1, vehicle: 1, scheduledAt: 2025-06-01T10:00:00Z, count: 1}
`
	t.Run("reject 策略直接失败", func(t *testing.T) {
		h := newHarness(t, doc, swap.Options{MismatchPolicy: swap.MismatchReject})
		outcomes, err := h.commit(t, "open", 7, "IN-NMC")
		require.NoError(t, err)
		assert.Equal(t, apperr.CodeNoMatchingBattery, outcomes[0].Code)
	})

	t.Run("defer 策略完成交换并等待处理", func(t *testing.T) {
		h := newHarness(t, doc, swap.Options{MismatchPolicy: swap.MismatchDefer})
		outcomes, err := h.commit(t, "open", 7, "IN-NMC")
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, string(coremodel.SwapWaitingUserRetry), outcomes[0].Status)
		assert.Equal(t, h.fx.Batteries["LFP-1"], outcomes[0].OutgoingBatteryID)

		bk, err := h.repo.GetBooking(context.Background(), h.fx.Bookings["open"])
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.BookingPendingSwapping), bk.Status, "不匹配的交换不计入完成数")
		assert.Equal(t, []thirdparty.EventType{thirdparty.EventSwapRecorded}, h.pub.types())

		in, err := h.repo.GetBattery(context.Background(), h.fx.Batteries["IN-NMC"])
		require.NoError(t, err)
		require.NotNil(t, in.SlotID)
		slot, err := h.repo.GetSlot(context.Background(), *in.SlotID)
		require.NoError(t, err)
		assert.Equal(t, string(coremodel.SlotReserved), slot.Status, "待处理期间暂扣换入电池")
		_, err = h.repo.FindAvailableBattery(context.Background(), h.fx.Stations["S"], "", nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		h.requireConsistent(t)
	})
}
