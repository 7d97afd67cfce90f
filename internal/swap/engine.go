package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/booking"
	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// MismatchPolicy 找不到同类型电池时的处理策略
type MismatchPolicy string

const (
	// MismatchReject 该块电池直接失败
	MismatchReject MismatchPolicy = "reject"
	// MismatchDefer 发放任意类型的可用电池，记录为 WAITING_USER_RETRY 等待后续处理
	MismatchDefer MismatchPolicy = "defer"
)

// Options 引擎参数
type Options struct {
	HealthThreshold int32
	MismatchPolicy  MismatchPolicy
	ClaimRetries    int
}

// Engine 换电事务引擎
type Engine struct {
	repo      storage.SwapRepo
	ids       *snowflake.Node
	clock     clock.Clock
	publisher thirdparty.Publisher
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
	opts      Options
}

// NewEngine 创建换电引擎
func NewEngine(repo storage.SwapRepo, ids *snowflake.Node, clk clock.Clock, pub thirdparty.Publisher, m *metrics.AppMetrics, logger *zap.Logger, opts Options) *Engine {
	if clk == nil {
		clk = clock.System()
	}
	if ids == nil {
		ids, _ = snowflake.NewNode(1)
	}
	if pub == nil {
		pub = thirdparty.NopPublisher{}
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HealthThreshold <= 0 {
		opts.HealthThreshold = 70
	}
	if opts.MismatchPolicy == "" {
		opts.MismatchPolicy = MismatchReject
	}
	if opts.ClaimRetries <= 0 {
		opts.ClaimRetries = 1
	}
	return &Engine{
		repo:      repo,
		ids:       ids,
		clock:     clk,
		publisher: pub,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

// CommitSwap 提交一次换电。
// 前置校验失败时整体拒绝且不触碰库存；通过后逐块电池独立事务处理，
// 单块失败只体现在该块的 Outcome 中，不影响已成功的块。
func (e *Engine) CommitSwap(ctx context.Context, req CommitRequest) ([]Outcome, error) {
	start := time.Now()
	defer func() {
		e.metrics.SwapCommitDuration.Observe(time.Since(start).Seconds())
	}()

	b, staffID, err := e.precheck(ctx, req)
	if err != nil {
		e.metrics.SwapCommitTotal.WithLabelValues("rejected").Inc()
		e.logger.Warn("swap commit rejected",
			zap.Int64("booking_id", req.BookingID),
			zap.String("code", apperr.CodeOf(err)),
			zap.Error(err))
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(req.IncomingBatteryIDs))
	for _, incomingID := range req.IncomingBatteryIDs {
		o := e.processItem(ctx, b, incomingID, staffID)
		outcomes = append(outcomes, o)
		if o.Recorded() {
			e.metrics.SwapItemTotal.WithLabelValues(o.Status).Inc()
		} else {
			e.metrics.SwapItemTotal.WithLabelValues(coremodel.OutcomeFailed).Inc()
			e.metrics.SwapItemFailureTotal.WithLabelValues(o.Code).Inc()
		}
	}

	completed, err := e.settle(ctx, b.ID)
	if err != nil {
		e.metrics.SwapCommitTotal.WithLabelValues("error").Inc()
		e.logger.Error("booking settlement failed",
			zap.Int64("booking_id", b.ID),
			zap.Error(err))
		return outcomes, err
	}
	e.metrics.SwapCommitTotal.WithLabelValues("ok").Inc()

	for _, o := range outcomes {
		if !o.Recorded() {
			continue
		}
		data := &thirdparty.SwapRecordedData{
			SwapID:            fmt.Sprintf("%d", o.SwapID),
			Status:            o.Status,
			StaffID:           staffID,
			OutgoingBatteryID: o.OutgoingBatteryID,
			IncomingBatteryID: o.IncomingBatteryID,
			OutgoingSlotCode:  o.OutgoingSlotCode,
			IncomingSlotCode:  o.IncomingSlotCode,
			Quarantined:       o.Quarantined,
		}
		thirdparty.PublishSafely(ctx, e.publisher, e.logger,
			thirdparty.NewEvent(thirdparty.EventSwapRecorded, b.StationID, b.ID, o.SwapID, e.clock.Now(), data.ToMap()))
	}
	if completed != nil {
		ids, err := e.successfulSwapIDs(ctx, b.ID)
		if err != nil {
			e.logger.Warn("list swaps for completion event failed", zap.Int64("booking_id", b.ID), zap.Error(err))
		}
		at := e.clock.Now()
		if completed.CompletedAt != nil {
			at = *completed.CompletedAt
		}
		thirdparty.PublishSafely(ctx, e.publisher, e.logger, booking.CompletedEvent(completed, ids, at))
	}

	e.logger.Info("swap commit processed",
		zap.Int64("booking_id", b.ID),
		zap.Int64("station_id", b.StationID),
		zap.Int64("staff_id", staffID),
		zap.Int("items", len(outcomes)),
		zap.Bool("booking_completed", completed != nil))
	return outcomes, nil
}

// precheck 整体前置校验，不修改任何数据
func (e *Engine) precheck(ctx context.Context, req CommitRequest) (*models.Booking, int64, error) {
	staffID := req.staffID()
	if staffID <= 0 {
		return nil, 0, apperr.Validation(apperr.CodeStaffMissing, "staff id is required")
	}
	if len(req.IncomingBatteryIDs) == 0 {
		return nil, 0, apperr.Validation(apperr.CodeBatteryCount, "at least one incoming battery is required")
	}
	seen := make(map[int64]struct{}, len(req.IncomingBatteryIDs))
	for _, id := range req.IncomingBatteryIDs {
		if id <= 0 {
			return nil, 0, apperr.Validation(apperr.CodeBatteryNotFound, "invalid incoming battery id %d", id)
		}
		if _, dup := seen[id]; dup {
			return nil, 0, apperr.Validation(apperr.CodeDuplicateBattery, "incoming battery %d listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	b, err := e.repo.GetBooking(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, apperr.NotFound(apperr.CodeBookingNotFound, "booking %d not found", req.BookingID)
		}
		return nil, 0, apperr.Internal(err, "load booking %d", req.BookingID)
	}
	switch coremodel.BookingStatus(b.Status) {
	case coremodel.BookingPendingSwapping:
	case coremodel.BookingCompleted:
		return nil, 0, apperr.StateConflict(apperr.CodeBookingState, "booking %d is already completed", b.ID)
	default:
		return nil, 0, apperr.StateConflict(apperr.CodeBookingState, "booking %d is %s, not ready for swapping", b.ID, b.Status)
	}

	succeeded, err := e.repo.CountSwapsByStatus(ctx, b.ID, coremodel.SwapSuccess)
	if err != nil {
		return nil, 0, apperr.Internal(err, "count swaps of booking %d", b.ID)
	}
	remaining := int64(b.BatteryCount) - succeeded
	if int64(len(req.IncomingBatteryIDs)) != remaining {
		return nil, 0, apperr.Validation(apperr.CodeBatteryCount,
			"booking %d expects exactly %d incoming batteries, got %d", b.ID, remaining, len(req.IncomingBatteryIDs))
	}

	assigned, err := e.repo.IsStaffAssigned(ctx, staffID, b.StationID)
	if err != nil {
		return nil, 0, apperr.Internal(err, "check staff assignment")
	}
	if !assigned {
		return nil, 0, apperr.StateConflict(apperr.CodeStaffNotAssigned, "staff %d is not assigned to station %d", staffID, b.StationID)
	}

	available, err := e.repo.CountAvailable(ctx, b.StationID, "")
	if err != nil {
		return nil, 0, apperr.Internal(err, "count available batteries")
	}
	if available == 0 {
		return nil, 0, apperr.ResourceExhausted(apperr.CodeNoStock, "station %d has no available battery", b.StationID)
	}
	if available < int64(len(req.IncomingBatteryIDs)) {
		e.metrics.LowStockWarningTotal.Inc()
		e.logger.Warn("station stock below requested count, proceeding with partial fulfillment",
			zap.Int64("booking_id", b.ID),
			zap.Int64("station_id", b.StationID),
			zap.Int64("available", available),
			zap.Int("requested", len(req.IncomingBatteryIDs)))
	}
	return b, staffID, nil
}

// processItem 处理单块电池，认领冲突时有限次重试
func (e *Engine) processItem(ctx context.Context, b *models.Booking, incomingID, staffID int64) Outcome {
	var (
		o   Outcome
		err error
	)
	for attempt := 1; attempt <= e.opts.ClaimRetries; attempt++ {
		o, err = e.exchange(ctx, b, incomingID, staffID)
		if !errors.Is(err, storage.ErrClaimConflict) {
			break
		}
		e.logger.Debug("claim conflict, retrying",
			zap.Int64("booking_id", b.ID),
			zap.Int64("incoming_battery_id", incomingID),
			zap.Int("attempt", attempt))
	}
	if err == nil {
		return o
	}
	if errors.Is(err, storage.ErrClaimConflict) {
		err = apperr.Wrap(apperr.KindResourceExhausted, apperr.CodeClaimConflict, err,
			"inventory kept changing under concurrent swaps, retry later")
	} else if _, ok := apperr.As(err); !ok {
		err = apperr.Internal(err, "exchange battery %d", incomingID)
	}
	e.logger.Warn("swap item failed",
		zap.Int64("booking_id", b.ID),
		zap.Int64("incoming_battery_id", incomingID),
		zap.String("code", apperr.CodeOf(err)),
		zap.Error(err))
	return failedOutcome(b.ID, incomingID, err)
}

// exchange 单块电池的完整交换，运行在独立事务中
func (e *Engine) exchange(ctx context.Context, b *models.Booking, incomingID, staffID int64) (Outcome, error) {
	var o Outcome
	err := e.repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		// 锁预约行：同一预约的并发提交在此串行，防止超额完成
		bk, err := tx.LockBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if coremodel.BookingStatus(bk.Status) != coremodel.BookingPendingSwapping {
			return apperr.StateConflict(apperr.CodeBookingState, "booking %d became %s", bk.ID, bk.Status)
		}
		succeeded, err := tx.CountSwapsByStatus(ctx, bk.ID, coremodel.SwapSuccess)
		if err != nil {
			return err
		}
		if succeeded >= int64(bk.BatteryCount) {
			return apperr.StateConflict(apperr.CodeBookingState, "booking %d already has all swaps it needs", bk.ID)
		}

		in, err := e.validateIncoming(ctx, tx, bk, incomingID)
		if err != nil {
			return err
		}

		out, err := e.selectOutgoing(ctx, tx, bk.StationID, in)
		if err != nil {
			return err
		}
		outSlot, err := tx.GetSlot(ctx, *out.SlotID)
		if err != nil {
			return err
		}
		outDock, err := tx.GetDock(ctx, outSlot.DockID)
		if err != nil {
			return err
		}

		dest, err := e.destinationSlot(ctx, tx, bk.StationID, in.ID)
		if err != nil {
			return err
		}
		destDock := outDock
		if dest.DockID != outDock.ID {
			if destDock, err = tx.GetDock(ctx, dest.DockID); err != nil {
				return err
			}
		}

		if err := tx.RemoveBattery(ctx, out.ID, []coremodel.BatteryStatus{coremodel.BatteryAvailable}, coremodel.BatteryInUse); err != nil {
			if errors.Is(err, storage.ErrClaimConflict) {
				e.metrics.ClaimConflictTotal.WithLabelValues("battery").Inc()
			}
			return fmt.Errorf("remove outgoing battery %d: %w", out.ID, err)
		}

		batteryStatus, slotStatus := coremodel.BatteryAvailable, coremodel.SlotOccupied
		quarantined := in.SoH < e.opts.HealthThreshold
		if quarantined {
			batteryStatus, slotStatus = coremodel.BatteryMaintenance, coremodel.SlotReserved
		}
		// 类型不符的换电待处理期间暂扣换入电池，仓位 RESERVED 不参与发放
		if out.Type != in.Type {
			slotStatus = coremodel.SlotReserved
		}
		if err := tx.PlaceBattery(ctx, in.ID, dest.ID, batteryStatus, slotStatus); err != nil {
			if errors.Is(err, storage.ErrClaimConflict) {
				e.metrics.ClaimConflictTotal.WithLabelValues("slot").Inc()
			}
			return fmt.Errorf("place incoming battery %d: %w", in.ID, err)
		}

		status := coremodel.SwapSuccess
		desc := "swap completed"
		if out.Type != in.Type {
			status = coremodel.SwapWaitingUserRetry
			desc = fmt.Sprintf("type mismatch: issued %s for incoming %s", out.Type, in.Type)
		}
		if quarantined {
			desc += fmt.Sprintf("; incoming battery quarantined (soh %d)", in.SoH)
		}

		rec := &models.Swap{
			ID:                e.ids.Generate().Int64(),
			BookingID:         bk.ID,
			DockID:            outDock.ID,
			StaffID:           staffID,
			OutgoingBatteryID: out.ID,
			IncomingBatteryID: in.ID,
			Status:            string(status),
			OutgoingSlotCode:  models.SlotCode(outDock.Name, outSlot.SlotNo),
			IncomingSlotCode:  models.SlotCode(destDock.Name, dest.SlotNo),
			Description:       desc,
			CompletedAt:       e.clock.Now(),
		}
		if err := tx.CreateSwap(ctx, rec); err != nil {
			return err
		}

		o = Outcome{
			SwapID:            rec.ID,
			Status:            rec.Status,
			Message:           desc,
			BookingID:         bk.ID,
			OutgoingBatteryID: out.ID,
			IncomingBatteryID: in.ID,
			OutgoingSlotCode:  rec.OutgoingSlotCode,
			IncomingSlotCode:  rec.IncomingSlotCode,
			Quarantined:       quarantined,
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if o.Quarantined {
		e.metrics.QuarantineTotal.Inc()
	}
	return o, nil
}

func (e *Engine) validateIncoming(ctx context.Context, tx storage.SwapRepo, bk *models.Booking, id int64) (*models.Battery, error) {
	in, err := tx.LockBattery(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Validation(apperr.CodeBatteryNotFound, "incoming battery %d not found", id)
		}
		return nil, err
	}
	if !in.Active {
		return nil, apperr.StateConflict(apperr.CodeBatteryInactive, "incoming battery %s is inactive", in.Serial)
	}
	switch coremodel.BatteryStatus(in.Status) {
	case coremodel.BatteryMaintenance, coremodel.BatteryDamaged:
		return nil, apperr.StateConflict(apperr.CodeBatteryUnusable, "incoming battery %s is %s", in.Serial, in.Status)
	}
	if !coremodel.BatteryType(in.Type).Valid() {
		return nil, apperr.StateConflict(apperr.CodeBatteryTypeUnknown, "incoming battery %s has unknown type %q", in.Serial, in.Type)
	}
	if bk.BatteryType != nil && *bk.BatteryType != "" && *bk.BatteryType != in.Type {
		return nil, apperr.Validation(apperr.CodeBatteryTypeMismatch,
			"booking %d requires %s, incoming battery %s is %s", bk.ID, *bk.BatteryType, in.Serial, in.Type)
	}
	return in, nil
}

// selectOutgoing 认领同类型可用电池；defer 策略下退而认领任意类型
func (e *Engine) selectOutgoing(ctx context.Context, tx storage.SwapRepo, stationID int64, in *models.Battery) (*models.Battery, error) {
	exclude := []int64{in.ID}
	out, err := tx.FindAvailableBattery(ctx, stationID, in.Type, exclude)
	if errors.Is(err, storage.ErrNotFound) && e.opts.MismatchPolicy == MismatchDefer {
		out, err = tx.FindAvailableBattery(ctx, stationID, "", exclude)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ResourceExhausted(apperr.CodeNoMatchingBattery,
			"no available %s battery at station %d", in.Type, stationID)
	}
	if err != nil {
		return nil, err
	}
	if out.SlotID == nil {
		return nil, fmt.Errorf("available battery %d has no slot", out.ID)
	}
	return out, nil
}

// destinationSlot 换入电池的目标仓位：已在本站仓位中则原位放回，否则取第一个空仓位
func (e *Engine) destinationSlot(ctx context.Context, tx storage.SwapRepo, stationID, incomingID int64) (*models.Slot, error) {
	held, err := tx.FindSlotHolding(ctx, incomingID)
	switch {
	case err == nil:
		dock, err := tx.GetDock(ctx, held.DockID)
		if err != nil {
			return nil, err
		}
		if dock.StationID == stationID && held.Active {
			return held, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	slot, err := tx.FindEmptySlot(ctx, stationID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ResourceExhausted(apperr.CodeNoEmptySlot, "no empty slot at station %d", stationID)
	}
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// settle 重新统计成功换电数，满足数量时将预约置为 COMPLETED
func (e *Engine) settle(ctx context.Context, bookingID int64) (*models.Booking, error) {
	var completed *models.Booking
	err := e.repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		bk, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		from := coremodel.BookingStatus(bk.Status)
		if from != coremodel.BookingPendingSwapping || !booking.CanTransition(from, coremodel.BookingCompleted) {
			return nil
		}
		succeeded, err := tx.CountSwapsByStatus(ctx, bookingID, coremodel.SwapSuccess)
		if err != nil {
			return err
		}
		if succeeded < int64(bk.BatteryCount) {
			return nil
		}
		now := e.clock.Now()
		if err := tx.UpdateBookingStatus(ctx, bookingID,
			[]coremodel.BookingStatus{coremodel.BookingPendingSwapping}, coremodel.BookingCompleted,
			storage.BookingUpdate{CompletedAt: &now}); err != nil {
			return err
		}
		bk.Status = string(coremodel.BookingCompleted)
		bk.CompletedAt = &now
		completed = bk
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "settle booking %d", bookingID)
	}
	if completed != nil {
		e.metrics.BookingTransitionTotal.WithLabelValues(string(coremodel.BookingCompleted)).Inc()
	}
	return completed, nil
}

func (e *Engine) successfulSwapIDs(ctx context.Context, bookingID int64) ([]int64, error) {
	swaps, err := e.repo.ListSwapsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, s := range swaps {
		if s.Status == string(coremodel.SwapSuccess) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}
