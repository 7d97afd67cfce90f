package swap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/booking"
	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	redisstore "github.com/taoyao-code/swap-server/internal/storage/redis"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// Locker 跨实例互斥锁，获取失败返回 redis.ErrLockHeld
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Resolver 撤销换电（临时/永久），供人工操作与超时巡检共用
type Resolver struct {
	repo      storage.SwapRepo
	locker    Locker
	clock     clock.Clock
	publisher thirdparty.Publisher
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
}

// NewResolver 创建撤销处理器，locker 为空时仅依赖数据库行锁
func NewResolver(repo storage.SwapRepo, locker Locker, clk clock.Clock, pub thirdparty.Publisher, m *metrics.AppMetrics, logger *zap.Logger) *Resolver {
	if clk == nil {
		clk = clock.System()
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
	return &Resolver{repo: repo, locker: locker, clock: clk, publisher: pub, metrics: m, logger: logger}
}

// GetSwap 查询换电记录
func (r *Resolver) GetSwap(ctx context.Context, id int64) (*models.Swap, error) {
	sw, err := r.repo.GetSwap(ctx, id)
	if err != nil {
		return nil, swapLookupErr(err, id)
	}
	return sw, nil
}

// 人工永久撤销可作用的换电状态
var reversibleStatuses = []coremodel.SwapStatus{coremodel.SwapSuccess, coremodel.SwapWaitingUserRetry, coremodel.SwapCancelledTemp}

// CancelSwap 撤销换电。
// soft：仅将 WAITING_USER_RETRY 置为 CANCELLED_TEMP，重复调用幂等；
// permanent：单事务内回滚库存交换、取消预约、换电记录置为 CANCELLED。
func (r *Resolver) CancelSwap(ctx context.Context, swapID int64, mode coremodel.CancelMode, reason string) (*CancelResult, error) {
	if !mode.Valid() {
		return nil, apperr.Validation(apperr.CodeCancelMode, "unknown cancel mode %q", mode)
	}
	return r.cancel(ctx, swapID, mode, reason, reversibleStatuses)
}

// ExpireWaiting 永久撤销仍处于 WAITING_USER_RETRY 的换电，其他状态返回 StateConflict。
// 状态在行锁内判定，扫描后被人工处理的记录不会被回滚。
func (r *Resolver) ExpireWaiting(ctx context.Context, swapID int64, reason string) (*CancelResult, error) {
	return r.cancel(ctx, swapID, coremodel.CancelPermanent, reason, []coremodel.SwapStatus{coremodel.SwapWaitingUserRetry})
}

func (r *Resolver) cancel(ctx context.Context, swapID int64, mode coremodel.CancelMode, reason string, from []coremodel.SwapStatus) (*CancelResult, error) {
	release, err := r.acquire(ctx, swapID)
	if err != nil {
		r.metrics.SwapCancelTotal.WithLabelValues(string(mode), "rejected").Inc()
		return nil, err
	}
	defer release()

	var res *CancelResult
	if mode == coremodel.CancelSoft {
		res, err = r.cancelSoft(ctx, swapID, reason)
	} else {
		res, err = r.cancelPermanent(ctx, swapID, reason, from)
	}
	if err != nil {
		result := "rejected"
		if apperr.KindOf(err) == apperr.KindInternal {
			result = "error"
		}
		r.metrics.SwapCancelTotal.WithLabelValues(string(mode), result).Inc()
		r.logger.Warn("swap cancel failed",
			zap.Int64("swap_id", swapID),
			zap.String("mode", string(mode)),
			zap.String("code", apperr.CodeOf(err)),
			zap.Error(err))
		return nil, err
	}
	r.metrics.SwapCancelTotal.WithLabelValues(string(mode), "ok").Inc()
	r.logger.Info("swap cancelled",
		zap.Int64("swap_id", swapID),
		zap.String("mode", string(mode)),
		zap.String("status", res.Status))
	return res, nil
}

func (r *Resolver) acquire(ctx context.Context, swapID int64) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	release, err := r.locker.Acquire(ctx, fmt.Sprintf("swap:%d", swapID))
	if err == nil {
		return release, nil
	}
	if errors.Is(err, redisstore.ErrLockHeld) {
		r.metrics.ClaimConflictTotal.WithLabelValues("swap").Inc()
		return nil, apperr.StateConflict(apperr.CodeClaimConflict, "swap %d is being resolved by another request", swapID)
	}
	// Redis 不可用时退化为仅依赖数据库行锁
	r.logger.Warn("swap lock unavailable, relying on row lock", zap.Int64("swap_id", swapID), zap.Error(err))
	return func() {}, nil
}

func (r *Resolver) cancelSoft(ctx context.Context, swapID int64, reason string) (*CancelResult, error) {
	var (
		res     *CancelResult
		changed *models.Swap
	)
	err := r.repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		sw, err := tx.LockSwap(ctx, swapID)
		if err != nil {
			return swapLookupErr(err, swapID)
		}
		switch coremodel.SwapStatus(sw.Status) {
		case coremodel.SwapCancelledTemp:
			res = &CancelResult{SwapID: sw.ID, Status: sw.Status, Message: "swap already cancelled temporarily"}
			return nil
		case coremodel.SwapWaitingUserRetry:
		default:
			return apperr.StateConflict(apperr.CodeSwapState, "swap %d is %s, only WAITING_USER_RETRY can be cancelled temporarily", sw.ID, sw.Status)
		}
		if err := tx.UpdateSwapStatus(ctx, sw.ID,
			[]coremodel.SwapStatus{coremodel.SwapWaitingUserRetry}, coremodel.SwapCancelledTemp, reason); err != nil {
			return claimErr(err, swapID)
		}
		sw.Status = string(coremodel.SwapCancelledTemp)
		changed = sw
		res = &CancelResult{SwapID: sw.ID, Status: sw.Status, Message: "swap cancelled temporarily, awaiting retry"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed != nil {
		r.publishSwapCancelled(ctx, changed, coremodel.CancelSoft, reason)
	}
	return res, nil
}

func (r *Resolver) cancelPermanent(ctx context.Context, swapID int64, reason string, from []coremodel.SwapStatus) (*CancelResult, error) {
	if reason == "" {
		reason = "swap cancelled"
	}
	var (
		sw            *models.Swap
		closedBooking *models.Booking
	)
	err := r.repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		var err error
		sw, err = tx.LockSwap(ctx, swapID)
		if err != nil {
			return swapLookupErr(err, swapID)
		}
		if !containsSwapStatus(from, coremodel.SwapStatus(sw.Status)) {
			return apperr.StateConflict(apperr.CodeSwapState, "swap %d is %s, cannot be cancelled permanently", sw.ID, sw.Status)
		}
		bk, err := tx.LockBooking(ctx, sw.BookingID)
		if err != nil {
			return err
		}

		// 换入电池退回用户车上，前提是它仍在本次换电放入的仓位
		if err := r.checkIncomingInPlace(ctx, tx, sw, bk.StationID); err != nil {
			return err
		}
		if err := tx.RemoveBattery(ctx, sw.IncomingBatteryID, nil, coremodel.BatteryInUse); err != nil {
			return fmt.Errorf("revert incoming battery %d: %w", sw.IncomingBatteryID, err)
		}

		// 换出电池放回空仓位；已被放回某仓位的保持原位
		out, err := tx.LockBattery(ctx, sw.OutgoingBatteryID)
		if err != nil {
			return fmt.Errorf("load outgoing battery %d: %w", sw.OutgoingBatteryID, err)
		}
		if out.SlotID == nil {
			slot, err := tx.FindEmptySlot(ctx, bk.StationID)
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ResourceExhausted(apperr.CodeNoEmptySlot, "no empty slot at station %d to return battery %s", bk.StationID, out.Serial)
			}
			if err != nil {
				return err
			}
			if err := tx.PlaceBattery(ctx, out.ID, slot.ID, coremodel.BatteryAvailable, coremodel.SlotOccupied); err != nil {
				return fmt.Errorf("return outgoing battery %d: %w", out.ID, err)
			}
		}

		bkFrom := coremodel.BookingStatus(bk.Status)
		if booking.CanTransition(bkFrom, coremodel.BookingCancelled) {
			if err := tx.UpdateBookingStatus(ctx, bk.ID,
				[]coremodel.BookingStatus{bkFrom}, coremodel.BookingCancelled,
				storage.BookingUpdate{CancelReason: &reason}); err != nil {
				return fmt.Errorf("cancel booking %d: %w", bk.ID, err)
			}
			bk.Status = string(coremodel.BookingCancelled)
			bk.CancelReason = &reason
			closedBooking = bk
		}

		if err := tx.UpdateSwapStatus(ctx, sw.ID, from, coremodel.SwapCancelled, reason); err != nil {
			return claimErr(err, swapID)
		}
		sw.Status = string(coremodel.SwapCancelled)
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			if errors.Is(err, storage.ErrClaimConflict) {
				return nil, apperr.Wrap(apperr.KindStateConflict, apperr.CodeClaimConflict, err, "swap %d changed concurrently", swapID)
			}
			return nil, apperr.Internal(err, "cancel swap %d", swapID)
		}
		return nil, err
	}

	r.publishSwapCancelled(ctx, sw, coremodel.CancelPermanent, reason)
	if closedBooking != nil {
		r.metrics.BookingTransitionTotal.WithLabelValues(string(coremodel.BookingCancelled)).Inc()
		thirdparty.PublishSafely(ctx, r.publisher, r.logger,
			booking.ClosedEvent(closedBooking, coremodel.BookingCancelled, reason, r.clock.Now()))
	}
	return &CancelResult{SwapID: sw.ID, Status: sw.Status, Message: "swap reversed and booking cancelled"}, nil
}

// checkIncomingInPlace 换入电池已离开本次换电的入仓仓位（例如已被再次换出）时无法回滚
func (r *Resolver) checkIncomingInPlace(ctx context.Context, tx storage.SwapRepo, sw *models.Swap, stationID int64) error {
	moved := apperr.StateConflict(apperr.CodeBatteryMoved,
		"incoming battery %d of swap %d is no longer in slot %s", sw.IncomingBatteryID, sw.ID, sw.IncomingSlotCode)

	slot, err := tx.FindSlotHolding(ctx, sw.IncomingBatteryID)
	if errors.Is(err, storage.ErrNotFound) {
		return moved
	}
	if err != nil {
		return err
	}
	dock, err := tx.GetDock(ctx, slot.DockID)
	if err != nil {
		return err
	}
	if dock.StationID != stationID || models.SlotCode(dock.Name, slot.SlotNo) != sw.IncomingSlotCode {
		return moved
	}
	return nil
}

func (r *Resolver) publishSwapCancelled(ctx context.Context, sw *models.Swap, mode coremodel.CancelMode, reason string) {
	data := &thirdparty.SwapCancelledData{
		SwapID: fmt.Sprintf("%d", sw.ID),
		Mode:   string(mode),
		Status: sw.Status,
		Reason: reason,
	}
	bk, err := r.repo.GetBooking(ctx, sw.BookingID)
	var stationID int64
	if err == nil {
		stationID = bk.StationID
	}
	event := thirdparty.NewEvent(thirdparty.EventSwapCancelled, stationID, sw.BookingID, sw.ID, r.clock.Now(), data.ToMap())
	// 临时与永久撤销属于不同事件
	event.EventID = fmt.Sprintf("%s-%s", event.EventID, mode)
	thirdparty.PublishSafely(ctx, r.publisher, r.logger, event)
}

func containsSwapStatus(list []coremodel.SwapStatus, s coremodel.SwapStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func swapLookupErr(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.CodeSwapNotFound, "swap %d not found", id)
	}
	return apperr.Internal(err, "load swap %d", id)
}

func claimErr(err error, id int64) error {
	if errors.Is(err, storage.ErrClaimConflict) {
		return apperr.Wrap(apperr.KindStateConflict, apperr.CodeClaimConflict, err, "swap %d changed concurrently", id)
	}
	return err
}
