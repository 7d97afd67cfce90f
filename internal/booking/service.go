package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// Service 预约生命周期服务（支付确认、取消、失败、查询）。
// COMPLETED 只由换电引擎写入，本服务不提供。
type Service struct {
	repo         storage.SwapRepo
	clock        clock.Clock
	publisher    thirdparty.Publisher
	metrics      *metrics.AppMetrics
	logger       *zap.Logger
	cancelCutoff time.Duration
}

// NewService 创建预约服务，cancelCutoff 为开始前禁止取消的时间窗
func NewService(repo storage.SwapRepo, clk clock.Clock, pub thirdparty.Publisher, m *metrics.AppMetrics, logger *zap.Logger, cancelCutoff time.Duration) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if pub == nil {
		pub = thirdparty.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		clock:        clk,
		publisher:    pub,
		metrics:      m,
		logger:       logger,
		cancelCutoff: cancelCutoff,
	}
}

// Detail 预约及其换电记录
type Detail struct {
	Booking models.Booking `json:"booking"`
	Swaps   []models.Swap  `json:"swaps"`
}

// Get 查询预约详情
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, lookupErr(err, id)
	}
	swaps, err := s.repo.ListSwapsByBooking(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "list swaps of booking %d", id)
	}
	if swaps == nil {
		swaps = []models.Swap{}
	}
	return &Detail{Booking: *b, Swaps: swaps}, nil
}

// ConfirmPayment 支付成功回调：PENDING_PAYMENT -> PENDING_SWAPPING
func (s *Service) ConfirmPayment(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.transition(ctx, id, coremodel.BookingPendingSwapping, "", nil)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	thirdparty.PublishSafely(ctx, s.publisher, s.logger,
		thirdparty.NewEvent(thirdparty.EventBookingPaymentConfirmed, b.StationID, b.ID, b.ID, now, map[string]interface{}{
			"customer_id": b.CustomerID,
			"amount_cent": b.AmountCent,
		}))
	return b, nil
}

// Cancel 用户/工作人员取消预约；距预约开始不足 cancelCutoff 时拒绝
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	now := s.clock.Now()
	b, err := s.transition(ctx, id, coremodel.BookingCancelled, reason, func(cur *models.Booking) error {
		if coremodel.BookingStatus(cur.Status) == coremodel.BookingCompleted {
			return apperr.StateConflict(apperr.CodeBookingState, "completed booking %d can only be cancelled by reversing its swaps", cur.ID)
		}
		if !now.Before(cur.ScheduledAt.Add(-s.cancelCutoff)) {
			return apperr.StateConflict(apperr.CodeBookingCutoff,
				"booking %d can no longer be cancelled within %s of its slot", cur.ID, s.cancelCutoff)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	thirdparty.PublishSafely(ctx, s.publisher, s.logger, ClosedEvent(b, coremodel.BookingCancelled, reason, now))
	return b, nil
}

// Fail 外部超时（支付或到站）将预约置为 FAILED
func (s *Service) Fail(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, id, coremodel.BookingFailed, reason, nil)
	if err != nil {
		return nil, err
	}
	thirdparty.PublishSafely(ctx, s.publisher, s.logger, ClosedEvent(b, coremodel.BookingFailed, reason, s.clock.Now()))
	return b, nil
}

func (s *Service) transition(ctx context.Context, id int64, to coremodel.BookingStatus, reason string, check func(*models.Booking) error) (*models.Booking, error) {
	var out *models.Booking
	err := s.repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		cur, err := tx.LockBooking(ctx, id)
		if err != nil {
			return lookupErr(err, id)
		}
		from := coremodel.BookingStatus(cur.Status)
		if !CanTransition(from, to) {
			return apperr.StateConflict(apperr.CodeBookingState, "booking %d cannot move from %s to %s", id, from, to)
		}
		if check != nil {
			if err := check(cur); err != nil {
				return err
			}
		}
		upd := storage.BookingUpdate{}
		if reason != "" {
			upd.CancelReason = &reason
		}
		if err := tx.UpdateBookingStatus(ctx, id, []coremodel.BookingStatus{from}, to, upd); err != nil {
			if errors.Is(err, storage.ErrClaimConflict) {
				return apperr.StateConflict(apperr.CodeClaimConflict, "booking %d changed concurrently", id)
			}
			return apperr.Internal(err, "update booking %d", id)
		}
		out, err = tx.GetBooking(ctx, id)
		if err != nil {
			return apperr.Internal(err, "reload booking %d", id)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("booking transition rejected",
			zap.Int64("booking_id", id),
			zap.String("to", string(to)),
			zap.String("code", apperr.CodeOf(err)),
			zap.Error(err))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BookingTransitionTotal.WithLabelValues(string(to)).Inc()
	}
	s.logger.Info("booking transitioned",
		zap.Int64("booking_id", id),
		zap.String("to", string(to)))
	return out, nil
}

func lookupErr(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.CodeBookingNotFound, "booking %d not found", id)
	}
	return apperr.Internal(err, "load booking %d", id)
}
