package swap

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage"
)

// SweepReason 超时自动撤销写入预约与换电记录的原因
const SweepReason = "type mismatch not resolved within grace window"

// Sweeper 超时换电巡检器
// 定期扫描停留在 WAITING_USER_RETRY 超过宽限期的换电记录并永久撤销
type Sweeper struct {
	repo     storage.SwapRepo
	resolver *Resolver
	clock    clock.Clock
	metrics  *metrics.AppMetrics
	logger   *zap.Logger

	interval time.Duration // 巡检间隔
	grace    time.Duration // 等待用户重试的宽限期
	batch    int           // 单次巡检最多处理条数

	// 统计
	statsRuns      atomic.Int64
	statsCancelled atomic.Int64
	statsSkipped   atomic.Int64
	statsFailed    atomic.Int64
}

// NewSweeper 创建巡检器
func NewSweeper(repo storage.SwapRepo, resolver *Resolver, clk clock.Clock, m *metrics.AppMetrics, logger *zap.Logger, interval, grace time.Duration, batch int) *Sweeper {
	if clk == nil {
		clk = clock.System()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if grace <= 0 {
		grace = time.Hour
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		repo:     repo,
		resolver: resolver,
		clock:    clk,
		metrics:  m,
		logger:   logger,
		interval: interval,
		grace:    grace,
		batch:    batch,
	}
}

// Start 启动巡检，阻塞直到 ctx 取消
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("mismatch sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace),
		zap.Int("batch", s.batch))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("mismatch sweeper stopped",
				zap.Int64("runs", s.statsRuns.Load()),
				zap.Int64("cancelled", s.statsCancelled.Load()),
				zap.Int64("skipped", s.statsSkipped.Load()),
				zap.Int64("failed", s.statsFailed.Load()))
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一次巡检，返回本次永久撤销的条数
func (s *Sweeper) RunOnce(ctx context.Context) int {
	s.statsRuns.Add(1)

	cutoff := s.clock.Now().Add(-s.grace)
	stale, err := s.repo.ListStaleSwaps(ctx, coremodel.SwapWaitingUserRetry, cutoff, s.batch)
	if err != nil {
		s.logger.Error("list stale swaps failed", zap.Error(err))
		return 0
	}

	var cancelled int
	for _, sw := range stale {
		if ctx.Err() != nil {
			break
		}
		_, err := s.resolver.ExpireWaiting(ctx, sw.ID, SweepReason)
		switch {
		case err == nil:
			cancelled++
			s.statsCancelled.Add(1)
			s.metrics.SwapSweepResolvedTotal.WithLabelValues("cancelled").Inc()
		case apperr.KindOf(err) == apperr.KindStateConflict:
			// 已被人工处理或正被处理
			s.statsSkipped.Add(1)
			s.metrics.SwapSweepResolvedTotal.WithLabelValues("skipped").Inc()
			s.logger.Debug("stale swap skipped", zap.Int64("swap_id", sw.ID), zap.Error(err))
		default:
			s.statsFailed.Add(1)
			s.metrics.SwapSweepResolvedTotal.WithLabelValues("error").Inc()
			s.logger.Error("auto cancel stale swap failed",
				zap.Int64("swap_id", sw.ID),
				zap.Int64("booking_id", sw.BookingID),
				zap.Error(err))
		}
	}

	if cancelled > 0 {
		s.logger.Warn("auto cancelled stale mismatched swaps",
			zap.Int("count", cancelled),
			zap.Time("cutoff", cutoff))
	}
	return cancelled
}

// Stats 获取巡检统计
func (s *Sweeper) Stats() map[string]interface{} {
	return map[string]interface{}{
		"runs":         s.statsRuns.Load(),
		"cancelled":    s.statsCancelled.Load(),
		"skipped":      s.statsSkipped.Load(),
		"failed":       s.statsFailed.Load(),
		"interval_sec": s.interval.Seconds(),
		"grace_sec":    s.grace.Seconds(),
	}
}
