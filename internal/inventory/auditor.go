package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage"
)

// Auditor 库存一致性巡检：读取快照并执行只读检查，结果写入指标与日志
type Auditor struct {
	repo    storage.SwapRepo
	clock   clock.Clock
	metrics *metrics.AppMetrics
	logger  *zap.Logger

	mu   sync.RWMutex
	last *Report
}

// NewAuditor 创建巡检器
func NewAuditor(repo storage.SwapRepo, clk clock.Clock, m *metrics.AppMetrics, logger *zap.Logger) *Auditor {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{repo: repo, clock: clk, metrics: m, logger: logger}
}

// Snapshot 读取库存快照，stationID 为 0 时读取全部站点
func (a *Auditor) Snapshot(ctx context.Context, stationID int64) (*Snapshot, error) {
	data, err := a.repo.LoadInventory(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(data), nil
}

// Run 执行一次全量巡检
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	snap, err := a.Snapshot(ctx, 0)
	if err != nil {
		a.logger.Error("inventory audit load failed", zap.Error(err))
		return nil, err
	}
	rep := Check(snap, a.clock.Now())

	if a.metrics != nil {
		counts := rep.CountByKind()
		for _, kind := range AllViolationKinds() {
			a.metrics.InventoryViolations.WithLabelValues(string(kind)).Set(float64(counts[kind]))
		}
	}
	if rep.OK() {
		a.logger.Info("inventory audit passed",
			zap.Int("stations", rep.Stations),
			zap.Int("slots", rep.Slots),
			zap.Int("batteries", rep.Batteries))
	} else {
		for _, v := range rep.Violations {
			a.logger.Warn("inventory violation",
				zap.String("kind", string(v.Kind)),
				zap.Int64("slot_id", v.SlotID),
				zap.Int64("battery_id", v.BatteryID),
				zap.String("detail", v.Detail))
		}
	}

	a.mu.Lock()
	a.last = rep
	a.mu.Unlock()
	return rep, nil
}

// Last 最近一次巡检结果
func (a *Auditor) Last() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Schedule 按 cron 表达式注册定时巡检，返回已启动的调度器，调用方负责 Stop
func (a *Auditor) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, _ = a.Run(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	a.logger.Info("inventory audit scheduled", zap.String("spec", spec))
	return c, nil
}
