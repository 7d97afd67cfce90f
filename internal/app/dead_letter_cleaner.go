package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/clock"
)

// dlqTrimmer 死信队列清理所需的最小接口
type dlqTrimmer interface {
	DLQLength(ctx context.Context) (int64, error)
	TrimDLQ(ctx context.Context, before time.Time, limit int64) (int64, error)
}

// DeadLetterCleaner 定期清理超过保留期的事件死信
type DeadLetterCleaner struct {
	queue         dlqTrimmer
	clock         clock.Clock
	logger        *zap.Logger
	checkInterval time.Duration
	retention     time.Duration
	batch         int64

	statsCleaned atomic.Int64
}

// NewDeadLetterCleaner 创建死信清理器（每小时清理一次，保留 24 小时）
func NewDeadLetterCleaner(queue dlqTrimmer, clk clock.Clock, logger *zap.Logger) *DeadLetterCleaner {
	if clk == nil {
		clk = clock.System()
	}
	return &DeadLetterCleaner{
		queue:         queue,
		clock:         clk,
		logger:        logger,
		checkInterval: time.Hour,
		retention:     24 * time.Hour,
		batch:         100,
	}
}

// Start 启动清理循环，ctx 取消后退出
func (c *DeadLetterCleaner) Start(ctx context.Context) {
	c.logger.Info("dead letter cleaner started",
		zap.Duration("check_interval", c.checkInterval),
		zap.Duration("retention", c.retention))

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("dead letter cleaner stopped",
				zap.Int64("total_cleaned", c.statsCleaned.Load()))
			return
		case <-ticker.C:
			c.CleanOnce(ctx)
		}
	}
}

// CleanOnce 执行一次清理，返回清理数量
func (c *DeadLetterCleaner) CleanOnce(ctx context.Context) int64 {
	count, err := c.queue.DLQLength(ctx)
	if err != nil {
		c.logger.Error("failed to get dead letter count", zap.Error(err))
		return 0
	}
	if count == 0 {
		return 0
	}

	cleaned, err := c.queue.TrimDLQ(ctx, c.clock.Now().Add(-c.retention), c.batch)
	if err != nil {
		c.logger.Error("failed to clean expired dead letters",
			zap.Error(err),
			zap.Int64("dead_count", count))
		return 0
	}
	if cleaned > 0 {
		c.statsCleaned.Add(cleaned)
		c.logger.Info("cleaned expired dead letters",
			zap.Int64("cleaned", cleaned),
			zap.Int64("remaining", count-cleaned))
	}
	if remaining := count - cleaned; remaining > 1000 {
		c.logger.Warn("dead letter queue overloaded",
			zap.Int64("dead_count", remaining),
			zap.String("suggestion", "manual intervention required"))
	}
	return cleaned
}

// Stats 获取统计信息
func (c *DeadLetterCleaner) Stats() map[string]interface{} {
	return map[string]interface{}{
		"total_cleaned": c.statsCleaned.Load(),
	}
}
