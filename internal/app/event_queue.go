package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	redisstorage "github.com/taoyao-code/swap-server/internal/storage/redis"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// NewEventPublisher 选择事件出口：
//   - 有 webhook 且有 Redis：Redis 队列 + 去重，Worker 异步推送
//   - 有 webhook 无 Redis：后台直推
//   - 无 webhook：丢弃
func NewEventPublisher(
	cfg cfgpkg.PushConfig,
	redisClient *redisstorage.Client,
	pushm *thirdparty.Metrics,
	logger *zap.Logger,
) (thirdparty.Publisher, *thirdparty.EventQueue) {
	pusher := NewPusherIfEnabled(cfg)
	if pusher == nil {
		logger.Info("event push disabled (webhook_url or secret empty)")
		return thirdparty.NopPublisher{}, nil
	}
	if cfg.Timeout > 0 {
		pusher.Client.Timeout = cfg.Timeout
	}

	if redisClient == nil {
		logger.Warn("event queue disabled: redis client not available, pushing directly")
		return thirdparty.NewDirectPublisher(pusher, cfg.WebhookURL, cfg.Timeout, pushm,
			logger.With(zap.String("component", "event_push"))), nil
	}

	deduper := thirdparty.NewDeduper(
		redisClient.Client,
		logger.With(zap.String("component", "deduper")),
		thirdparty.DefaultDedupTTL,
	)
	queue := thirdparty.NewEventQueue(
		redisClient.Client,
		pusher,
		cfg.WebhookURL,
		deduper,
		pushm,
		logger.With(zap.String("component", "event_queue")),
	)
	logger.Info("event queue initialized",
		zap.String("webhook_url", cfg.WebhookURL),
		zap.Int("worker_count", cfg.Workers))
	return queue, queue
}

// StartEventQueueWorkers 启动事件队列Workers
func StartEventQueueWorkers(ctx context.Context, queue *thirdparty.EventQueue, workerCount int, logger *zap.Logger) {
	if queue == nil {
		logger.Debug("event queue not initialized, skipping workers")
		return
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	logger.Info("starting event queue workers", zap.Int("count", workerCount))
	queue.StartWorker(ctx, workerCount)
}
