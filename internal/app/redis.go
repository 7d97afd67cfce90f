package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	"github.com/taoyao-code/swap-server/internal/health"
	redisstorage "github.com/taoyao-code/swap-server/internal/storage/redis"
	"github.com/taoyao-code/swap-server/internal/swap"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// NewRedisClient 创建Redis客户端，未启用时返回 nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))

	return client, nil
}

// NewSwapLocker 跨实例换电撤销锁；无 Redis 时返回 nil，仅依赖数据库行锁
func NewSwapLocker(client *redisstorage.Client, cfg cfgpkg.SwapConfig) swap.Locker {
	if client == nil {
		return nil
	}
	return redisstorage.NewLocker(client.Client, cfg.ClaimLockTTL)
}

// AddRedisChecker 添加Redis检查器到聚合器；启用事件队列时一并检查积压
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client, queue *thirdparty.EventQueue) {
	if redisClient == nil {
		return
	}
	checker := health.NewRedisChecker(redisClient)
	if queue != nil {
		checker.WithEventBacklog(queue, 0, 0)
	}
	aggregator.AddOptional(checker)
}
