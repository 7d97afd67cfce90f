package app

import (
	"database/sql"
	"time"

	"github.com/taoyao-code/swap-server/internal/health"
	"github.com/taoyao-code/swap-server/internal/inventory"
)

// NewHealthAggregator 创建健康检查聚合器，初始只包含数据库检查器
func NewHealthAggregator(db *sql.DB) *health.Aggregator {
	return health.NewAggregator(
		health.NewDatabaseChecker(db),
	)
}

// AddInventoryChecker 添加库存一致性检查器，巡检结果超过 maxAge 视为过期
func AddInventoryChecker(aggregator *health.Aggregator, auditor *inventory.Auditor, maxAge time.Duration) {
	aggregator.AddOptional(health.NewInventoryChecker(auditor, maxAge))
}
