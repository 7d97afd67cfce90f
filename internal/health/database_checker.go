package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DatabaseChecker 库存与预约库检查（Postgres 与 SQLite 共用 database/sql 句柄）
type DatabaseChecker struct {
	db *sql.DB
}

func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

// Check SQLite 固定单连接，占用满不视为耗尽
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		return pingFailed(err, start)
	}

	stats := c.db.Stats()
	status, msg, u := poolStatus(stats.InUse, stats.MaxOpenConnections)
	return CheckResult{
		Status:  status,
		Message: msg,
		Details: map[string]interface{}{
			"open_conns":    stats.OpenConnections,
			"in_use":        stats.InUse,
			"idle":          stats.Idle,
			"max_open":      stats.MaxOpenConnections,
			"wait_count":    stats.WaitCount,
			"wait_duration": stats.WaitDuration.String(),
			"utilization":   fmt.Sprintf("%.1f%%", u*100),
		},
		Latency: time.Since(start),
	}
}
