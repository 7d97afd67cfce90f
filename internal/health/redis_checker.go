package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/swap-server/internal/storage/redis"
)

// EventBacklog 事件队列积压查询，由 thirdparty.EventQueue 实现
type EventBacklog interface {
	QueueLength(ctx context.Context) (int64, error)
	DLQLength(ctx context.Context) (int64, error)
}

// RedisChecker Redis 检查：撤销锁与事件队列都依赖它。
// 配置了事件队列时，积压或死信超过阈值视为降级。
type RedisChecker struct {
	client     *redisstorage.Client
	events     EventBacklog
	maxBacklog int64
	maxDLQ     int64
}

func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client, maxBacklog: 1000, maxDLQ: 100}
}

// WithEventBacklog 附加事件队列积压检查
func (c *RedisChecker) WithEventBacklog(events EventBacklog, maxBacklog, maxDLQ int64) *RedisChecker {
	c.events = events
	if maxBacklog > 0 {
		c.maxBacklog = maxBacklog
	}
	if maxDLQ > 0 {
		c.maxDLQ = maxDLQ
	}
	return c
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return pingFailed(err, start)
	}

	stats := c.client.PoolStats()
	status, msg, u := poolStatus(int(stats.TotalConns-stats.IdleConns), int(stats.TotalConns))
	details := map[string]interface{}{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"timeouts":    stats.Timeouts,
		"utilization": fmt.Sprintf("%.1f%%", u*100),
	}
	if status == StatusUnhealthy {
		// 连接全部在用只说明繁忙，Ping 已成功
		status = StatusDegraded
	}

	if c.events != nil {
		backlog, err1 := c.events.QueueLength(ctx)
		dlq, err2 := c.events.DLQLength(ctx)
		if err1 == nil && err2 == nil {
			details["event_backlog"] = backlog
			details["event_dlq"] = dlq
			switch {
			case dlq > c.maxDLQ:
				status, msg = StatusDegraded, "event dead letters piling up"
			case backlog > c.maxBacklog:
				status, msg = StatusDegraded, "event backlog above limit"
			}
		}
	}

	return CheckResult{Status: status, Message: msg, Details: details, Latency: time.Since(start)}
}
