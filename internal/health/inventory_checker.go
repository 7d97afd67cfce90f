package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/swap-server/internal/inventory"
)

// InventoryChecker 根据最近一次库存巡检结果报告健康状态。
// 存在不变量违规时为降级：仍可服务，但需要人工介入。
type InventoryChecker struct {
	auditor *inventory.Auditor
	maxAge  time.Duration
}

// NewInventoryChecker maxAge 为巡检结果的最大可接受时效，0 表示不检查时效
func NewInventoryChecker(auditor *inventory.Auditor, maxAge time.Duration) *InventoryChecker {
	return &InventoryChecker{auditor: auditor, maxAge: maxAge}
}

func (c *InventoryChecker) Name() string {
	return "inventory"
}

func (c *InventoryChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	report := c.auditor.Last()
	if report == nil {
		return CheckResult{Status: StatusHealthy, Message: "no audit yet", Latency: time.Since(start)}
	}

	details := map[string]interface{}{
		"checked_at": report.CheckedAt,
		"stations":   report.Stations,
		"slots":      report.Slots,
		"batteries":  report.Batteries,
		"violations": len(report.Violations),
	}
	status, message := StatusHealthy, "ok"
	if !report.OK() {
		status = StatusDegraded
		message = fmt.Sprintf("%d inventory violations", len(report.Violations))
		for kind, n := range report.CountByKind() {
			details[string(kind)] = n
		}
	} else if c.maxAge > 0 && time.Since(report.CheckedAt) > c.maxAge {
		status = StatusDegraded
		message = "audit result is stale"
	}
	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
