package health

import (
	"context"
	"fmt"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 可服务，但换电或事件投递存在风险
	StatusUnhealthy Status = "unhealthy" // 无法处理换电请求
)

// CheckResult 单个依赖的检查结果
type CheckResult struct {
	Status  Status                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Latency time.Duration          `json:"latency"`
}

// Checker 依赖检查器
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

func pingFailed(err error, start time.Time) CheckResult {
	return CheckResult{
		Status:  StatusUnhealthy,
		Message: fmt.Sprintf("ping failed: %v", err),
		Latency: time.Since(start),
	}
}

// poolStatus 按连接池占用率给出状态，limit<=0 表示无上限
func poolStatus(inUse, limit int) (Status, string, float64) {
	if limit <= 0 {
		return StatusHealthy, "ok", 0
	}
	u := float64(inUse) / float64(limit)
	switch {
	case limit > 1 && u >= 1:
		return StatusUnhealthy, "connection pool exhausted", u
	case u > 0.9:
		return StatusDegraded, "connection pool near limit", u
	default:
		return StatusHealthy, "ok", u
	}
}
