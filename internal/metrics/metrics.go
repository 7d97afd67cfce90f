package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	SwapCommitTotal        *prometheus.CounterVec // labels: result=ok|rejected|error
	SwapItemTotal          *prometheus.CounterVec // labels: status=SUCCESS|WAITING_USER_RETRY|FAILED
	SwapItemFailureTotal   *prometheus.CounterVec // labels: code
	SwapCommitDuration     prometheus.Histogram   // 单次提交耗时
	SwapCancelTotal        *prometheus.CounterVec // labels: mode, result
	SwapSweepResolvedTotal *prometheus.CounterVec // labels: result=cancelled|skipped|error
	QuarantineTotal        prometheus.Counter     // 健康度不足被隔离的电池数
	ClaimConflictTotal     *prometheus.CounterVec // labels: resource=battery|slot|booking|swap
	BookingTransitionTotal *prometheus.CounterVec // labels: to
	LowStockWarningTotal   prometheus.Counter     // 站点可用电池少于需求
	InventoryViolations    *prometheus.GaugeVec   // labels: kind，最近一次巡检结果
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		SwapCommitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_commit_total",
			Help: "Swap commit requests by result.",
		}, []string{"result"}),
		SwapItemTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_item_total",
			Help: "Per-battery swap outcomes by status.",
		}, []string{"status"}),
		SwapItemFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_item_failure_total",
			Help: "Per-battery swap failures by error code.",
		}, []string{"code"}),
		SwapCommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swap_commit_duration_seconds",
			Help:    "Swap commit latency.",
			Buckets: prometheus.DefBuckets,
		}),
		SwapCancelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_cancel_total",
			Help: "Swap cancellations by mode and result.",
		}, []string{"mode", "result"}),
		SwapSweepResolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_sweep_resolved_total",
			Help: "Stale swaps handled by the mismatch sweeper.",
		}, []string{"result"}),
		QuarantineTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swap_quarantine_total",
			Help: "Incoming batteries routed to maintenance by the health gate.",
		}),
		ClaimConflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_claim_conflict_total",
			Help: "Row claim conflicts observed by resource.",
		}, []string{"resource"}),
		BookingTransitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_transition_total",
			Help: "Booking status transitions by target status.",
		}, []string{"to"}),
		LowStockWarningTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swap_low_stock_warning_total",
			Help: "Commits that proceeded with fewer available batteries than requested.",
		}),
		InventoryViolations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_violations",
			Help: "Inventory invariant violations found by the last audit.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.SwapCommitTotal, m.SwapItemTotal, m.SwapItemFailureTotal, m.SwapCommitDuration,
		m.SwapCancelTotal, m.SwapSweepResolvedTotal, m.QuarantineTotal, m.ClaimConflictTotal,
		m.BookingTransitionTotal, m.LowStockWarningTotal, m.InventoryViolations,
	)
	return m
}

// NewNopMetrics 返回注册到独立 Registry 的指标实例（测试使用）
func NewNopMetrics() *AppMetrics {
	return NewAppMetrics(prometheus.NewRegistry())
}
