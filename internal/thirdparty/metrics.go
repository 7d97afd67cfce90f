package thirdparty

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 第三方事件推送指标
type Metrics struct {
	PushTotal     *prometheus.CounterVec   // labels: event_type, result=success|failed|retry
	PushDuration  *prometheus.HistogramVec // labels: event_type
	EnqueueTotal  *prometheus.CounterVec   // labels: event_type, result
	DLQMoveTotal  *prometheus.CounterVec   // labels: reason
	DedupHitTotal *prometheus.CounterVec   // labels: event_type
	QueueSize     *prometheus.GaugeVec     // labels: queue_type=main|dlq
}

// NewMetrics 注册并返回推送指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_push_total",
			Help: "Total number of event pushes to third party",
		}, []string{"event_type", "result"}),
		PushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thirdparty_push_duration_seconds",
			Help:    "Duration of event push to third party in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),
		EnqueueTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_enqueue_total",
			Help: "Total number of events enqueued",
		}, []string{"event_type", "result"}),
		DLQMoveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_dlq_move_total",
			Help: "Total number of events moved to the dead letter queue",
		}, []string{"reason"}),
		DedupHitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_dedup_hit_total",
			Help: "Total number of duplicate events detected",
		}, []string{"event_type"}),
		QueueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thirdparty_queue_size",
			Help: "Current size of event queue",
		}, []string{"queue_type"}),
	}
	reg.MustRegister(m.PushTotal, m.PushDuration, m.EnqueueTotal, m.DLQMoveTotal, m.DedupHitTotal, m.QueueSize)
	return m
}

// 以下方法允许 nil 接收者，未注入指标时静默跳过

func (m *Metrics) recordPush(t EventType, result string) {
	if m != nil {
		m.PushTotal.WithLabelValues(string(t), result).Inc()
	}
}

func (m *Metrics) observePush(t EventType, d time.Duration) {
	if m != nil {
		m.PushDuration.WithLabelValues(string(t)).Observe(d.Seconds())
	}
}

func (m *Metrics) recordEnqueue(t EventType, result string) {
	if m != nil {
		m.EnqueueTotal.WithLabelValues(string(t), result).Inc()
	}
}

func (m *Metrics) recordDLQ(reason string) {
	if m != nil {
		m.DLQMoveTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) recordDedup(t EventType) {
	if m != nil {
		m.DedupHitTotal.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) setQueueSize(queue string, n int64) {
	if m != nil {
		m.QueueSize.WithLabelValues(queue).Set(float64(n))
	}
}
