package thirdparty

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Publisher 领域事件出口。业务提交后调用，失败只记录日志，不影响已提交的事务。
type Publisher interface {
	Publish(ctx context.Context, event *StandardEvent) error
}

// NopPublisher 未配置 Webhook 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *StandardEvent) error { return nil }

// Publish 入队到 Redis，由 Worker 异步推送
func (q *EventQueue) Publish(ctx context.Context, event *StandardEvent) error {
	return q.Enqueue(ctx, event)
}

// DirectPublisher 无 Redis 时直接推送 Webhook（后台协程，带超时）
type DirectPublisher struct {
	pusher  *Pusher
	breaker *Breaker
	url     string
	timeout time.Duration
	metrics *Metrics
	logger  *zap.Logger
}

// NewDirectPublisher 创建直推发布器
func NewDirectPublisher(pusher *Pusher, url string, timeout time.Duration, m *Metrics, logger *zap.Logger) *DirectPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectPublisher{pusher: pusher, breaker: NewBreaker(5, 30*time.Second), url: url, timeout: timeout, metrics: m, logger: logger}
}

// Publish 下游连续失败熔断期间直接丢弃事件并返回 ErrBreakerOpen
func (p *DirectPublisher) Publish(_ context.Context, event *StandardEvent) error {
	if err := p.breaker.Allow(); err != nil {
		p.metrics.recordPush(event.EventType, "skipped")
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		start := time.Now()
		code, _, err := p.pusher.SendJSON(ctx, p.url, event)
		p.metrics.observePush(event.EventType, time.Since(start))
		if err == nil && code >= 300 {
			err = fmt.Errorf("webhook status %d", code)
		}
		p.breaker.Record(err)
		if err != nil {
			p.metrics.recordPush(event.EventType, "failed")
			p.logger.Warn("event push failed",
				zap.String("event_id", event.EventID),
				zap.String("event_type", string(event.EventType)),
				zap.Int("status_code", code),
				zap.Error(err))
			return
		}
		p.metrics.recordPush(event.EventType, "success")
	}()
	return nil
}

// PublishSafely 发布事件并吞掉错误（仅记录日志），供业务层在事务提交后调用
func PublishSafely(ctx context.Context, pub Publisher, logger *zap.Logger, event *StandardEvent) {
	if pub == nil || event == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("publish event failed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
}
