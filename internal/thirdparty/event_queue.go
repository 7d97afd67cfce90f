package thirdparty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventQueueKey = "swap:event:queue"
	eventDLQKey   = "swap:event:dlq"
	// 重试次数存放在 hash 中，field 为 event_id，投递成功或进入死信后删除
	eventRetryKey = "swap:event:retries"

	maxRetries = 5
)

// DeadLetter 死信记录，At 为进入死信队列的 Unix 秒
type DeadLetter struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	BookingID int64           `json:"booking_id"`
	Reason    string          `json:"reason"`
	At        int64           `json:"at"`
	Event     json.RawMessage `json:"event"`
}

// EventQueue 异步事件队列
type EventQueue struct {
	redis   *redis.Client
	logger  *zap.Logger
	pusher  *Pusher
	deduper *Deduper
	metrics *Metrics
	baseURL string // Webhook基础URL

	// retryDelay 第 n 次重试前的等待时间
	retryDelay func(retry int) time.Duration
}

// NewEventQueue 创建事件队列
func NewEventQueue(redisClient *redis.Client, pusher *Pusher, webhookURL string, deduper *Deduper, m *Metrics, logger *zap.Logger) *EventQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventQueue{
		redis:   redisClient,
		logger:  logger,
		pusher:  pusher,
		deduper: deduper,
		metrics: m,
		baseURL: webhookURL,
		retryDelay: func(retry int) time.Duration {
			return time.Duration(1<<uint(retry)) * time.Second // 1s, 2s, 4s, 8s, 16s
		},
	}
}

// Enqueue 入队事件（异步，不阻塞业务逻辑）
func (q *EventQueue) Enqueue(ctx context.Context, event *StandardEvent) error {
	if q == nil || q.redis == nil {
		return fmt.Errorf("event queue not initialized")
	}

	data, err := json.Marshal(event)
	if err != nil {
		q.logger.Error("failed to marshal event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		return fmt.Errorf("marshal event: %w", err)
	}

	// 推送到Redis List（右侧入队）
	if err := q.redis.RPush(ctx, eventQueueKey, data).Err(); err != nil {
		q.metrics.recordEnqueue(event.EventType, "failed")
		q.logger.Error("failed to enqueue event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		return fmt.Errorf("redis rpush: %w", err)
	}
	q.metrics.recordEnqueue(event.EventType, "success")

	q.logger.Debug("event enqueued",
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
		zap.Int64("station_id", event.StationID),
		zap.Int64("booking_id", event.BookingID))

	return nil
}

// StartWorker 启动事件消费Worker
func (q *EventQueue) StartWorker(ctx context.Context, workerCount int) {
	if q == nil || q.redis == nil || q.pusher == nil {
		if q != nil {
			q.logger.Error("event queue worker cannot start: not initialized")
		}
		return
	}

	q.logger.Info("starting event queue workers",
		zap.Int("worker_count", workerCount),
		zap.String("webhook_url", q.baseURL))

	for i := 0; i < workerCount; i++ {
		go q.worker(ctx, i+1)
	}
}

// worker 单个Worker协程
func (q *EventQueue) worker(ctx context.Context, workerID int) {
	logger := q.logger.With(zap.Int("worker_id", workerID))
	logger.Info("event queue worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("event queue worker stopped")
			return
		default:
		}
		if _, err := q.ProcessOne(ctx, 5*time.Second); err != nil && ctx.Err() == nil {
			logger.Error("redis blpop error", zap.Error(err))
			sleepCtx(ctx, time.Second)
		}
	}
}

// ProcessOne 阻塞取出并处理一个事件，超时无事件返回 false
func (q *EventQueue) ProcessOne(ctx context.Context, timeout time.Duration) (bool, error) {
	result, err := q.redis.BLPop(ctx, timeout, eventQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	// result[0]是key，result[1]是value
	if len(result) < 2 {
		return false, nil
	}
	q.processEvent(ctx, result[1], q.logger)
	return true, nil
}

// processEvent 处理单个事件
func (q *EventQueue) processEvent(ctx context.Context, eventData string, logger *zap.Logger) {
	var event StandardEvent
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		// 格式错误的事件直接丢弃
		logger.Error("failed to unmarshal event", zap.Error(err))
		return
	}

	// 已成功推送过的事件不再推送
	if q.deduper != nil {
		marked, err := q.deduper.Delivered(ctx, event.EventID)
		if err == nil && marked {
			q.metrics.recordDedup(event.EventType)
			logger.Debug("duplicate event skipped", zap.String("event_id", event.EventID))
			return
		}
	}

	retryCount, err := q.retries(ctx, event.EventID)
	if err != nil {
		// 出错时仍尝试推送
		logger.Error("failed to get retry count",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}

	if retryCount >= maxRetries {
		logger.Warn("event exceeded max retries, moving to DLQ",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Int("retry_count", retryCount))
		q.moveToDLQ(ctx, &event, eventData, "max_retries_exceeded")
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	statusCode, respBody, err := q.pusher.SendJSON(pushCtx, q.baseURL, &event)
	q.metrics.observePush(event.EventType, time.Since(start))

	if err != nil || statusCode >= 500 {
		q.metrics.recordPush(event.EventType, "retry")
		logger.Warn("event push failed, will retry",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Int("status_code", statusCode),
			zap.Int("retry_count", retryCount+1),
			zap.Error(err))

		q.addRetry(ctx, event.EventID)
		sleepCtx(ctx, q.retryDelay(retryCount))

		if err := q.redis.RPush(ctx, eventQueueKey, eventData).Err(); err != nil {
			logger.Error("failed to re-enqueue event",
				zap.String("event_id", event.EventID),
				zap.Error(err))
			q.moveToDLQ(ctx, &event, eventData, "re_enqueue_failed")
		}
		return
	}

	if statusCode >= 400 && statusCode < 500 {
		// 4xx错误，客户端错误，不重试，移到DLQ
		q.metrics.recordPush(event.EventType, "failed")
		logger.Warn("event push client error, moving to DLQ",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Int("status_code", statusCode),
			zap.ByteString("response", respBody))
		q.moveToDLQ(ctx, &event, eventData, fmt.Sprintf("client_error_%d", statusCode))
		return
	}

	q.metrics.recordPush(event.EventType, "success")
	logger.Info("event pushed successfully",
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
		zap.Int("status_code", statusCode))

	if q.deduper != nil {
		_ = q.deduper.MarkDelivered(ctx, event.EventID)
	}
	q.clearRetries(ctx, event.EventID)
}

// moveToDLQ 事件转入死信队列，保留原始事件供人工补发
func (q *EventQueue) moveToDLQ(ctx context.Context, event *StandardEvent, raw string, reason string) {
	q.metrics.recordDLQ(reason)
	dl := DeadLetter{
		EventID:   event.EventID,
		EventType: event.EventType,
		BookingID: event.BookingID,
		Reason:    reason,
		At:        time.Now().Unix(),
		Event:     json.RawMessage(raw),
	}
	data, err := json.Marshal(dl)
	if err != nil {
		q.logger.Error("failed to marshal dead letter", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}
	if err := q.redis.RPush(ctx, eventDLQKey, data).Err(); err != nil {
		q.logger.Error("failed to move event to DLQ", zap.String("event_id", event.EventID), zap.Error(err))
	}
	q.clearRetries(ctx, event.EventID)
}

func (q *EventQueue) retries(ctx context.Context, eventID string) (int, error) {
	n, err := q.redis.HGet(ctx, eventRetryKey, eventID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (q *EventQueue) addRetry(ctx context.Context, eventID string) {
	if err := q.redis.HIncrBy(ctx, eventRetryKey, eventID, 1).Err(); err != nil {
		q.logger.Error("failed to increment retry count", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (q *EventQueue) clearRetries(ctx context.Context, eventID string) {
	q.redis.HDel(ctx, eventRetryKey, eventID)
}

// QueueLength 获取队列长度
func (q *EventQueue) QueueLength(ctx context.Context) (int64, error) {
	if q == nil || q.redis == nil {
		return 0, fmt.Errorf("queue not initialized")
	}
	n, err := q.redis.LLen(ctx, eventQueueKey).Result()
	if err == nil {
		q.metrics.setQueueSize("main", n)
	}
	return n, err
}

// DLQLength 获取死信队列长度
func (q *EventQueue) DLQLength(ctx context.Context) (int64, error) {
	if q == nil || q.redis == nil {
		return 0, fmt.Errorf("queue not initialized")
	}
	n, err := q.redis.LLen(ctx, eventDLQKey).Result()
	if err == nil {
		q.metrics.setQueueSize("dlq", n)
	}
	return n, err
}

// DeadLetters 读取死信记录，供人工补发
func (q *EventQueue) DeadLetters(ctx context.Context, start, stop int64) ([]DeadLetter, error) {
	if q == nil || q.redis == nil {
		return nil, fmt.Errorf("queue not initialized")
	}
	raws, err := q.redis.LRange(ctx, eventDLQKey, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			q.logger.Warn("skipping malformed dead letter", zap.Error(err))
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

// TrimDLQ 从队首清理 before 之前进入死信队列的记录，单次最多检查 limit 条，返回清理数量。
// 死信按时间顺序追加，遇到第一条未过期的记录即停止。
func (q *EventQueue) TrimDLQ(ctx context.Context, before time.Time, limit int64) (int64, error) {
	if q == nil || q.redis == nil {
		return 0, fmt.Errorf("queue not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	records, err := q.redis.LRange(ctx, eventDLQKey, 0, limit-1).Result()
	if err != nil {
		return 0, err
	}
	var expired int64
	for _, raw := range records {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err == nil && dl.At >= before.Unix() {
			break
		}
		expired++
	}
	if expired == 0 {
		return 0, nil
	}
	if err := q.redis.LTrim(ctx, eventDLQKey, expired, -1).Err(); err != nil {
		return 0, err
	}
	return expired, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
