package thirdparty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupKeyPrefix = "swap:event:dedup:"

// DefaultDedupTTL 投递标记保留时长
const DefaultDedupTTL = time.Hour

var errEmptyEventID = errors.New("event_id is empty")

// Deduper 记录已投递的事件ID。
// 事件ID由事件类型与预约/换电记录ID组成，同一记录重复发布的终态事件只投递一次。
type Deduper struct {
	redis  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewDeduper(redisClient *redis.Client, logger *zap.Logger, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{redis: redisClient, logger: logger, ttl: ttl}
}

// MarkDelivered 标记事件已成功投递
func (d *Deduper) MarkDelivered(ctx context.Context, eventID string) error {
	key, err := d.key(eventID)
	if err != nil {
		return err
	}
	if err := d.redis.Set(ctx, key, "1", d.ttl).Err(); err != nil {
		d.logger.Error("dedup mark failed", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delivered 事件是否已投递
func (d *Deduper) Delivered(ctx context.Context, eventID string) (bool, error) {
	key, err := d.key(eventID)
	if err != nil {
		return false, err
	}
	n, err := d.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (d *Deduper) key(eventID string) (string, error) {
	if d == nil || d.redis == nil {
		return "", errors.New("deduper not initialized")
	}
	if eventID == "" {
		return "", errEmptyEventID
	}
	return dedupKeyPrefix + eventID, nil
}
