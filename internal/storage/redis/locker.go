package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld 锁已被其他持有者占用
var ErrLockHeld = errors.New("redis: lock held by another owner")

const lockKeyPrefix = "swap:lock:"

// 仅当值匹配时删除，避免释放他人续上的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX PX 的跨实例互斥锁。
// 用于撤销换电与超时巡检对同一换电记录的处理互斥，数据库条件更新仍是最终裁决。
type Locker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewLocker 创建锁，ttl 为锁自动过期时间
func NewLocker(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{rdb: rdb, ttl: ttl}
}

// Acquire 获取锁，成功时返回释放函数；锁被占用时返回 ErrLockHeld
func (l *Locker) Acquire(ctx context.Context, name string) (func(), error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
