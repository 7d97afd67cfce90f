package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/clock"
	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

func TestOpenDatabase_SQLite(t *testing.T) {
	db, err := OpenDatabase(context.Background(), cfgpkg.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		AutoMigrate: true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.Nil(t, db.Pool)
	require.NoError(t, db.SQL.PingContext(context.Background()))
	assert.True(t, db.Gorm.Migrator().HasTable("swaps"))
}

func TestOpenDatabase_UnsupportedDriver(t *testing.T) {
	_, err := OpenDatabase(context.Background(), cfgpkg.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewEventPublisher(t *testing.T) {
	logger := zap.NewNop()

	t.Run("未配置 webhook", func(t *testing.T) {
		pub, q := NewEventPublisher(cfgpkg.PushConfig{}, nil, nil, logger)
		assert.IsType(t, thirdparty.NopPublisher{}, pub)
		assert.Nil(t, q)
	})

	t.Run("无 Redis 时直推", func(t *testing.T) {
		pub, q := NewEventPublisher(cfgpkg.PushConfig{WebhookURL: "http://127.0.0.1:1/events", Secret: "s"}, nil, nil, logger)
		assert.IsType(t, &thirdparty.DirectPublisher{}, pub)
		assert.Nil(t, q)
	})

	t.Run("有 Redis 时入队", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(cfgpkg.RedisConfig{Enabled: true, Addr: mr.Addr(), PoolSize: 2}, logger)
		require.NoError(t, err)
		defer client.Close()

		pub, q := NewEventPublisher(cfgpkg.PushConfig{WebhookURL: "http://127.0.0.1:1/events", Secret: "s"}, client, nil, logger)
		require.NotNil(t, q)
		assert.Same(t, q, pub)
		assert.NotNil(t, NewSwapLocker(client, cfgpkg.SwapConfig{ClaimLockTTL: time.Second}))
	})
}

func TestNewRedisClient_Disabled(t *testing.T) {
	client, err := NewRedisClient(cfgpkg.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Nil(t, NewSwapLocker(client, cfgpkg.SwapConfig{}))
}

type fakeDLQ struct {
	length  int64
	trimmed int64
	before  time.Time
	err     error
}

func (f *fakeDLQ) DLQLength(context.Context) (int64, error) { return f.length, nil }

func (f *fakeDLQ) TrimDLQ(_ context.Context, before time.Time, _ int64) (int64, error) {
	f.before = before
	return f.trimmed, f.err
}

func TestDeadLetterCleaner_CleanOnce(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	q := &fakeDLQ{length: 5, trimmed: 3}
	c := NewDeadLetterCleaner(q, clock.NewFakeClock(now), zap.NewNop())

	assert.Equal(t, int64(3), c.CleanOnce(context.Background()))
	assert.Equal(t, now.Add(-24*time.Hour), q.before)
	assert.Equal(t, int64(3), c.Stats()["total_cleaned"])

	q.err = errors.New("boom")
	assert.Zero(t, c.CleanOnce(context.Background()))

	empty := NewDeadLetterCleaner(&fakeDLQ{}, nil, zap.NewNop())
	assert.Zero(t, empty.CleanOnce(context.Background()))
}

func TestNewIDNode(t *testing.T) {
	node, err := NewIDNode(3)
	require.NoError(t, err)
	assert.NotZero(t, node.Generate().Int64())

	_, err = NewIDNode(5000)
	assert.Error(t, err)
}
