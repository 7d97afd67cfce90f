package health

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/clock"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/inventory"
	"github.com/taoyao-code/swap-server/internal/metrics"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	redisstorage "github.com/taoyao-code/swap-server/internal/storage/redis"
	"github.com/taoyao-code/swap-server/internal/testutil"
)

func TestDatabaseChecker(t *testing.T) {
	_, db := testutil.NewRepo(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	c := NewDatabaseChecker(sqlDB)
	res := c.Check(context.Background())
	assert.Equal(t, "database", c.Name())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, 1, res.Details["max_open"])

	require.NoError(t, sqlDB.Close())
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &redisstorage.Client{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisChecker(client)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	t.Run("死信超过阈值时降级", func(t *testing.T) {
		backlog := &fakeBacklog{queue: 3, dlq: 11}
		c := NewRedisChecker(client).WithEventBacklog(backlog, 0, 10)
		res := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, res.Status)
		assert.Equal(t, int64(11), res.Details["event_dlq"])

		backlog.dlq = 0
		backlog.queue = 5000
		assert.Equal(t, "event backlog above limit", c.Check(context.Background()).Message)
	})

	mr.Close()
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

type fakeBacklog struct{ queue, dlq int64 }

func (f *fakeBacklog) QueueLength(context.Context) (int64, error) { return f.queue, nil }
func (f *fakeBacklog) DLQLength(context.Context) (int64, error)   { return f.dlq, nil }

func TestPoolStatus(t *testing.T) {
	s, _, _ := poolStatus(1, 1)
	assert.Equal(t, StatusDegraded, s, "单连接占满只算降级")
	s, _, _ = poolStatus(10, 10)
	assert.Equal(t, StatusUnhealthy, s)
	s, _, _ = poolStatus(3, 0)
	assert.Equal(t, StatusHealthy, s)
}

func TestInventoryChecker(t *testing.T) {
	repo, db := testutil.NewRepo(t)
	fx := testutil.Seed(t, repo, testutil.StandardInventory)
	ctx := context.Background()
	auditor := inventory.NewAuditor(repo, clock.System(), metrics.NewNopMetrics(), zap.NewNop())
	c := NewInventoryChecker(auditor, 0)

	assert.Equal(t, "no audit yet", c.Check(ctx).Message)

	_, err := auditor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, c.Check(ctx).Status)

	// 直接改库制造单侧引用
	require.NoError(t, db.Model(&models.Battery{}).
		Where("id = ?", fx.Batteries["CH-A1"]).
		Update("status", string(coremodel.BatteryInUse)).Error)
	_, err = auditor.Run(ctx)
	require.NoError(t, err)

	res := c.Check(ctx)
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Details, string(inventory.ViolationInUseStationed))
}
