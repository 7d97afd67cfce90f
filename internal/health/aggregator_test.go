package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: "mock",
		Latency: time.Millisecond,
	}
}

type deadlineChecker struct{}

func (deadlineChecker) Name() string { return "deadline" }

func (deadlineChecker) Check(ctx context.Context) CheckResult {
	if _, ok := ctx.Deadline(); !ok {
		return CheckResult{Status: StatusUnhealthy}
	}
	return CheckResult{Status: StatusHealthy}
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"database", StatusHealthy},
			&mockChecker{"redis", StatusHealthy},
		)
		assert.Equal(t, StatusHealthy, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("部分降级", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"database", StatusHealthy},
			&mockChecker{"inventory", StatusDegraded},
		)
		assert.Equal(t, StatusDegraded, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx), "降级状态应该仍然Ready")
	})

	t.Run("部分不健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"database", StatusUnhealthy},
			&mockChecker{"redis", StatusHealthy},
		)
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(ctx))
		assert.False(t, agg.Ready(ctx))
	})

	t.Run("可选依赖不健康只降级", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"database", StatusHealthy})
		agg.AddOptional(&mockChecker{"redis", StatusUnhealthy})
		assert.Equal(t, StatusDegraded, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("检查带超时上下文", func(t *testing.T) {
		agg := NewAggregator(deadlineChecker{})
		res := agg.CheckAll(ctx)
		assert.Equal(t, StatusHealthy, res["deadline"].Status)
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})

		report := agg.Report(ctx)
		assert.Len(t, report.Checks, 2)
		assert.Equal(t, StatusHealthy, report.Status)
	})

	t.Run("Alive始终返回true", func(t *testing.T) {
		assert.True(t, NewAggregator().Alive())
	})
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(agg *Aggregator, path string) *httptest.ResponseRecorder {
		r := gin.New()
		RegisterHTTPRoutes(r, agg)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	t.Run("降级仍返回200", func(t *testing.T) {
		rr := serve(NewAggregator(&mockChecker{"inventory", StatusDegraded}), "/health")
		require.Equal(t, http.StatusOK, rr.Code)
		var report HealthReport
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Equal(t, StatusDegraded, report.Status)
		assert.Contains(t, report.Checks, "inventory")
	})

	t.Run("不健康返回503", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"database", StatusUnhealthy})
		assert.Equal(t, http.StatusServiceUnavailable, serve(agg, "/health").Code)
		assert.Equal(t, http.StatusServiceUnavailable, serve(agg, "/health/ready").Code)
		assert.Equal(t, http.StatusOK, serve(agg, "/health/live").Code)
	})
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetDBReady(true)
	assert.False(t, r.Ready())
	r.SetServicesReady(true)
	assert.True(t, r.Ready())
}
