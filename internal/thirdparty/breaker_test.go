package thirdparty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }
	boom := errors.New("boom")

	assert.NoError(t, b.Allow())
	b.Record(boom)
	assert.Equal(t, BreakerClosed, b.State())
	b.Record(boom)
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	t.Run("冷却后仅放行一次试探", func(t *testing.T) {
		now = now.Add(time.Minute)
		assert.NoError(t, b.Allow())
		assert.Equal(t, BreakerHalfOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	})

	t.Run("试探失败重新熔断", func(t *testing.T) {
		b.Record(boom)
		assert.Equal(t, BreakerOpen, b.State())
		assert.Equal(t, int64(2), b.Trips())
	})

	t.Run("试探成功恢复", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		assert.NoError(t, b.Allow())
		b.Record(nil)
		assert.Equal(t, BreakerClosed, b.State())
		assert.NoError(t, b.Allow())
	})
}

func TestDirectPublisher_SkipsWhileOpen(t *testing.T) {
	p := NewDirectPublisher(NewPusher(nil, "key", "secret"), "http://127.0.0.1:1/hook", time.Second, nil, nil)
	for i := 0; i < 5; i++ {
		p.breaker.Record(errors.New("refused"))
	}
	err := p.Publish(context.Background(), &StandardEvent{EventID: "e1", EventType: EventSwapRecorded})
	assert.ErrorIs(t, err, ErrBreakerOpen)
}
