package limiter

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/dealscout/llmrelay/internal/registry"
)

func newTestLimiter(t *testing.T, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, window, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))), s
}

func TestRedisLimiter_UnderLimit(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 5), "request %d should be allowed", i+1)
	}
}

func TestRedisLimiter_ExceedsLimit(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 2))
	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 2))
	assert.False(t, l.Allow(ctx, registry.BackendOpenAI, 2))
	// Denials keep incrementing; the window stays exhausted.
	assert.False(t, l.Allow(ctx, registry.BackendOpenAI, 2))
}

func TestRedisLimiter_PerBackendCounters(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 1))
	assert.False(t, l.Allow(ctx, registry.BackendOpenAI, 1))

	// A different backend has its own counter.
	assert.True(t, l.Allow(ctx, registry.BackendAnthropic, 1))
}

func TestRedisLimiter_SubSecondWindowRoundsUp(t *testing.T) {
	l, s := newTestLimiter(t, 500*time.Millisecond)
	ctx := context.Background()

	assert.Equal(t, time.Second, l.window)
	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 1))
	assert.False(t, l.Allow(ctx, registry.BackendOpenAI, 1))

	s.FastForward(time.Second)
	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 1))
}

func TestRedisLimiter_WindowExpiry(t *testing.T) {
	l, s := newTestLimiter(t, time.Second)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 1))
	assert.False(t, l.Allow(ctx, registry.BackendOpenAI, 1))

	s.FastForward(2 * time.Second)

	assert.True(t, l.Allow(ctx, registry.BackendOpenAI, 1))
}

func TestRedisLimiter_FailsOpenWhenStoreDown(t *testing.T) {
	l, s := newTestLimiter(t, time.Minute)
	s.Close()

	assert.True(t, l.Allow(context.Background(), registry.BackendOpenAI, 1))
	assert.True(t, l.Allow(context.Background(), registry.BackendOpenAI, 1))
}

func TestRedisLimiter_FailOpenIsLogged(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var buf bytes.Buffer
	l := NewRedisLimiter(client, time.Minute, slog.New(slog.NewTextHandler(&buf, nil)))
	s.Close()

	assert.True(t, l.Allow(context.Background(), registry.BackendOpenAI, 1))
	assert.Contains(t, buf.String(), "failing open")
	assert.Contains(t, buf.String(), "openai")
}

func TestRedisLimiter_ZeroLimitMeansUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(context.Background(), registry.BackendOpenAI, 0))
	}
}
