// Package limiter enforces per-backend throughput ceilings with a
// fixed-window counter in Redis. Counters are shared across process
// instances, so the ceiling holds under horizontal scaling.
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealscout/llmrelay/internal/registry"
)

// DefaultWindow is the fixed-window length used when none is configured.
const DefaultWindow = time.Minute

// Limiter answers whether a backend may serve one more request in the
// current window.
type Limiter interface {
	// Allow increments the backend's counter for the current window and
	// reports whether the post-increment count is within limit.
	Allow(ctx context.Context, backend registry.BackendID, limit int64) bool
}

// RedisLimiter implements Limiter on a shared Redis store. The
// increment and the expiry set run inside one Lua script, so concurrent
// callers never observe a half-applied window.
type RedisLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	window time.Duration
	prefix string
	logger *slog.Logger
}

// Increment-and-check. The first increment in a window creates the key
// and stamps its expiry; later increments reuse the remaining TTL.
const allowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

// NewRedisLimiter creates a limiter with the given window. A zero
// window falls back to DefaultWindow; Redis key expiry has whole-second
// granularity, so sub-second windows are rounded up to one second.
func NewRedisLimiter(client redis.UniversalClient, window time.Duration, logger *slog.Logger) *RedisLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if window < time.Second {
		window = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(allowScript),
		window: window,
		prefix: "llmrelay:ratelimit",
		logger: logger,
	}
}

// Allow implements Limiter. When the store is unreachable the limiter
// fails open: the request is allowed and the outage is logged as a
// degraded-mode event.
func (l *RedisLimiter) Allow(ctx context.Context, backend registry.BackendID, limit int64) bool {
	if limit <= 0 {
		return true
	}

	key := l.windowKey(backend)
	val, err := l.script.Run(ctx, l.client, []string{key}, int64(l.window.Seconds())).Result()
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, failing open",
			"backend", string(backend),
			"error", err,
		)
		return true
	}

	count, err := toInt64(val)
	if err != nil {
		l.logger.Warn("rate limiter returned unexpected value, failing open",
			"backend", string(backend),
			"error", err,
		)
		return true
	}

	return count <= limit
}

// windowKey buckets the counter by window start so an expired key and a
// rolled-over window never collide.
func (l *RedisLimiter) windowKey(backend registry.BackendID) string {
	windowStart := time.Now().Unix() / int64(l.window.Seconds())
	return fmt.Sprintf("%s:{%s}:%d", l.prefix, backend, windowStart)
}

func toInt64(val any) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected result type from redis script: %T", val)
	}
}
