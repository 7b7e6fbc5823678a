package llmrelay

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/cache"
	"github.com/dealscout/llmrelay/internal/limiter"
	"github.com/dealscout/llmrelay/internal/observability"
	"github.com/dealscout/llmrelay/internal/usage"
)

// ClientConfig holds all configuration for the relay client. Every
// collaborator is injected; there are no process-wide singletons, so a
// test can construct a client from in-memory fakes.
type ClientConfig struct {
	// Mode selects the candidate-sequence behavior.
	Mode Mode

	// Registry is the backend configuration table. When nil, New builds
	// one from the configs attached to the registered adapters.
	Registry *Registry

	// BackendConfigs populate the registry when Registry is nil.
	BackendConfigs []BackendConfig

	// Backends are the adapters, keyed by id at construction.
	Backends []backend.Backend

	// Limiter enforces per-backend throughput ceilings. Nil disables
	// limiting.
	Limiter limiter.Limiter

	// Cache stores successful responses. Nil disables caching.
	Cache cache.Store

	// CacheTTL is the fixed expiry for cache entries.
	CacheTTL time.Duration

	// KeyGen fingerprints requests for the cache.
	KeyGen cache.KeyGenerator

	// Tracker accumulates tokens consumed per backend.
	Tracker *usage.Tracker

	// Primary and Secondary fix the production candidate ordering.
	Primary   BackendID
	Secondary BackendID

	// DevDefault is the backend used in development mode when the
	// request has no explicit preference.
	DevDefault BackendID

	// Logger receives fallback and degraded-mode events.
	Logger *slog.Logger

	// Tracer creates a span per generation call.
	Tracer trace.Tracer
}

// Option is a function that configures the Client.
type Option func(*ClientConfig)

// defaultConfig returns sensible defaults.
func defaultConfig() *ClientConfig {
	return &ClientConfig{
		Mode:       ModeProduction,
		CacheTTL:   time.Hour,
		KeyGen:     cache.NewKeyGenerator("llmrelay"),
		Tracker:    usage.NewTracker(),
		Primary:    BackendOpenAI,
		Secondary:  BackendAnthropic,
		DevDefault: BackendDryRun,
		Logger:     observability.NewLogger(observability.LoggerConfig{Level: "info", JSONFormat: true}),
		Tracer:     otel.Tracer(observability.TracerName),
	}
}

// WithMode sets the operating mode.
func WithMode(mode Mode) Option {
	return func(c *ClientConfig) { c.Mode = mode }
}

// WithRegistry injects a prebuilt backend registry.
func WithRegistry(r *Registry) Option {
	return func(c *ClientConfig) { c.Registry = r }
}

// WithBackendConfig adds a backend configuration for registry
// construction.
func WithBackendConfig(cfg BackendConfig) Option {
	return func(c *ClientConfig) { c.BackendConfigs = append(c.BackendConfigs, cfg) }
}

// WithBackend registers a backend adapter.
func WithBackend(b backend.Backend) Option {
	return func(c *ClientConfig) { c.Backends = append(c.Backends, b) }
}

// WithLimiter sets the throughput limiter.
func WithLimiter(l limiter.Limiter) Option {
	return func(c *ClientConfig) { c.Limiter = l }
}

// WithCache enables response caching on the given store with a fixed
// TTL.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *ClientConfig) {
		c.Cache = store
		if ttl > 0 {
			c.CacheTTL = ttl
		}
	}
}

// WithKeyGenerator overrides the request fingerprint generator.
func WithKeyGenerator(g cache.KeyGenerator) Option {
	return func(c *ClientConfig) { c.KeyGen = g }
}

// WithUsageTracker injects a usage tracker shared with other
// components.
func WithUsageTracker(t *usage.Tracker) Option {
	return func(c *ClientConfig) { c.Tracker = t }
}

// WithFallbackOrder fixes the production candidate ordering.
func WithFallbackOrder(primary, secondary BackendID) Option {
	return func(c *ClientConfig) {
		c.Primary = primary
		c.Secondary = secondary
	}
}

// WithDevDefault sets the development-mode default backend.
func WithDevDefault(id BackendID) Option {
	return func(c *ClientConfig) { c.DevDefault = id }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ClientConfig) { c.Logger = logger }
}

// WithTracer sets the tracer used for generation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *ClientConfig) { c.Tracer = tracer }
}
