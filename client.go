package llmrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/cache"
	"github.com/dealscout/llmrelay/internal/limiter"
	"github.com/dealscout/llmrelay/internal/metrics"
	"github.com/dealscout/llmrelay/internal/registry"
	"github.com/dealscout/llmrelay/internal/usage"
	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

// ErrThrottled marks a candidate that the throughput limiter refused.
// It surfaces only inside AllBackendsFailedError attempts.
var ErrThrottled = errors.New("throughput limit exceeded")

// Client orchestrates generation calls: cache lookup, throughput
// limiting, backend invocation, fallback, and usage accounting.
//
// Client is safe for concurrent use by multiple goroutines. Note that
// two concurrent calls with the same fingerprint both miss the cache
// and both invoke a backend; the relay deliberately does not
// single-flight identical requests.
type Client struct {
	cfg      *ClientConfig
	registry atomic.Pointer[registry.Registry]
	backends map[registry.BackendID]backend.Backend
	limiter  limiter.Limiter
	cache    cache.Store
	keyGen   cache.KeyGenerator
	tracker  *usage.Tracker
	logger   *slog.Logger
	tracer   trace.Tracer

	shutdown []func(context.Context) error
}

// New creates a relay client from the given options.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	backends := make(map[registry.BackendID]backend.Backend, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if _, exists := backends[b.ID()]; exists {
			return nil, fmt.Errorf("duplicate backend adapter: %s", b.ID())
		}
		backends[b.ID()] = b
	}

	reg := cfg.Registry
	if reg == nil {
		configs := cfg.BackendConfigs
		if len(configs) == 0 {
			// No explicit configs: register every adapter with no
			// throughput ceiling.
			for _, b := range cfg.Backends {
				configs = append(configs, BackendConfig{ID: b.ID()})
			}
		}
		reg = registry.New(configs...)
	}

	c := &Client{
		cfg:      cfg,
		backends: backends,
		limiter:  cfg.Limiter,
		cache:    cfg.Cache,
		keyGen:   cfg.KeyGen,
		tracker:  cfg.Tracker,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
	}
	c.registry.Store(reg)

	c.logger.Info("llmrelay client initialized",
		"mode", string(cfg.Mode),
		"backends", len(backends),
		"cache_enabled", cfg.Cache != nil,
		"limiter_enabled", cfg.Limiter != nil,
	)
	return c, nil
}

// Generate runs one generation call through the resilience pipeline.
//
// The candidate sequence is computed once per call and tried strictly
// in order: development mode yields a single candidate with no
// fallback; an explicit preference is tried before the secondary;
// otherwise the hard-coded production ordering (primary, secondary)
// applies. A cache hit short-circuits everything, including the
// limiter. Only exhaustion of the whole sequence is surfaced, as
// *AllBackendsFailedError.
func (c *Client) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	ctx, span := c.tracer.Start(ctx, "llmrelay.generate")
	defer span.End()

	logger := c.logger.With("request_id", uuid.NewString())

	candidates, err := c.candidates(req)
	if err != nil {
		return nil, err
	}

	fingerprint := c.fingerprint(candidates[0], req)

	if c.cache != nil {
		if entry := c.cacheLookup(ctx, logger, fingerprint); entry != nil {
			span.SetAttributes(
				attribute.Bool("llmrelay.cache_hit", true),
				attribute.String("llmrelay.backend", string(entry.Backend)),
			)
			return &GenerationResponse{
				Text:           entry.Text,
				Backend:        entry.Backend,
				TokensUsed:     entry.TokensUsed,
				ProcessingTime: 0,
				CacheHit:       true,
			}, nil
		}
	}

	start := time.Now()
	attempts := make([]relayerrors.Attempt, 0, len(candidates))

	for _, id := range candidates {
		result, err := c.tryBackend(ctx, logger, id, req)
		if err != nil {
			attempts = append(attempts, relayerrors.Attempt{Backend: string(id), Err: err})
			metrics.Fallbacks.WithLabelValues(string(id)).Inc()
			logger.Warn("backend attempt failed, advancing",
				"backend", string(id),
				"error", err,
			)
			continue
		}

		elapsed := time.Since(start)
		c.tracker.Record(id, result.TokensUsed)
		metrics.GenerationRequests.WithLabelValues(string(id), "success").Inc()
		metrics.GenerationLatency.WithLabelValues(string(id)).Observe(elapsed.Seconds())
		span.SetAttributes(
			attribute.Bool("llmrelay.cache_hit", false),
			attribute.String("llmrelay.backend", string(id)),
			attribute.Int("llmrelay.tokens_used", result.TokensUsed),
		)

		if c.cache != nil {
			c.cacheStore(ctx, logger, fingerprint, id, result)
		}

		return &GenerationResponse{
			Text:           result.Text,
			Backend:        id,
			TokensUsed:     result.TokensUsed,
			ProcessingTime: elapsed,
			CacheHit:       false,
		}, nil
	}

	for _, a := range attempts {
		metrics.GenerationRequests.WithLabelValues(a.Backend, "error").Inc()
	}
	return nil, relayerrors.NewAllBackendsFailedError(attempts)
}

// UpdateRegistry swaps the backend configuration table. In-flight calls
// keep the table they started with; new calls see the replacement. Only
// registry-held settings change this way (throughput ceilings, sampling
// defaults); the adapter set is fixed at construction.
func (c *Client) UpdateRegistry(r *Registry) {
	if r == nil {
		return
	}
	c.registry.Store(r)
	c.logger.Info("backend registry updated", "backends", len(r.All()))
}

// UsageSummary returns a snapshot of tokens consumed per backend since
// process start.
func (c *Client) UsageSummary() UsageSummary {
	return c.tracker.Summary()
}

// CacheStats returns the response cache counters, or zero stats when
// caching is disabled.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	for _, fn := range c.shutdown {
		errs = append(errs, fn(ctx))
	}
	c.logger.Info("llmrelay client closed")
	return errors.Join(errs...)
}

// candidates computes the backend sequence for one call. The order is
// static per call; there is no re-ranking by latency or success
// history.
func (c *Client) candidates(req *GenerationRequest) ([]registry.BackendID, error) {
	reg := c.registry.Load()

	if c.cfg.Mode == ModeDevelopment {
		id := req.Preferred
		if id == "" {
			id = c.cfg.DevDefault
		}
		if !reg.Has(id) {
			return nil, relayerrors.NewUnknownBackendError(string(id))
		}
		return []registry.BackendID{id}, nil
	}

	if req.Preferred != "" {
		if !reg.Has(req.Preferred) {
			return nil, relayerrors.NewUnknownBackendError(string(req.Preferred))
		}
		if req.Preferred == c.cfg.Secondary {
			return []registry.BackendID{req.Preferred}, nil
		}
		return []registry.BackendID{req.Preferred, c.cfg.Secondary}, nil
	}

	if c.cfg.Primary == c.cfg.Secondary {
		return []registry.BackendID{c.cfg.Primary}, nil
	}
	return []registry.BackendID{c.cfg.Primary, c.cfg.Secondary}, nil
}

// tryBackend runs the limiter check and the adapter call for one
// candidate. Every failure comes back as an error for the attempt
// list; only the limiter outage path is allowed through (it fails
// open inside the limiter).
func (c *Client) tryBackend(ctx context.Context, logger *slog.Logger, id registry.BackendID, req *GenerationRequest) (*backend.Result, error) {
	cfg, err := c.registry.Load().Get(id)
	if err != nil {
		return nil, relayerrors.NewBackendError(string(id), err)
	}

	b, ok := c.backends[id]
	if !ok {
		return nil, relayerrors.NewBackendError(string(id), fmt.Errorf("no adapter registered"))
	}

	if c.limiter != nil && !c.limiter.Allow(ctx, id, cfg.RequestsPerMinute) {
		metrics.LimiterDenials.WithLabelValues(string(id)).Inc()
		return nil, relayerrors.NewBackendError(string(id), ErrThrottled)
	}

	result, err := b.Complete(ctx, backend.Request{
		Prompt:      req.Prompt,
		Temperature: effectiveTemperature(cfg, req),
		MaxTokens:   effectiveMaxTokens(cfg, req),
	})
	if err != nil {
		return nil, relayerrors.NewBackendError(string(id), err)
	}
	return result, nil
}

// fingerprint derives the cache key from the first candidate and the
// effective sampling parameters, so a preference change reroutes the
// cache as well.
func (c *Client) fingerprint(first registry.BackendID, req *GenerationRequest) string {
	cfg, err := c.registry.Load().Get(first)
	if err != nil {
		cfg = registry.BackendConfig{ID: first}
	}
	return c.keyGen.Generate(cache.KeyParams{
		Backend:     first,
		Prompt:      req.Prompt,
		Temperature: effectiveTemperature(cfg, req),
		MaxTokens:   effectiveMaxTokens(cfg, req),
	})
}

func (c *Client) cacheLookup(ctx context.Context, logger *slog.Logger, fingerprint string) *cache.Entry {
	entry, err := cache.GetEntry(ctx, c.cache, fingerprint)
	if err != nil {
		// A cache outage degrades to a miss.
		logger.Warn("cache lookup failed, treating as miss", "error", err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if entry == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry
}

func (c *Client) cacheStore(ctx context.Context, logger *slog.Logger, fingerprint string, id registry.BackendID, result *backend.Result) {
	entry := &cache.Entry{
		Text:       result.Text,
		Backend:    id,
		TokensUsed: result.TokensUsed,
		Timestamp:  time.Now().Unix(),
	}
	if err := cache.SetEntry(ctx, c.cache, fingerprint, entry, c.cfg.CacheTTL); err != nil {
		// A failed write costs a future hit, nothing else.
		logger.Warn("cache store failed", "error", err)
	}
}

func effectiveTemperature(cfg registry.BackendConfig, req *GenerationRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return cfg.Temperature
}

func effectiveMaxTokens(cfg registry.BackendConfig, req *GenerationRequest) int {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return cfg.MaxTokens
}
