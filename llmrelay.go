// Package llmrelay is the request-resilience core of the deal-discovery
// backend. Every call to a language-model backend passes through it: it
// picks the candidate backend sequence, enforces per-backend throughput
// ceilings against a shared Redis store, caches successful responses by
// request fingerprint, falls back to the secondary backend on failure,
// and tracks token consumption.
//
// Basic usage:
//
//	client, err := llmrelay.New(
//	    llmrelay.WithBackend(openai.New(cfg, apiKey)),
//	    llmrelay.WithBackend(anthropic.New(cfg2, apiKey2)),
//	    llmrelay.WithCache(store, time.Hour),
//	    llmrelay.WithLimiter(lim),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Generate(ctx, &llmrelay.GenerationRequest{
//	    Prompt: "Summarize this deal listing.",
//	})
package llmrelay

import (
	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/cache"
	"github.com/dealscout/llmrelay/internal/config"
	"github.com/dealscout/llmrelay/internal/registry"
	"github.com/dealscout/llmrelay/internal/usage"
	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

// Version is the current version of llmrelay.
const Version = "1.0.0"

// Re-export registry types.
type (
	// BackendID identifies one language-model backend.
	BackendID = registry.BackendID

	// BackendConfig is the immutable per-backend connection config.
	BackendConfig = registry.BackendConfig

	// Registry is the read-only backend configuration table.
	Registry = registry.Registry
)

// Re-export backend identifiers.
const (
	// BackendOpenAI is the production primary backend.
	BackendOpenAI = registry.BackendOpenAI

	// BackendAnthropic is the production secondary backend.
	BackendAnthropic = registry.BackendAnthropic

	// BackendDryRun is the development backend.
	BackendDryRun = registry.BackendDryRun
)

// Re-export adapter types.
type (
	// Backend is the adapter contract each backend variant implements.
	Backend = backend.Backend

	// BackendRequest is the neutral prompt shape handed to adapters.
	BackendRequest = backend.Request

	// BackendResult is the neutral response shape adapters produce.
	BackendResult = backend.Result
)

// Re-export cache types.
type (
	// CacheStore is the byte-level cache contract.
	CacheStore = cache.Store

	// CacheEntry is the structured value stored per fingerprint.
	CacheEntry = cache.Entry

	// CacheStats holds cache store counters.
	CacheStats = cache.Stats
)

// Re-export usage types.
type (
	// UsageSummary is a read-only snapshot of the token ledger.
	UsageSummary = usage.Summary
)

// Re-export mode constants.
type (
	// Mode selects the candidate-sequence behavior.
	Mode = config.Mode
)

const (
	// ModeProduction routes to real backends with fallback.
	ModeProduction = config.ModeProduction

	// ModeDevelopment routes to the dry-run backend with no fallback.
	ModeDevelopment = config.ModeDevelopment
)

// Re-export error types.
type (
	// UnknownBackendError reports a backend id missing from the registry.
	UnknownBackendError = relayerrors.UnknownBackendError

	// BackendError wraps a single backend's normalized failure.
	BackendError = relayerrors.BackendError

	// Attempt records one failed candidate during a generation call.
	Attempt = relayerrors.Attempt

	// AllBackendsFailedError reports exhaustion of the candidate sequence.
	AllBackendsFailedError = relayerrors.AllBackendsFailedError
)
