// Package metrics exposes Prometheus collectors for the relay core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "llmrelay"

// LatencyBuckets defines histogram buckets for generation latency in
// seconds. LLM calls routinely run multiple seconds, so the tail is
// long.
var LatencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.0, 3.0, 5.0, 7.5, 10.0,
	15.0, 20.0, 30.0, 60.0, 120.0,
}

var (
	// GenerationRequests counts generation calls by serving backend and
	// outcome ("success", "error").
	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total generation requests by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	// GenerationLatency tracks end-to-end generation latency per backend.
	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "End-to-end generation latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"backend"},
	)

	// CacheLookups counts cache lookups by result ("hit", "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"result"},
	)

	// Fallbacks counts candidate advances by the backend that failed.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Fallback advances by failed backend",
		},
		[]string{"backend"},
	)

	// LimiterDenials counts requests refused by the throughput limiter.
	LimiterDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limiter_denials_total",
			Help:      "Requests denied by the per-backend throughput limiter",
		},
		[]string{"backend"},
	)

	// TokensConsumed counts tokens consumed per backend.
	TokensConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_consumed_total",
			Help:      "Tokens consumed per backend",
		},
		[]string{"backend"},
	)
)
