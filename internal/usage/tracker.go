// Package usage accumulates tokens consumed per backend. The ledger is
// process-local and best-effort: it is never decremented, carries no
// persistence guarantee, and must not be treated as a global truth
// source across replicated instances.
package usage

import (
	"sync"

	"github.com/dealscout/llmrelay/internal/metrics"
	"github.com/dealscout/llmrelay/internal/registry"
)

// Summary is a read-only snapshot of the ledger.
type Summary struct {
	Total     int64                        `json:"total"`
	ByBackend map[registry.BackendID]int64 `json:"by_backend"`
}

// Tracker records tokens consumed per backend. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	total     int64
	byBackend map[registry.BackendID]int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byBackend: make(map[registry.BackendID]int64),
	}
}

// Record adds tokens to the running total for backend. Non-positive
// counts are ignored.
func (t *Tracker) Record(backend registry.BackendID, tokens int) {
	if tokens <= 0 {
		return
	}

	t.mu.Lock()
	t.total += int64(tokens)
	t.byBackend[backend] += int64(tokens)
	t.mu.Unlock()

	metrics.TokensConsumed.WithLabelValues(string(backend)).Add(float64(tokens))
}

// Summary returns a snapshot of the current totals. The returned map is
// a copy; mutating it does not affect the tracker.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byBackend := make(map[registry.BackendID]int64, len(t.byBackend))
	for id, tokens := range t.byBackend {
		byBackend[id] = tokens
	}
	return Summary{
		Total:     t.total,
		ByBackend: byBackend,
	}
}
