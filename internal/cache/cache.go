// Package cache stores successful generation responses keyed by a
// deterministic request fingerprint. Entries are structured and
// schema-validated on the way in and out; the cache never holds
// anything executable.
//
// The cache does not de-duplicate concurrent in-flight requests: two
// callers racing on the same fingerprint both miss and both call the
// backend. The later write wins.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/dealscout/llmrelay/internal/registry"
)

// Store is the byte-level cache contract. Get returns nil, nil on miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Stats() Stats
	Close() error
}

// Entry is the structured value stored per fingerprint.
type Entry struct {
	Text       string             `json:"text"`
	Backend    registry.BackendID `json:"backend"`
	TokensUsed int                `json:"tokens_used"`
	Timestamp  int64              `json:"timestamp"`
}

// Stats holds store counters for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// GetEntry fetches and decodes the entry for key. A miss, an expired
// key, and an undecodable value all report absent.
func GetEntry(ctx context.Context, store Store, key string) (*Entry, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry, treat as miss.
		return nil, nil
	}
	return &entry, nil
}

// SetEntry encodes and stores entry under key with the given TTL,
// overwriting any earlier value for the same key.
func SetEntry(ctx context.Context, store Store, key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data, ttl)
}
