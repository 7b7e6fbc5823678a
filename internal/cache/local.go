package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalStore implements Store in process memory. It backs development
// mode and tests; entries are not shared across instances.
type LocalStore struct {
	inner      *gocache.Cache
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewLocalStore creates an in-memory store with the given default TTL.
func NewLocalStore(defaultTTL time.Duration) *LocalStore {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &LocalStore{
		inner:      gocache.New(defaultTTL, 10*time.Minute),
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a value. A missing or expired key returns nil, nil.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.inner.Get(key)
	if !ok {
		s.misses.Add(1)
		return nil, nil
	}
	data, ok := val.([]byte)
	if !ok {
		s.misses.Add(1)
		return nil, nil
	}
	s.hits.Add(1)
	return data, nil
}

// Set stores a value with the given TTL.
func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.inner.Set(key, value, ttl)
	s.sets.Add(1)
	return nil
}

// Stats returns the store counters.
func (s *LocalStore) Stats() Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    s.sets.Load(),
		HitRate: hitRate,
	}
}

// Close flushes the store.
func (s *LocalStore) Close() error {
	s.inner.Flush()
	return nil
}
