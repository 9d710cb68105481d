package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/speedsearch/internal/ratelimit"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
// It is only shared within one process.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	counters map[string]counter
	now      func() time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		counters: make(map[string]counter),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Admit(_ context.Context, b ratelimit.Buckets) (ratelimit.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	current := s.get(b.Current, now)
	previous := s.get(b.Previous, now)

	if float64(previous)*b.PreviousWeight+float64(current) >= float64(b.Limit) {
		return ratelimit.Counts{Current: current, Previous: previous, Allowed: false}, nil
	}

	current++
	s.counters[b.Current] = counter{count: current, expiresAt: now.Add(b.TTL)}

	return ratelimit.Counts{Current: current, Previous: previous, Allowed: true}, nil
}

// get returns the live count for key, pruning it if expired.
func (s *RateLimitMemoryStore) get(key string, now time.Time) int64 {
	c, ok := s.counters[key]
	if !ok {
		return 0
	}

	if !now.Before(c.expiresAt) {
		delete(s.counters, key)

		return 0
	}

	return c.count
}
