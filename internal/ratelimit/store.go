package ratelimit

import (
	"context"
	"time"
)

// Buckets identifies the two adjacent fixed windows an admission is estimated from.
type Buckets struct {
	// Current is the counter key of the bucket containing now.
	Current string
	// Previous is the counter key of the bucket immediately before it.
	Previous string
	// PreviousWeight is the share of the previous bucket still inside the trailing window.
	PreviousWeight float64
	// Limit is the admission budget per window.
	Limit int64
	// TTL is how long a bucket counter must outlive its first increment.
	TTL time.Duration
}

// Counts is the store's view of both buckets after an admission attempt.
type Counts struct {
	Current  int64
	Previous int64
	Allowed  bool
}

// Store defines the interface for rate limit counter storage.
type Store interface {
	// Admit atomically evaluates Previous*PreviousWeight + Current against Limit and
	// increments Current only when the estimate is below Limit. Rejected attempts
	// leave both counters untouched.
	Admit(ctx context.Context, buckets Buckets) (Counts, error)
}
