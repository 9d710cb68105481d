package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	// Reset is when the client may next be admitted if rejected, or when the
	// current bucket ends if admitted.
	Reset time.Time
}

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a request from the given key should be allowed.
	Allow(ctx context.Context, key string) (Decision, error)
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithFailOpen admits requests when the store is unreachable instead of
// returning the store error.
func WithFailOpen(failOpen bool) Option {
	return func(l *SlidingWindowLimiter) {
		l.failOpen = failOpen
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		l.now = now
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *SlidingWindowLimiter) {
		l.logger = logger
	}
}

// SlidingWindowLimiter approximates a rolling window with two fixed buckets:
// the estimate is current + previous * (1 - elapsed fraction of current bucket).
type SlidingWindowLimiter struct {
	store    Store
	limit    int64
	window   time.Duration
	failOpen bool
	now      func() time.Time
	logger   *zap.Logger
	blocked  *blocklist
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration, opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		store:   store,
		limit:   limit,
		window:  window,
		now:     time.Now,
		logger:  zap.NewNop(),
		blocked: newBlocklist(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	if until, ok := l.blocked.blocked(key, now); ok {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, Reset: until}, nil
	}

	bucket := now.UnixNano() / int64(l.window)
	start := time.Unix(0, bucket*int64(l.window))
	end := start.Add(l.window)
	weight := 1 - float64(now.Sub(start))/float64(l.window)

	counts, err := l.store.Admit(ctx, Buckets{
		Current:        bucketKey(key, bucket),
		Previous:       bucketKey(key, bucket-1),
		PreviousWeight: weight,
		Limit:          l.limit,
		TTL:            2 * l.window,
	})
	if err != nil {
		if l.failOpen {
			l.logger.Warn("rate limit store unavailable, admitting request",
				zap.String("client", key),
				zap.Error(err),
			)

			return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, Reset: end}, nil
		}

		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	estimate := float64(counts.Previous)*weight + float64(counts.Current)
	remaining := max(l.limit-int64(math.Ceil(estimate)), 0)

	if !counts.Allowed {
		until := l.retryAt(start, counts)
		l.blocked.block(key, until, now)

		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, Reset: until}, nil
	}

	return Decision{Allowed: true, Limit: l.limit, Remaining: remaining, Reset: end}, nil
}

// retryAt returns the earliest instant inside the current bucket at which the
// decaying previous-bucket share lets the estimate drop below the limit, or the
// end of the bucket when that never happens.
func (l *SlidingWindowLimiter) retryAt(start time.Time, counts Counts) time.Time {
	end := start.Add(l.window)
	if counts.Previous == 0 || counts.Current >= l.limit {
		return end
	}

	fraction := 1 - float64(l.limit-counts.Current)/float64(counts.Previous)
	if fraction <= 0 {
		return start
	}

	return start.Add(time.Duration(fraction * float64(l.window)))
}

// bucketKey keeps both buckets of one client in the same cluster hash slot.
func bucketKey(client string, bucket int64) string {
	return fmt.Sprintf("ratelimit:{%s}:%d", client, bucket)
}
