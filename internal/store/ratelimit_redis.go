package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/speedsearch/internal/ratelimit"
)

// admitScript checks and increments the two-bucket estimate in one step.
// KEYS[1]: current bucket, KEYS[2]: previous bucket
// ARGV[1]: previous weight, ARGV[2]: limit, ARGV[3]: ttl in milliseconds.
var admitScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	local previous = tonumber(redis.call("GET", KEYS[2]) or "0")
	local weight = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])

	if previous * weight + current >= limit then
		return {0, current, previous}
	end

	current = redis.call("INCR", KEYS[1])
	redis.call("PEXPIRE", KEYS[1], ARGV[3])

	return {1, current, previous}
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store shared by
// every service instance.
type RateLimitRedisStore struct {
	client redis.UniversalClient
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client redis.UniversalClient) *RateLimitRedisStore {
	return &RateLimitRedisStore{client: client}
}

func (s *RateLimitRedisStore) Admit(ctx context.Context, b ratelimit.Buckets) (ratelimit.Counts, error) {
	result, err := admitScript.Run(ctx, s.client,
		[]string{b.Current, b.Previous},
		b.PreviousWeight,
		b.Limit,
		b.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Counts{}, fmt.Errorf("admit %s: %w", b.Current, err)
	}

	if len(result) != 3 {
		return ratelimit.Counts{}, fmt.Errorf("admit %s: unexpected reply %v", b.Current, result)
	}

	return ratelimit.Counts{
		Allowed:  result[0] == 1,
		Current:  result[1],
		Previous: result[2],
	}, nil
}
