package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/speedsearch/internal/search"
)

const (
	termsKey       = "terms"
	loadBatchSize  = 1000
	lexInclusive   = "["
	lexPositiveInf = "+"
)

// loadScript stores each term as either a complete member or a prefix node,
// never both. A complete member replaces the node; a node is skipped when the
// complete member already exists.
// KEYS[1]: sorted set
// ARGV[1]: complete marker, then pairs of term and "1" when complete else "0".
var loadScript = redis.NewScript(`
	local marker = ARGV[1]

	for i = 2, #ARGV, 2 do
		local term = ARGV[i]

		if ARGV[i + 1] == "1" then
			redis.call("ZREM", KEYS[1], term)
			redis.call("ZADD", KEYS[1], 0, term .. marker)
		elseif not redis.call("ZSCORE", KEYS[1], term .. marker) then
			redis.call("ZADD", KEYS[1], 0, term)
		end
	end

	return 1
`)

// RedisTermIndex is a Redis sorted-set implementation of search.Index.
// Every member has score 0, so rank order is lexicographic byte order and
// complete terms carry search.CompleteMarker.
type RedisTermIndex struct {
	client redis.UniversalClient
	key    string
}

// NewRedisTermIndex creates a new Redis-backed term index.
func NewRedisTermIndex(client redis.UniversalClient) *RedisTermIndex {
	return &RedisTermIndex{
		client: client,
		key:    termsKey,
	}
}

// Load merges entries into the sorted set in pipelined script batches.
func (r *RedisTermIndex) Load(ctx context.Context, entries []search.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()

	for batch := range slices.Chunk(entries, loadBatchSize) {
		args := make([]any, 0, 1+2*len(batch))
		args = append(args, search.CompleteMarker)

		for _, e := range batch {
			complete := "0"
			if e.Complete {
				complete = "1"
			}

			args = append(args, e.Term, complete)
		}

		// EVALSHA cannot fall back to EVAL inside a pipeline.
		loadScript.Eval(ctx, pipe, []string{r.key}, args...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("load terms: %w", err)
	}

	return nil
}

// PrefixSearch reads at most MaxResults+1 members starting at the rank of the
// first member >= query and keeps the complete terms sharing the prefix.
func (r *RedisTermIndex) PrefixSearch(ctx context.Context, query string) ([]string, error) {
	members, err := r.client.ZRangeByLex(ctx, r.key, &redis.ZRangeBy{
		Min:   lexInclusive + query,
		Max:   lexPositiveInf,
		Count: search.MaxResults + 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range terms from %q: %w", query, err)
	}

	results := []string{}

	for _, member := range members {
		// Sorted order: the first non-matching member ends the prefix range.
		if !strings.HasPrefix(member, query) {
			break
		}

		if !strings.HasSuffix(member, search.CompleteMarker) {
			continue
		}

		if term := search.StripMarker(member); strings.HasPrefix(term, query) {
			results = append(results, term)
		}

		if len(results) == search.MaxResults {
			break
		}
	}

	// The marker sorts after characters such as space, so "CAT FOOD*" precedes "CAT*".
	slices.Sort(results)

	return results, nil
}
