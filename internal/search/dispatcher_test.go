package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/speedsearch/internal/ratelimit"
	"github.com/serroba/speedsearch/internal/search"
	"github.com/serroba/speedsearch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errMock = errors.New("mock error")

type mockLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) (ratelimit.Decision, error) {
	m.keys = append(m.keys, key)

	if m.err != nil {
		return ratelimit.Decision{}, m.err
	}

	return ratelimit.Decision{Allowed: m.allowed, Limit: 200, Remaining: 199}, nil
}

type mockIndex struct {
	results []string
	err     error
	panics  bool
	queries []string
}

func (m *mockIndex) PrefixSearch(_ context.Context, query string) ([]string, error) {
	m.queries = append(m.queries, query)

	if m.panics {
		panic("boom")
	}

	return m.results, m.err
}

func newScenarioIndex(t *testing.T) *store.MemoryTermIndex {
	t.Helper()

	set := search.NewTermSet()
	for _, word := range []string{"cat", "catalog", "caterpillar", "dog"} {
		set.Add(word)
	}

	index := store.NewMemoryTermIndex()
	require.NoError(t, index.Load(context.Background(), set.Entries()))

	return index
}

func newDispatcher(limiter ratelimit.Limiter, redis, postgres search.Index) *search.Dispatcher {
	return search.NewDispatcher(limiter, map[search.Engine]search.Index{
		search.EngineRedis:    redis,
		search.EnginePostgres: postgres,
	}, search.EngineRedis, zap.NewNop())
}

func TestDispatcher_Search(t *testing.T) {
	t.Run("returns complete terms sharing the prefix", func(t *testing.T) {
		index := newScenarioIndex(t)
		d := newDispatcher(&mockLimiter{allowed: true}, index, index)

		res, err := d.Search(context.Background(), search.Request{Client: "1.2.3.4", Query: " cat ", Engine: "redis"})

		require.NoError(t, err)
		assert.Equal(t, []string{"CAT", "CATALOG", "CATERPILLAR"}, res.Terms)
		assert.NotContains(t, res.Terms, "DOG")
		assert.Equal(t, search.EngineRedis, res.Engine)
		assert.Equal(t, "CAT", res.Query)
		assert.GreaterOrEqual(t, res.Duration, time.Duration(0))
	})

	t.Run("empty result is a success", func(t *testing.T) {
		index := newScenarioIndex(t)
		d := newDispatcher(&mockLimiter{allowed: true}, index, index)

		res, err := d.Search(context.Background(), search.Request{Query: "zebra"})

		require.NoError(t, err)
		assert.NotNil(t, res.Terms)
		assert.Empty(t, res.Terms)
	})

	t.Run("nil backend result becomes empty slice", func(t *testing.T) {
		index := &mockIndex{}
		d := newDispatcher(&mockLimiter{allowed: true}, index, index)

		res, err := d.Search(context.Background(), search.Request{Query: "cat"})

		require.NoError(t, err)
		assert.Equal(t, []string{}, res.Terms)
	})

	t.Run("defaults to the configured engine", func(t *testing.T) {
		redis := &mockIndex{results: []string{"CAT"}}
		postgres := &mockIndex{}
		d := newDispatcher(&mockLimiter{allowed: true}, redis, postgres)

		res, err := d.Search(context.Background(), search.Request{Query: "cat", Engine: "  "})

		require.NoError(t, err)
		assert.Equal(t, search.EngineRedis, res.Engine)
		assert.Len(t, redis.queries, 1)
		assert.Empty(t, postgres.queries)
	})

	t.Run("routes case-insensitively", func(t *testing.T) {
		redis := &mockIndex{}
		postgres := &mockIndex{results: []string{"CAT"}}
		d := newDispatcher(&mockLimiter{allowed: true}, redis, postgres)

		res, err := d.Search(context.Background(), search.Request{Query: "cat", Engine: "PostgreSQL"})

		require.NoError(t, err)
		assert.Equal(t, search.EnginePostgres, res.Engine)
		assert.Equal(t, []string{"CAT"}, postgres.queries)
		assert.Empty(t, redis.queries)
	})

	t.Run("uses anonymous identity when client is unknown", func(t *testing.T) {
		limiter := &mockLimiter{allowed: true}
		d := newDispatcher(limiter, &mockIndex{}, &mockIndex{})

		_, err := d.Search(context.Background(), search.Request{Query: "cat"})

		require.NoError(t, err)
		assert.Equal(t, []string{search.AnonymousClient}, limiter.keys)
	})
}

func TestDispatcher_Search_Errors(t *testing.T) {
	tests := []struct {
		name      string
		limiter   *mockLimiter
		index     *mockIndex
		req       search.Request
		wantErr   error
		wantQuery bool
	}{
		{
			name:    "empty query is a validation error",
			limiter: &mockLimiter{allowed: true},
			index:   &mockIndex{},
			req:     search.Request{Query: ""},
			wantErr: search.ErrEmptyQuery,
		},
		{
			name:    "whitespace-only query is a validation error",
			limiter: &mockLimiter{allowed: true},
			index:   &mockIndex{},
			req:     search.Request{Query: " \t "},
			wantErr: search.ErrEmptyQuery,
		},
		{
			name:    "unknown engine is a validation error",
			limiter: &mockLimiter{allowed: true},
			index:   &mockIndex{},
			req:     search.Request{Query: "cat", Engine: "mongodb"},
			wantErr: search.ErrUnknownEngine,
		},
		{
			name:    "rejected client never reaches validation",
			limiter: &mockLimiter{allowed: false},
			index:   &mockIndex{},
			req:     search.Request{Query: "", Engine: "mongodb"},
			wantErr: search.ErrRateLimited,
		},
		{
			name:    "limiter failure is a backend error",
			limiter: &mockLimiter{err: errMock},
			index:   &mockIndex{},
			req:     search.Request{Query: "cat"},
			wantErr: search.ErrBackend,
		},
		{
			name:      "index failure is a backend error",
			limiter:   &mockLimiter{allowed: true},
			index:     &mockIndex{err: errMock},
			req:       search.Request{Query: "cat"},
			wantErr:   search.ErrBackend,
			wantQuery: true,
		},
		{
			name:      "index panic is a backend error",
			limiter:   &mockLimiter{allowed: true},
			index:     &mockIndex{panics: true},
			req:       search.Request{Query: "cat"},
			wantErr:   search.ErrBackend,
			wantQuery: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(tt.limiter, tt.index, tt.index)

			res, err := d.Search(context.Background(), tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, res.Terms)
			assert.NotErrorIs(t, err, errMock, "backend detail must not leak")

			if tt.wantQuery {
				assert.Len(t, tt.index.queries, 1)
			} else {
				assert.Empty(t, tt.index.queries, "backend must not be called")
			}
		})
	}
}

func TestDispatcher_Search_RateLimit(t *testing.T) {
	t.Run("201st request in the window is rejected", func(t *testing.T) {
		start := time.Unix(0, 0).Add(1000 * 50 * time.Second)
		limiter := ratelimit.NewSlidingWindowLimiter(
			store.NewRateLimitMemoryStore(), 200, 50*time.Second,
			ratelimit.WithClock(func() time.Time { return start }),
		)
		index := newScenarioIndex(t)
		d := newDispatcher(limiter, index, index)

		for i := range 200 {
			_, err := d.Search(context.Background(), search.Request{Client: "10.0.0.1", Query: "cat"})
			require.NoError(t, err, "request %d", i+1)
		}

		res, err := d.Search(context.Background(), search.Request{Client: "10.0.0.1", Query: "cat"})

		require.ErrorIs(t, err, search.ErrRateLimited)
		assert.False(t, res.RateLimit.Allowed)

		_, err = d.Search(context.Background(), search.Request{Client: "10.0.0.1", Query: ""})
		require.ErrorIs(t, err, search.ErrRateLimited, "rejection wins over validation")

		_, err = d.Search(context.Background(), search.Request{Client: "10.0.0.2", Query: "cat"})
		require.NoError(t, err, "other clients keep their budget")
	})
}
