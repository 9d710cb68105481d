package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/speedsearch/internal/ratelimit"
	"go.uber.org/zap"
)

// Request is a single prefix query as received from a client.
type Request struct {
	Client string
	Query  string
	Engine string
}

// Result is the outcome of a dispatched query. RateLimit is populated whenever
// the limiter answered, including on rejection.
type Result struct {
	Client    string
	Query     string
	Engine    Engine
	Terms     []string
	Duration  time.Duration
	RateLimit ratelimit.Decision
}

// Dispatcher admits, validates and routes prefix queries to a term index.
type Dispatcher struct {
	limiter       ratelimit.Limiter
	indexes       map[Engine]Index
	defaultEngine Engine
	logger        *zap.Logger
	now           func() time.Time
}

// NewDispatcher creates a dispatcher over the given indexes. An empty engine
// selector resolves to defaultEngine.
func NewDispatcher(
	limiter ratelimit.Limiter,
	indexes map[Engine]Index,
	defaultEngine Engine,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		limiter:       limiter,
		indexes:       indexes,
		defaultEngine: defaultEngine,
		logger:        logger,
		now:           time.Now,
	}
}

// Search runs the query pipeline: rate limit, then validation, then the
// backend call. Errors are ErrRateLimited, ErrValidation descendants or
// ErrBackend; backend details are logged, never returned.
func (d *Dispatcher) Search(ctx context.Context, req Request) (Result, error) {
	res := Result{Client: req.Client}
	if res.Client == "" {
		res.Client = AnonymousClient
	}

	decision, err := d.limiter.Allow(ctx, res.Client)
	if err != nil {
		d.logger.Error("rate limit check failed",
			zap.String("client", res.Client),
			zap.Error(err),
		)

		return res, ErrBackend
	}

	res.RateLimit = decision

	if !decision.Allowed {
		d.logger.Warn("rate limit exceeded",
			zap.String("client", res.Client),
			zap.Int64("limit", decision.Limit),
			zap.Time("reset", decision.Reset),
		)

		return res, ErrRateLimited
	}

	res.Query = Normalize(req.Query)
	if res.Query == "" {
		return res, ErrEmptyQuery
	}

	engine, index, err := d.resolve(req.Engine)
	if err != nil {
		return res, err
	}

	res.Engine = engine

	start := d.now()
	terms, err := d.run(ctx, index, res.Query)
	res.Duration = d.now().Sub(start)

	if err != nil {
		d.logger.Error("prefix search failed",
			zap.String("engine", string(engine)),
			zap.String("query", res.Query),
			zap.Duration("duration", res.Duration),
			zap.Error(err),
		)

		return res, ErrBackend
	}

	if terms == nil {
		terms = []string{}
	}

	res.Terms = terms

	d.logger.Debug("prefix search served",
		zap.String("engine", string(engine)),
		zap.String("query", res.Query),
		zap.Int("results", len(terms)),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}

func (d *Dispatcher) resolve(selector string) (Engine, Index, error) {
	engine := d.defaultEngine

	if strings.TrimSpace(selector) != "" {
		parsed, err := ParseEngine(selector)
		if err != nil {
			return "", nil, err
		}

		engine = parsed
	}

	index, ok := d.indexes[engine]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q is not configured", ErrUnknownEngine, engine)
	}

	return engine, index, nil
}

// run calls the index, turning a panic into an error so it cannot escape.
func (d *Dispatcher) run(ctx context.Context, index Index, query string) (terms []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("index panicked: %v", r)
		}
	}()

	return index.PrefixSearch(ctx, query)
}

// IsValidation reports whether err was caused by client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
