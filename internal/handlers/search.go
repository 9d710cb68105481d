package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/speedsearch/internal/analytics"
	"github.com/serroba/speedsearch/internal/messaging"
	"github.com/serroba/speedsearch/internal/ratelimit"
	"github.com/serroba/speedsearch/internal/search"
	"go.uber.org/zap"
)

// Searcher runs a prefix query pipeline.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// SearchHandler exposes the dispatcher over HTTP.
type SearchHandler struct {
	searcher Searcher
	publish  messaging.Publish[analytics.SearchPerformedEvent]
	logger   *zap.Logger
	now      func() time.Time
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(
	searcher Searcher,
	publish messaging.Publish[analytics.SearchPerformedEvent],
	logger *zap.Logger,
) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		publish:  publish,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *SearchHandler) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	meta := RequestMetaFromContext(ctx)

	res, err := h.searcher.Search(ctx, search.Request{
		Client: meta.Client,
		Query:  req.Query,
		Engine: req.Engine,
	})

	h.record(ctx, meta, req, res, err)

	if err != nil {
		return nil, toHTTPError(err, res.RateLimit, h.now())
	}

	resp := &SearchResponse{}
	resp.RateLimitLimit = strconv.FormatInt(res.RateLimit.Limit, 10)
	resp.RateLimitRemaining = strconv.FormatInt(res.RateLimit.Remaining, 10)
	resp.Body.Results = res.Terms
	resp.Body.Duration = milliseconds(res.Duration)

	return resp, nil
}

func (h *SearchHandler) record(
	ctx context.Context,
	meta RequestMeta,
	req *SearchRequest,
	res search.Result,
	err error,
) {
	query := res.Query
	if query == "" {
		query = search.Normalize(req.Query)
	}

	event := &analytics.SearchPerformedEvent{
		RequestID:  meta.RequestID,
		Client:     res.Client,
		Query:      query,
		Engine:     string(res.Engine),
		Results:    len(res.Terms),
		DurationMs: milliseconds(res.Duration),
		Outcome:    outcome(err),
		At:         h.now().UTC(),
	}

	if event.Engine == "" {
		event.Engine = req.Engine
	}

	if perr := h.publish(ctx, event); perr != nil {
		h.logger.Error("failed to publish search event",
			zap.String("requestId", event.RequestID),
			zap.Error(perr),
		)
	}
}

func outcome(err error) analytics.Outcome {
	switch {
	case err == nil:
		return analytics.OutcomeOK
	case errors.Is(err, search.ErrRateLimited):
		return analytics.OutcomeRateLimited
	case search.IsValidation(err):
		return analytics.OutcomeInvalid
	default:
		return analytics.OutcomeError
	}
}

// toHTTPError maps dispatcher errors to 400, 429 and 500. Backend failures
// get a generic message.
func toHTTPError(err error, decision ratelimit.Decision, now time.Time) error {
	switch {
	case errors.Is(err, search.ErrRateLimited):
		headers := http.Header{}
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		headers.Set("X-RateLimit-Remaining", "0")
		headers.Set("Retry-After", strconv.Itoa(retryAfter(decision.Reset, now)))

		return huma.ErrorWithHeaders(huma.Error429TooManyRequests("rate limit exceeded"), headers)
	case search.IsValidation(err):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("something went wrong")
	}
}

// retryAfter rounds up to whole seconds, never below one.
func retryAfter(reset, now time.Time) int {
	secs := int(math.Ceil(reset.Sub(now).Seconds()))

	return max(secs, 1)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
