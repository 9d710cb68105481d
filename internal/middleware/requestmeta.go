package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/speedsearch/internal/handlers"
	"github.com/serroba/speedsearch/internal/search"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestMeta is a middleware that adds client identity and a request id to
// the request context. An inbound X-Request-ID is kept; otherwise newID
// generates one. The id is echoed on the response.
func RequestMeta(newID func() string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := strings.TrimSpace(ctx.Header(HeaderRequestID))
		if requestID == "" {
			requestID = newID()
		}

		meta := handlers.RequestMeta{
			Client:    ClientIdentity(ctx),
			RequestID: requestID,
			UserAgent: ctx.Header("User-Agent"),
		}

		ctx.SetHeader(HeaderRequestID, requestID)

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

// ClientIdentity returns the first X-Forwarded-For entry, else X-Real-IP,
// else search.AnonymousClient.
func ClientIdentity(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(ctx.Header("X-Real-IP")); xri != "" {
		return xri
	}

	return search.AnonymousClient
}
