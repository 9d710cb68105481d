package handlers

import (
	"context"

	"github.com/serroba/speedsearch/internal/analytics"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata used for rate limiting and analytics.
type RequestMeta struct {
	Client    string
	RequestID string
	UserAgent string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// RequestIDMetadata tags published events with the request id.
func RequestIDMetadata(ctx context.Context) (key, value string) {
	return analytics.MetadataRequestID, RequestMetaFromContext(ctx).RequestID
}
