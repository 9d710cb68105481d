package store

import (
	"context"

	"github.com/serroba/speedsearch/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveSearchPerformed(_ context.Context, event *analytics.SearchPerformedEvent) error {
	n.logger.Info("search event received",
		zap.String("requestId", event.RequestID),
		zap.String("client", event.Client),
		zap.String("query", event.Query),
		zap.String("engine", event.Engine),
		zap.String("outcome", string(event.Outcome)),
		zap.Int("results", event.Results),
		zap.Float64("durationMs", event.DurationMs),
		zap.Time("at", event.At),
	)

	return nil
}
