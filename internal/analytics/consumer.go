package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/speedsearch/internal/messaging"
	"go.uber.org/zap"
)

// MetadataRequestID links an event to the HTTP request that produced it.
const MetadataRequestID = "request_id"

// NewSearchConsumer returns a consumer that persists search events to store.
func NewSearchConsumer(subscriber message.Subscriber, store Store, logger *zap.Logger) *messaging.Consumer[SearchPerformedEvent] {
	return messaging.NewConsumer(subscriber, TopicSearchPerformed, SaveSearchPerformed(store), logger)
}

// SaveSearchPerformed adapts store to a messaging handler. The request id
// from metadata fills in events published without one.
func SaveSearchPerformed(store Store) messaging.Handler[SearchPerformedEvent] {
	return func(ctx context.Context, event *SearchPerformedEvent, metadata message.Metadata) error {
		if event.RequestID == "" {
			event.RequestID = metadata.Get(MetadataRequestID)
		}

		if err := store.SaveSearchPerformed(ctx, event); err != nil {
			return fmt.Errorf("save search event %s: %w", event.RequestID, err)
		}

		return nil
	}
}
