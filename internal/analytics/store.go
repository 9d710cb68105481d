package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveSearchPerformed(ctx context.Context, event *SearchPerformedEvent) error
}
