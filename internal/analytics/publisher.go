package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/speedsearch/internal/messaging"
)

// NewSearchPublisher returns a publish function for search events.
func NewSearchPublisher(publisher message.Publisher, metadata ...messaging.MetadataFunc) messaging.Publish[SearchPerformedEvent] {
	return messaging.NewPublishFunc[SearchPerformedEvent](publisher, TopicSearchPerformed, metadata...)
}
