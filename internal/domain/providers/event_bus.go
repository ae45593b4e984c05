package providers

import (
	"context"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to feedback events
type EventBus interface {
	// Publish publishes an event to all subscribers of the channel
	Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error

	// Subscribe returns a channel of events; it is closed when ctx ends or the bus closes
	Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelFeedbackCreated carries one event per record appended to the store
const EventChannelFeedbackCreated = "feedback:created"
