package providers

import (
	"context"

	"github.com/zatekoja/sewa/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DomainEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelBookings carries booking lifecycle events
	EventChannelBookings = "bookings:events"

	// EventChannelListings carries listing changes
	EventChannelListings = "listings:events"

	// EventChannelProviders carries provider rescoring
	EventChannelProviders = "providers:events"

	// EventChannelUserPrefix is the prefix for user-specific channels
	EventChannelUserPrefix = "user:"
)

// GetUserChannel returns the channel name for a specific user
func GetUserChannel(userID string) string {
	return EventChannelUserPrefix + userID
}
