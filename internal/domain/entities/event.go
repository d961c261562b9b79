package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a semantic change emitted for the notification transport
type EventType string

const (
	EventTypeBookingCreated       EventType = "booking.created"
	EventTypeBookingStatusChanged EventType = "booking.status_changed"
	EventTypeBookingConflict      EventType = "booking.conflict"
	EventTypeListingUpdated       EventType = "listing.updated"
	EventTypeProviderRescored     EventType = "provider.rescored"
)

// DomainEvent describes a change for a collaborator to deliver. Delivery
// guarantees belong to the transport.
type DomainEvent struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	UserID      string                 `json:"user_id,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// NewDomainEvent creates a new event stamped with the current time
func NewDomainEvent(eventType EventType, aggregateID, userID string, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}
