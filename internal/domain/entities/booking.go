package entities

import (
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses that block a provider slot and a
// second booking between the same user and provider.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusScheduled,
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusScheduled, BookingStatusCancelled},
	BookingStatusScheduled: {BookingStatusCompleted},
}

// IsActive reports whether the status blocks conflicting bookings
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveBookingStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusScheduled,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a customer's reservation of a provider slot
type Booking struct {
	ID             string        `json:"id" db:"id"`
	UserID         string        `json:"user_id" db:"user_id"`
	ProviderID     string        `json:"provider_id" db:"provider_id"`
	ListingID      string        `json:"listing_id" db:"listing_id"`
	Category       string        `json:"category" db:"category"`
	Date           string        `json:"date" db:"booking_date"`
	Time           string        `json:"time" db:"booking_time"`
	Status         BookingStatus `json:"status" db:"status"`
	OriginLocality *string       `json:"origin_locality,omitempty" db:"origin_locality"`
	OriginLocation *Location     `json:"origin_location,omitempty" db:"-"`
	Notes          string        `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// ConflictKind names why a booking request was rejected
type ConflictKind string

const (
	ConflictUserProviderDuplicate ConflictKind = "user_provider_duplicate"
	ConflictSlotTaken             ConflictKind = "slot_taken"
)

// BookingConflict is the structured outcome of a rejected booking request.
// It is a normal result, not an error.
type BookingConflict struct {
	Kind            ConflictKind     `json:"conflict_kind"`
	ExistingBooking *Booking         `json:"existing_booking"`
	Alternatives    []MatchCandidate `json:"alternatives"`
}
