package repositories

import (
	"context"

	"github.com/zatekoja/sewa/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create inserts a booking. A concurrent active booking of the same
	// provider slot surfaces as a conflict error.
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// UpdateStatus moves a booking to a new status
	UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error

	// FindActiveByUserAndProvider returns the user's active booking with the provider, or nil
	FindActiveByUserAndProvider(ctx context.Context, userID, providerID string) (*entities.Booking, error)

	// FindActiveBySlot returns the active booking occupying a provider slot, or nil
	FindActiveBySlot(ctx context.Context, providerID, date, time string) (*entities.Booking, error)

	// ListBusyProviderIDs returns providers with an active booking at date and time
	ListBusyProviderIDs(ctx context.Context, date, time string) ([]string, error)

	// ListByUser retrieves a user's most recent bookings first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Booking, error)
}
