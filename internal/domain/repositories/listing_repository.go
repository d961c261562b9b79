package repositories

import (
	"context"

	"github.com/zatekoja/sewa/internal/domain/entities"
)

// ListingRepository defines the interface for service listing data operations
type ListingRepository interface {
	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id string) (*entities.ServiceListing, error)

	// GetByIDs retrieves listings by ID, skipping unknown IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.ServiceListing, error)

	// List retrieves listings matching filter
	List(ctx context.Context, filter ListingFilter) ([]*entities.ServiceListing, error)

	// ListByProviders retrieves the approved listings of the given providers in a category
	ListByProviders(ctx context.Context, providerIDs []string, category string) ([]*entities.ServiceListing, error)

	// IncrementBookingCount adds one to the listing's booking counter and returns the new value
	IncrementBookingCount(ctx context.Context, id string) (int, error)

	// Update updates a listing
	Update(ctx context.Context, listing *entities.ServiceListing) error
}

// ListingFilter defines filters for listing queries
type ListingFilter struct {
	Category     string
	ApprovedOnly bool
	// AnyTokens keeps listings whose name, description, category, tags or
	// provider skill tags contain at least one token
	AnyTokens []string
	Limit     int
	Offset    int
}
