package repositories

import (
	"context"

	"github.com/zatekoja/sewa/internal/domain/entities"
)

// ProviderRepository defines the interface for provider profile data operations
type ProviderRepository interface {
	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.ProviderProfile, error)

	// GetByIDs retrieves providers by ID, skipping unknown IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.ProviderProfile, error)

	// FindNearby retrieves providers with a known location within the query radius
	FindNearby(ctx context.Context, query NearbyProviderQuery) ([]*entities.ProviderProfile, error)

	// ListApproved retrieves approved providers regardless of location
	ListApproved(ctx context.Context, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error)

	// ListApprovedInCategory retrieves approved providers with at least one
	// approved listing in category, regardless of location
	ListApprovedInCategory(ctx context.Context, category string, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error)

	// UpdateEvaluation stores the CV evaluator's output
	UpdateEvaluation(ctx context.Context, id string, cvScore float64, experienceYears *int) error

	// UpdateLocation stores a new location and primary locality
	UpdateLocation(ctx context.Context, id string, location entities.Location, localitySlug *string) error

	// IncrementBookingLoad adds one to the provider's booking counter and returns the new value
	IncrementBookingLoad(ctx context.Context, id string) (int, error)

	// UpdateSmartScore stores a recomputed smart score
	UpdateSmartScore(ctx context.Context, id string, score float64) error
}

// NearbyProviderQuery describes a radius search around a point
type NearbyProviderQuery struct {
	Center       entities.Location
	RadiusKm     float64
	ApprovedOnly bool
	ExcludeIDs   []string
	Limit        int
}
