package services

import (
	"context"
	"strings"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

// ListingUpdate carries the editable listing fields. Nil fields are left unchanged.
type ListingUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *float64
	Tags        []string
	Approved    *bool
	Pinned      *bool
}

// ListingService reads and edits service listings
type ListingService struct {
	repo     repositories.ListingRepository
	eventBus providers.EventBus
}

// NewListingService creates a new listing service
func NewListingService(repo repositories.ListingRepository, eventBus providers.EventBus) *ListingService {
	return &ListingService{repo: repo, eventBus: eventBus}
}

// GetListing retrieves a listing by ID
func (s *ListingService) GetListing(ctx context.Context, id string) (*entities.ServiceListing, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateListing applies update and announces the change so cached
// recommendations are dropped
func (s *ListingService) UpdateListing(ctx context.Context, id string, update ListingUpdate) (*entities.ServiceListing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name must not be empty")
		}
		listing.Name = name
	}
	if update.Description != nil {
		listing.Description = strings.TrimSpace(*update.Description)
	}
	if update.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*update.Category))
		if category == "" {
			return nil, apperrors.NewValidationError("category must not be empty")
		}
		listing.Category = category
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, apperrors.NewValidationError("price must not be negative")
		}
		listing.Price = *update.Price
	}
	if update.Tags != nil {
		listing.Tags = update.Tags
	}
	if update.Approved != nil {
		listing.Approved = *update.Approved
	}
	if update.Pinned != nil {
		listing.Pinned = *update.Pinned
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}

	publish(ctx, s.eventBus, providers.EventChannelListings,
		entities.NewDomainEvent(entities.EventTypeListingUpdated, listing.ID, "", map[string]interface{}{
			"provider_id": listing.ProviderID,
			"category":    listing.Category,
		}))

	observability.LoggerFromContext(ctx).Info().
		Str("listing_id", listing.ID).
		Bool("approved", listing.Approved).
		Msg("listing updated")

	return listing, nil
}
