package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

// CreateBookingInput is a booking request after boundary validation
type CreateBookingInput struct {
	UserID         string
	ProviderID     string
	ListingID      string
	Category       string
	Date           string
	Time           string
	OriginLocality string
	OriginLocation *entities.Location
	Notes          string
}

// BookingResult holds either the created booking or the conflict that blocked it
type BookingResult struct {
	Booking  *entities.Booking
	Conflict *entities.BookingConflict
}

// BookingService handles booking creation, conflict detection and status changes
type BookingService struct {
	repo              repositories.BookingRepository
	listingRepo       repositories.ListingRepository
	providerRepo      repositories.ProviderRepository
	finder            *AlternativeFinder
	scores            *ProviderScoreService
	eventBus          providers.EventBus
	alternativesLimit int
	now               func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo repositories.BookingRepository,
	listingRepo repositories.ListingRepository,
	providerRepo repositories.ProviderRepository,
	finder *AlternativeFinder,
	scores *ProviderScoreService,
	eventBus providers.EventBus,
	alternativesLimit int,
) *BookingService {
	if alternativesLimit <= 0 {
		alternativesLimit = 5
	}
	return &BookingService{
		repo:              repo,
		listingRepo:       listingRepo,
		providerRepo:      providerRepo,
		finder:            finder,
		scores:            scores,
		eventBus:          eventBus,
		alternativesLimit: alternativesLimit,
		now:               time.Now,
	}
}

// CreateBooking books a provider slot. A blocked request is returned as a
// BookingResult with Conflict set, not as an error.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingResult, error) {
	logger := observability.LoggerFromContext(ctx)

	listing, err := s.listingRepo.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != in.ProviderID {
		return nil, apperrors.NewValidationError("listing is not offered by the requested provider")
	}
	if !listing.Approved {
		return nil, apperrors.NewValidationError("listing is not open for booking")
	}
	switch {
	case in.Category == "":
		in.Category = listing.Category
	case in.Category != listing.Category:
		return nil, apperrors.NewValidationError(fmt.Sprintf("listing %s is in category %q, not %q", listing.ID, listing.Category, in.Category))
	}
	if _, err := s.providerRepo.GetByID(ctx, in.ProviderID); err != nil {
		return nil, err
	}

	if conflict, err := s.detectConflict(ctx, in); err != nil {
		return nil, err
	} else if conflict != nil {
		return &BookingResult{Conflict: conflict}, nil
	}

	now := s.now().UTC()
	booking := &entities.Booking{
		ID:             uuid.New().String(),
		UserID:         in.UserID,
		ProviderID:     in.ProviderID,
		ListingID:      in.ListingID,
		Category:       in.Category,
		Date:           in.Date,
		Time:           in.Time,
		Status:         entities.BookingStatusPending,
		OriginLocation: in.OriginLocation,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.OriginLocality != "" {
		origin := in.OriginLocality
		booking.OriginLocality = &origin
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if !apperrors.IsConflict(err) {
			return nil, fmt.Errorf("failed to save booking: %w", err)
		}
		// lost the race for the slot to a concurrent request
		existing, findErr := s.repo.FindActiveBySlot(ctx, in.ProviderID, in.Date, in.Time)
		if findErr != nil {
			return nil, findErr
		}
		conflict, cErr := s.conflict(ctx, entities.ConflictSlotTaken, existing, in)
		if cErr != nil {
			return nil, cErr
		}
		return &BookingResult{Conflict: conflict}, nil
	}

	if _, err := s.listingRepo.IncrementBookingCount(ctx, listing.ID); err != nil {
		logger.Warn().Err(err).Str("listing_id", listing.ID).Msg("failed to increment listing booking count")
	}
	if s.scores != nil {
		if err := s.scores.RecordBooking(ctx, in.ProviderID); err != nil {
			logger.Warn().Err(err).Str("provider_id", in.ProviderID).Msg("failed to rescore provider after booking")
		}
	}

	event := entities.NewDomainEvent(entities.EventTypeBookingCreated, booking.ID, booking.UserID, map[string]interface{}{
		"provider_id": booking.ProviderID,
		"listing_id":  booking.ListingID,
		"category":    booking.Category,
		"date":        booking.Date,
		"time":        booking.Time,
	})
	publish(ctx, s.eventBus, providers.EventChannelBookings, event)
	publish(ctx, s.eventBus, providers.GetUserChannel(booking.UserID), event)

	logger.Info().
		Str("booking_id", booking.ID).
		Str("provider_id", booking.ProviderID).
		Str("slot", booking.Date+" "+booking.Time).
		Msg("booking created")

	return &BookingResult{Booking: booking}, nil
}

func (s *BookingService) detectConflict(ctx context.Context, in CreateBookingInput) (*entities.BookingConflict, error) {
	dup, err := s.repo.FindActiveByUserAndProvider(ctx, in.UserID, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return s.conflict(ctx, entities.ConflictUserProviderDuplicate, dup, in)
	}

	taken, err := s.repo.FindActiveBySlot(ctx, in.ProviderID, in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return s.conflict(ctx, entities.ConflictSlotTaken, taken, in)
	}
	return nil, nil
}

func (s *BookingService) conflict(ctx context.Context, kind entities.ConflictKind, existing *entities.Booking, in CreateBookingInput) (*entities.BookingConflict, error) {
	alternatives, err := s.finder.FindAlternatives(ctx, AlternativeQuery{
		Category:          in.Category,
		ExcludeProviderID: in.ProviderID,
		Date:              in.Date,
		Time:              in.Time,
		Origin:            LocationRef{Locality: in.OriginLocality, Coordinates: in.OriginLocation},
		Limit:             s.alternativesLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find alternatives: %w", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("conflict_kind", string(kind)).
		Str("provider_id", in.ProviderID).
		Int("alternatives", len(alternatives)).
		Msg("booking conflict detected")

	publish(ctx, s.eventBus, providers.GetUserChannel(in.UserID), entities.NewDomainEvent(
		entities.EventTypeBookingConflict, in.ProviderID, in.UserID,
		map[string]interface{}{"conflict_kind": string(kind), "alternatives": len(alternatives)},
	))

	return &entities.BookingConflict{
		Kind:            kind,
		ExistingBooking: existing,
		Alternatives:    alternatives,
	}, nil
}

// UpdateStatus moves a booking through the status state machine
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID string, next entities.BookingStatus) (*entities.Booking, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown booking status %q", next))
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("booking is already %s", booking.Status), nil)
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, apperrors.NewInvalidTransitionError(string(booking.Status), string(next))
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, next); err != nil {
		return nil, err
	}
	previous := booking.Status
	booking.Status = next
	booking.UpdatedAt = s.now().UTC()

	event := entities.NewDomainEvent(entities.EventTypeBookingStatusChanged, booking.ID, booking.UserID, map[string]interface{}{
		"provider_id": booking.ProviderID,
		"from":        string(previous),
		"to":          string(next),
	})
	publish(ctx, s.eventBus, providers.EventChannelBookings, event)
	publish(ctx, s.eventBus, providers.GetUserChannel(booking.UserID), event)

	return booking, nil
}

// ListUserBookings returns the user's most recent bookings
func (s *BookingService) ListUserBookings(ctx context.Context, userID string, limit int) ([]*entities.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
