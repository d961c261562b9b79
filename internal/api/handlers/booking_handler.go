package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/sewa/internal/api/loaders"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/pkg/validation"
)

// BookingManager defines the booking operations the handler needs
type BookingManager interface {
	CreateBooking(ctx context.Context, in services.CreateBookingInput) (*services.BookingResult, error)
	UpdateStatus(ctx context.Context, bookingID string, next entities.BookingStatus) (*entities.Booking, error)
	ListUserBookings(ctx context.Context, userID string, limit int) ([]*entities.Booking, error)
}

// BookingHandler handles booking requests
type BookingHandler struct {
	service BookingManager
	metrics *observability.Metrics
}

// NewBookingHandler creates a new booking handler. metrics may be nil.
func NewBookingHandler(service BookingManager, metrics *observability.Metrics) *BookingHandler {
	return &BookingHandler{service: service, metrics: metrics}
}

type createBookingRequest struct {
	UserID         string             `json:"user_id" validate:"required"`
	ProviderID     string             `json:"provider_id" validate:"required"`
	ListingID      string             `json:"listing_id" validate:"required"`
	Category       string             `json:"category"`
	Date           string             `json:"date" validate:"required,isodate"`
	Time           string             `json:"time" validate:"required,clock"`
	OriginLocality string             `json:"origin_locality"`
	OriginLocation *entities.Location `json:"origin_location"`
	Notes          string             `json:"notes" validate:"max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed scheduled completed cancelled"`
}

// bookingView is a booking enriched with its listing and provider
type bookingView struct {
	*entities.Booking
	Listing  *entities.ServiceListing  `json:"listing,omitempty"`
	Provider *entities.ProviderProfile `json:"provider,omitempty"`
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.CreateBooking(r.Context(), services.CreateBookingInput{
		UserID:         strings.TrimSpace(req.UserID),
		ProviderID:     strings.TrimSpace(req.ProviderID),
		ListingID:      strings.TrimSpace(req.ListingID),
		Category:       strings.ToLower(strings.TrimSpace(req.Category)),
		Date:           req.Date,
		Time:           req.Time,
		OriginLocality: strings.TrimSpace(req.OriginLocality),
		OriginLocation: req.OriginLocation,
		Notes:          req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if result.Conflict != nil {
		observability.RecordBookingOutcome(r.Context(), h.metrics, string(result.Conflict.Kind))
		respondWithJSON(w, http.StatusConflict, result.Conflict)
		return
	}

	observability.RecordBookingOutcome(r.Context(), h.metrics, "created")
	respondWithJSON(w, http.StatusCreated, result.Booking)
}

// UpdateStatus handles PATCH /api/bookings/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	if bookingID == "" {
		respondWithError(w, http.StatusBadRequest, "booking ID is required")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), bookingID, entities.BookingStatus(req.Status))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}

// ListUserBookings handles GET /api/users/{id}/bookings
func (h *BookingHandler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user ID is required")
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	bookings, err := h.service.ListUserBookings(r.Context(), userID, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	views := enrichBookings(r.Context(), bookings)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": views,
		"count":    len(views),
	})
}

// enrichBookings queues every lookup before resolving any so each loader
// issues a single batch
func enrichBookings(ctx context.Context, bookings []*entities.Booking) []bookingView {
	views := make([]bookingView, len(bookings))
	l := loaders.For(ctx)
	if l == nil {
		for i, b := range bookings {
			views[i] = bookingView{Booking: b}
		}
		return views
	}

	listingThunks := make([]dataloader.Thunk[*entities.ServiceListing], len(bookings))
	providerThunks := make([]dataloader.Thunk[*entities.ProviderProfile], len(bookings))
	for i, b := range bookings {
		listingThunks[i] = l.ListingLoader.Load(ctx, b.ListingID)
		providerThunks[i] = l.ProviderLoader.Load(ctx, b.ProviderID)
	}

	logger := observability.LoggerFromContext(ctx)
	for i, b := range bookings {
		views[i] = bookingView{Booking: b}
		if listing, err := listingThunks[i](); err == nil {
			views[i].Listing = listing
		} else {
			logger.Debug().Err(err).Str("listing_id", b.ListingID).Msg("booking listing unavailable")
		}
		if provider, err := providerThunks[i](); err == nil {
			views[i].Provider = provider
		} else {
			logger.Debug().Err(err).Str("provider_id", b.ProviderID).Msg("booking provider unavailable")
		}
	}
	return views
}
