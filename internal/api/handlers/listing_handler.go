package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/validation"
)

// ListingEditor defines the listing read and edit operations
type ListingEditor interface {
	GetListing(ctx context.Context, id string) (*entities.ServiceListing, error)
	UpdateListing(ctx context.Context, id string, update services.ListingUpdate) (*entities.ServiceListing, error)
}

// ListingHandler handles listing requests
type ListingHandler struct {
	service ListingEditor
}

// NewListingHandler creates a new listing handler
func NewListingHandler(service ListingEditor) *ListingHandler {
	return &ListingHandler{service: service}
}

type updateListingRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Category    *string  `json:"category" validate:"omitempty,max=64"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Tags        []string `json:"tags" validate:"omitempty,max=32,dive,max=64"`
	Approved    *bool    `json:"approved"`
	Pinned      *bool    `json:"pinned"`
}

// GetListing handles GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := r.PathValue("id")
	if listingID == "" {
		respondWithError(w, http.StatusBadRequest, "listing ID is required")
		return
	}

	listing, err := h.service.GetListing(r.Context(), listingID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listing)
}

// UpdateListing handles PUT /api/listings/{id}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	listingID := r.PathValue("id")
	if listingID == "" {
		respondWithError(w, http.StatusBadRequest, "listing ID is required")
		return
	}

	var req updateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	listing, err := h.service.UpdateListing(r.Context(), listingID, services.ListingUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Tags:        req.Tags,
		Approved:    req.Approved,
		Pinned:      req.Pinned,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listing)
}
