package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/validation"
)

// ProviderScorer defines the provider profile updates that trigger rescoring
type ProviderScorer interface {
	ApplyEvaluation(ctx context.Context, providerID string, cvScore float64, experienceYears *int) (*entities.ProviderProfile, error)
	UpdateLocation(ctx context.Context, providerID string, location entities.Location, locality string) (*entities.ProviderProfile, error)
}

// ProviderHandler handles provider profile callbacks
type ProviderHandler struct {
	scorer ProviderScorer
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(scorer ProviderScorer) *ProviderHandler {
	return &ProviderHandler{scorer: scorer}
}

type evaluationRequest struct {
	CVScore         *float64 `json:"cv_score" validate:"required,gte=0,lte=1"`
	ExperienceYears *int     `json:"experience_years" validate:"omitempty,gte=0,lte=80"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Locality  string   `json:"locality"`
}

// UpdateEvaluation handles PUT /api/providers/{id}/evaluation
func (h *ProviderHandler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	var req evaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	provider, err := h.scorer.ApplyEvaluation(r.Context(), providerID, *req.CVScore, req.ExperienceYears)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// UpdateLocation handles PUT /api/providers/{id}/location
func (h *ProviderHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	provider, err := h.scorer.UpdateLocation(r.Context(), providerID,
		entities.Location{Latitude: *req.Latitude, Longitude: *req.Longitude},
		req.Locality,
	)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}
