package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// ListingSearcher defines the text search operation
type ListingSearcher interface {
	Search(ctx context.Context, q services.SearchQuery) ([]entities.MatchCandidate, error)
}

// Recommender defines the personalised ranking operation
type Recommender interface {
	Recommend(ctx context.Context, userID, category string, limit int) ([]entities.MatchCandidate, error)
}

// SearchHandler serves listing search and recommendations
type SearchHandler struct {
	searcher    ListingSearcher
	recommender Recommender
	metrics     *observability.Metrics
}

// NewSearchHandler creates a new search handler. metrics may be nil.
func NewSearchHandler(searcher ListingSearcher, recommender Recommender, metrics *observability.Metrics) *SearchHandler {
	return &SearchHandler{
		searcher:    searcher,
		recommender: recommender,
		metrics:     metrics,
	}
}

// SearchListings handles GET /api/listings/search
func (h *SearchHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))
	if text == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	onlyReviewed, err := queryBool(r, "only_reviewed")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	minQuality, err := queryBool(r, "min_quality")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	origin, err := queryLocationRef(r, "locality", "lat", "lng")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	results, err := h.searcher.Search(r.Context(), services.SearchQuery{
		Text:         text,
		Category:     category,
		OnlyReviewed: onlyReviewed,
		MinQuality:   minQuality,
		Limit:        clampLimit(limit),
		Origin:       origin,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	observability.RecordSearchResults(r.Context(), h.metrics, category, len(results))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":   text,
		"results": results,
		"count":   len(results),
	})
}

// Recommendations handles GET /api/users/{id}/recommendations
func (h *SearchHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
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
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))

	results, err := h.recommender.Recommend(r.Context(), userID, category, clampLimit(limit))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         userID,
		"recommendations": results,
		"count":           len(results),
	})
}
