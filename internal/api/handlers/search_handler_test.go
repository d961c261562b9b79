package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/api/handlers"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q services.SearchQuery) ([]entities.MatchCandidate, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]entities.MatchCandidate), args.Error(1)
}

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Recommend(ctx context.Context, userID, category string, limit int) ([]entities.MatchCandidate, error) {
	args := m.Called(ctx, userID, category, limit)
	return args.Get(0).([]entities.MatchCandidate), args.Error(1)
}

func TestSearchHandler_SearchListings(t *testing.T) {
	t.Run("passes filters and origin through", func(t *testing.T) {
		searcher := new(MockSearcher)
		h := handlers.NewSearchHandler(searcher, new(MockRecommender), nil)

		searcher.On("Search", mock.Anything, mock.MatchedBy(func(q services.SearchQuery) bool {
			return q.Text == "pipe repair" &&
				q.Category == "plumbing" &&
				q.OnlyReviewed &&
				!q.MinQuality &&
				q.Limit == 100 &&
				q.Origin.Locality == "koteshwor" &&
				q.Origin.Coordinates == nil
		})).Return([]entities.MatchCandidate{
			{Listing: &entities.ServiceListing{ID: "l-1"}, Score: 0.8},
		}, nil)

		w := httptest.NewRecorder()
		h.SearchListings(w, httptest.NewRequest(http.MethodGet,
			"/api/listings/search?q=pipe+repair&category=Plumbing&only_reviewed=true&limit=500&locality=koteshwor", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, float64(1), got["count"])
		searcher.AssertExpectations(t)
	})

	t.Run("missing query is 400", func(t *testing.T) {
		searcher := new(MockSearcher)
		h := handlers.NewSearchHandler(searcher, new(MockRecommender), nil)

		w := httptest.NewRecorder()
		h.SearchListings(w, httptest.NewRequest(http.MethodGet, "/api/listings/search?q=%20", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("malformed coordinates are 400", func(t *testing.T) {
		searcher := new(MockSearcher)
		h := handlers.NewSearchHandler(searcher, new(MockRecommender), nil)

		for _, query := range []string{
			"q=plumber&lat=abc&lng=85.3",
			"q=plumber&lat=27.7",
			"q=plumber&lat=95&lng=85.3",
			"q=plumber&only_reviewed=maybe",
		} {
			w := httptest.NewRecorder()
			h.SearchListings(w, httptest.NewRequest(http.MethodGet, "/api/listings/search?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
		}
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})
}

func TestSearchHandler_Recommendations(t *testing.T) {
	t.Run("returns ranked candidates", func(t *testing.T) {
		recommender := new(MockRecommender)
		h := handlers.NewSearchHandler(new(MockSearcher), recommender, nil)
		recommender.On("Recommend", mock.Anything, "u-1", "electrician", 5).Return([]entities.MatchCandidate{
			{Listing: &entities.ServiceListing{ID: "l-1"}, Score: 0.9},
			{Listing: &entities.ServiceListing{ID: "l-2"}, Score: 0.4},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/users/u-1/recommendations?category=electrician&limit=5", nil)
		req.SetPathValue("id", "u-1")
		w := httptest.NewRecorder()
		h.Recommendations(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "u-1", got["user_id"])
		assert.Equal(t, float64(2), got["count"])
		recommender.AssertExpectations(t)
	})

	t.Run("service failure is 500", func(t *testing.T) {
		recommender := new(MockRecommender)
		h := handlers.NewSearchHandler(new(MockSearcher), recommender, nil)
		recommender.On("Recommend", mock.Anything, "u-1", "", 0).
			Return([]entities.MatchCandidate(nil), apperrors.NewInternalError("query failed", assert.AnError))

		req := httptest.NewRequest(http.MethodGet, "/api/users/u-1/recommendations", nil)
		req.SetPathValue("id", "u-1")
		w := httptest.NewRecorder()
		h.Recommendations(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

type MockProviderScorer struct {
	mock.Mock
}

func (m *MockProviderScorer) ApplyEvaluation(ctx context.Context, providerID string, cvScore float64, experienceYears *int) (*entities.ProviderProfile, error) {
	args := m.Called(ctx, providerID, cvScore, experienceYears)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProviderProfile), args.Error(1)
}

func (m *MockProviderScorer) UpdateLocation(ctx context.Context, providerID string, location entities.Location, locality string) (*entities.ProviderProfile, error) {
	args := m.Called(ctx, providerID, location, locality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProviderProfile), args.Error(1)
}

func TestProviderHandler_UpdateEvaluation(t *testing.T) {
	t.Run("applies the evaluation", func(t *testing.T) {
		scorer := new(MockProviderScorer)
		h := handlers.NewProviderHandler(scorer)
		scorer.On("ApplyEvaluation", mock.Anything, "p-1", 0.75, mock.Anything).
			Return(&entities.ProviderProfile{ID: "p-1"}, nil)

		req := httptest.NewRequest(http.MethodPut, "/api/providers/p-1/evaluation",
			bytes.NewBufferString(`{"cv_score":0.75,"experience_years":6}`))
		req.SetPathValue("id", "p-1")
		w := httptest.NewRecorder()
		h.UpdateEvaluation(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		scorer.AssertExpectations(t)
	})

	t.Run("score above one is 400", func(t *testing.T) {
		scorer := new(MockProviderScorer)
		h := handlers.NewProviderHandler(scorer)

		req := httptest.NewRequest(http.MethodPut, "/api/providers/p-1/evaluation", bytes.NewBufferString(`{"cv_score":1.5}`))
		req.SetPathValue("id", "p-1")
		w := httptest.NewRecorder()
		h.UpdateEvaluation(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		scorer.AssertNotCalled(t, "ApplyEvaluation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown provider is 404", func(t *testing.T) {
		scorer := new(MockProviderScorer)
		h := handlers.NewProviderHandler(scorer)
		scorer.On("UpdateLocation", mock.Anything, "p-9", entities.Location{Latitude: 27.68, Longitude: 85.35}, "koteshwor").
			Return(nil, apperrors.NewNotFoundError("provider not found"))

		req := httptest.NewRequest(http.MethodPut, "/api/providers/p-9/location",
			bytes.NewBufferString(`{"latitude":27.68,"longitude":85.35,"locality":"koteshwor"}`))
		req.SetPathValue("id", "p-9")
		w := httptest.NewRecorder()
		h.UpdateLocation(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		scorer.AssertExpectations(t)
	})
}

type MockListingEditor struct {
	mock.Mock
}

func (m *MockListingEditor) GetListing(ctx context.Context, id string) (*entities.ServiceListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ServiceListing), args.Error(1)
}

func (m *MockListingEditor) UpdateListing(ctx context.Context, id string, update services.ListingUpdate) (*entities.ServiceListing, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ServiceListing), args.Error(1)
}

func TestListingHandler(t *testing.T) {
	t.Run("get returns the listing", func(t *testing.T) {
		editor := new(MockListingEditor)
		h := handlers.NewListingHandler(editor)
		editor.On("GetListing", mock.Anything, "l-1").Return(&entities.ServiceListing{ID: "l-1", Name: "Leak fix"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/listings/l-1", nil)
		req.SetPathValue("id", "l-1")
		w := httptest.NewRecorder()
		h.GetListing(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Leak fix")
	})

	t.Run("update forwards only the given fields", func(t *testing.T) {
		editor := new(MockListingEditor)
		h := handlers.NewListingHandler(editor)
		editor.On("UpdateListing", mock.Anything, "l-1", mock.MatchedBy(func(u services.ListingUpdate) bool {
			return u.Price != nil && *u.Price == 1200 && u.Pinned != nil && *u.Pinned && u.Name == nil
		})).Return(&entities.ServiceListing{ID: "l-1"}, nil)

		req := httptest.NewRequest(http.MethodPut, "/api/listings/l-1", bytes.NewBufferString(`{"price":1200,"pinned":true}`))
		req.SetPathValue("id", "l-1")
		w := httptest.NewRecorder()
		h.UpdateListing(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		editor.AssertExpectations(t)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		editor := new(MockListingEditor)
		h := handlers.NewListingHandler(editor)

		req := httptest.NewRequest(http.MethodPut, "/api/listings/l-1", bytes.NewBufferString(`{"rating":5}`))
		req.SetPathValue("id", "l-1")
		w := httptest.NewRecorder()
		h.UpdateListing(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		editor.AssertNotCalled(t, "UpdateListing", mock.Anything, mock.Anything, mock.Anything)
	})
}
