package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/api/handlers"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/areagraph"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	graph, err := areagraph.Default()
	require.NoError(t, err)

	router := NewRouter(
		handlers.NewLocalityHandler(services.NewDistanceResolver(graph)),
		handlers.NewSearchHandler(nil, nil, nil),
		handlers.NewListingHandler(nil),
		handlers.NewBookingHandler(nil, nil),
		handlers.NewProviderHandler(nil),
		Options{AllowedOrigins: []string{"*"}},
	)
	return router.SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_LocalityRoutesTakePrecedenceOverSlug(t *testing.T) {
	handler := newTestRouter(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/localities/route?from=tinkune&to=balkumari", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var route areagraph.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &route))
	assert.Equal(t, 3.0, route.DistanceKm)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/localities/koteshwor/nearby", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MethodMismatch(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/distance", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_Readiness(t *testing.T) {
	graph, err := areagraph.Default()
	require.NoError(t, err)

	build := func(ready func(context.Context) error) http.Handler {
		return NewRouter(
			handlers.NewLocalityHandler(services.NewDistanceResolver(graph)),
			handlers.NewSearchHandler(nil, nil, nil),
			handlers.NewListingHandler(nil),
			handlers.NewBookingHandler(nil, nil),
			handlers.NewProviderHandler(nil),
			Options{Ready: ready},
		).SetupRoutes()
	}

	w := httptest.NewRecorder()
	build(func(context.Context) error { return nil }).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())

	w = httptest.NewRecorder()
	build(func(context.Context) error { return errors.New("connection refused") }).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
