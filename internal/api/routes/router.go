package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/sewa/internal/api/handlers"
	"github.com/zatekoja/sewa/internal/api/loaders"
	"github.com/zatekoja/sewa/internal/api/middleware"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	localityHandler *handlers.LocalityHandler
	searchHandler   *handlers.SearchHandler
	listingHandler  *handlers.ListingHandler
	bookingHandler  *handlers.BookingHandler
	providerHandler *handlers.ProviderHandler

	providerRepo repositories.ProviderRepository
	listingRepo  repositories.ListingRepository

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
	ready           func(context.Context) error
	bookingLimiter  *middleware.RateLimiter
}

// Options carries the shared dependencies of the HTTP stack. CacheMiddleware,
// Metrics, Ready and BookingLimiter may be nil.
type Options struct {
	ProviderRepo    repositories.ProviderRepository
	ListingRepo     repositories.ListingRepository
	CacheMiddleware *middleware.CacheMiddleware
	AllowedOrigins  []string
	Metrics         *observability.Metrics
	Ready           func(context.Context) error
	BookingLimiter  *middleware.RateLimiter
}

// NewRouter creates a new router
func NewRouter(
	localityHandler *handlers.LocalityHandler,
	searchHandler *handlers.SearchHandler,
	listingHandler *handlers.ListingHandler,
	bookingHandler *handlers.BookingHandler,
	providerHandler *handlers.ProviderHandler,
	opts Options,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		localityHandler: localityHandler,
		searchHandler:   searchHandler,
		listingHandler:  listingHandler,
		bookingHandler:  bookingHandler,
		providerHandler: providerHandler,

		providerRepo: opts.ProviderRepo,
		listingRepo:  opts.ListingRepo,

		cacheMiddleware: opts.CacheMiddleware,
		allowedOrigins:  opts.AllowedOrigins,
		metrics:         opts.Metrics,
		ready:           opts.Ready,
		bookingLimiter:  opts.BookingLimiter,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.mux.HandleFunc("GET /ready", r.readiness)

	// Locality endpoints
	r.mux.HandleFunc("GET /api/localities", r.localityHandler.ListLocalities)
	r.mux.HandleFunc("GET /api/localities/resolve", r.localityHandler.ResolveLocality)
	r.mux.HandleFunc("GET /api/localities/route", r.localityHandler.Route)
	r.mux.HandleFunc("GET /api/localities/{slug}/nearby", r.localityHandler.Nearby)
	r.mux.HandleFunc("GET /api/distance", r.localityHandler.Distance)

	// Listing endpoints
	r.mux.HandleFunc("GET /api/listings/search", r.searchHandler.SearchListings)
	r.mux.HandleFunc("GET /api/listings/{id}", r.listingHandler.GetListing)
	r.mux.HandleFunc("PUT /api/listings/{id}", r.listingHandler.UpdateListing)

	// User endpoints
	r.mux.HandleFunc("GET /api/users/{id}/recommendations", r.searchHandler.Recommendations)
	r.mux.HandleFunc("GET /api/users/{id}/bookings", r.bookingHandler.ListUserBookings)

	// Booking endpoints
	createBooking := r.bookingHandler.CreateBooking
	if r.bookingLimiter != nil {
		createBooking = r.bookingLimiter.Limit(createBooking)
	}
	r.mux.HandleFunc("POST /api/bookings", createBooking)
	r.mux.HandleFunc("PATCH /api/bookings/{id}/status", r.bookingHandler.UpdateStatus)

	// Provider profile callbacks
	r.mux.HandleFunc("PUT /api/providers/{id}/evaluation", r.providerHandler.UpdateEvaluation)
	r.mux.HandleFunc("PUT /api/providers/{id}/location", r.providerHandler.UpdateLocation)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	if r.providerRepo != nil && r.listingRepo != nil {
		handler = loaders.Middleware(r.providerRepo, r.listingRepo)(handler)
	}
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics, middleware.MuxRoute(r.mux))(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// readiness reports 503 while a backing store is unreachable
func (r *Router) readiness(w http.ResponseWriter, req *http.Request) {
	status, body := http.StatusOK, map[string]string{"status": "ready"}
	if r.ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := r.ready(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("readiness check failed")
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
