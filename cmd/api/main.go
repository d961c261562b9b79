package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zatekoja/sewa/internal/adapters/cache"
	"github.com/zatekoja/sewa/internal/adapters/database"
	"github.com/zatekoja/sewa/internal/adapters/events"
	"github.com/zatekoja/sewa/internal/api/handlers"
	"github.com/zatekoja/sewa/internal/api/middleware"
	"github.com/zatekoja/sewa/internal/api/routes"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/areagraph"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/redis"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/pkg/config"
)

func main() {
	// a local .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	graph, err := areagraph.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid locality catalog")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis backs caching and events; the service runs without both when it is down
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache and events")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewBreakerCache(cache.NewRedisAdapter(redisClient), cache.BreakerSettings{
			FailureThreshold: uint32(cfg.Redis.BreakerFailures),
			OpenTimeout:      time.Duration(cfg.Redis.BreakerTimeoutSeconds) * time.Second,
		})
		eventBus = events.NewRedisEventBus(redisClient)
	}

	listingRepo := database.NewListingAdapter(pgClient)
	baseProviderRepo := database.NewProviderAdapter(pgClient)
	var providerRepo repositories.ProviderRepository = baseProviderRepo
	if cacheProvider != nil {
		providerRepo = database.NewCachedProviderAdapter(baseProviderRepo, cacheProvider)
	}
	bookingRepo := database.NewBookingAdapter(pgClient)

	resolver := services.NewDistanceResolver(graph)
	scoreService := services.NewProviderScoreService(providerRepo, graph, eventBus)
	searchService := services.NewSearchService(listingRepo, providerRepo, resolver,
		cfg.Matching.QualityThreshold, cfg.Matching.DefaultSearchLimit)

	recommendationService := services.NewRecommendationService(listingRepo, providerRepo, bookingRepo, cacheProvider,
		services.RecommendationOptions{
			DefaultLimit:      cfg.Matching.DefaultRecommendLimit,
			HistorySize:       cfg.Matching.HistorySize,
			RecencyWindowDays: cfg.Matching.RecencyWindowDays,
			CacheTTLSeconds:   cfg.Matching.RecommendationCacheTTL,
		})
	recommendationService.SetMetrics(metrics)

	finder := services.NewAlternativeFinder(providerRepo, listingRepo, bookingRepo, resolver)
	finder.SetMetrics(metrics)

	bookingService := services.NewBookingService(bookingRepo, listingRepo, providerRepo, finder, scoreService,
		eventBus, cfg.Matching.AlternativesLimit)
	listingService := services.NewListingService(listingRepo, eventBus)

	var cacheInvalidation *services.CacheInvalidationService
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		services.NewCacheWarmingService(baseProviderRepo, cacheProvider, cfg.Cache.WarmLimit).
			StartPeriodicWarming(ctx, time.Duration(cfg.Cache.WarmIntervalSeconds)*time.Second)

		cacheInvalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidation.Start(); err != nil {
			logger.Warn().Err(err).Msg("cache invalidation disabled")
			cacheInvalidation = nil
		}
	}

	var bookingLimiter *middleware.RateLimiter
	if cfg.Server.BookingsPerMinute > 0 {
		bookingLimiter = middleware.NewRateLimiter(cfg.Server.BookingsPerMinute, time.Minute)
		bookingLimiter.StartCleanup(10*time.Minute, ctx.Done())
	}

	router := routes.NewRouter(
		handlers.NewLocalityHandler(resolver),
		handlers.NewSearchHandler(searchService, recommendationService, metrics),
		handlers.NewListingHandler(listingService),
		handlers.NewBookingHandler(bookingService, metrics),
		handlers.NewProviderHandler(scoreService),
		routes.Options{
			ProviderRepo:    providerRepo,
			ListingRepo:     listingRepo,
			CacheMiddleware: cacheMiddleware,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			Metrics:         metrics,
			BookingLimiter:  bookingLimiter,
			Ready: func(ctx context.Context) error {
				if err := pgClient.Ping(ctx); err != nil {
					return err
				}
				if redisClient != nil {
					return redisClient.Ping(ctx)
				}
				return nil
			},
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Int("localities", len(graph.Localities())).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	if cacheInvalidation != nil {
		cacheInvalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing event bus")
		}
	}

	logger.Info().Msg("server stopped")
}
