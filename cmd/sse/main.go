package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zatekoja/sewa/internal/adapters/events"
	"github.com/zatekoja/sewa/internal/api/handlers"
	"github.com/zatekoja/sewa/internal/api/middleware"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/redis"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/pkg/config"
)

// sse serves booking event streams to customers and providers on its own
// port, without the API's write timeout or response buffering.
func main() {
	// a local .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-stream", cfg.Env, cfg.LogLevel)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("event streams need Redis")
	}
	defer redisClient.Close()

	if cfg.Stream.HeartbeatSeconds > 0 {
		handlers.HeartbeatInterval = time.Duration(cfg.Stream.HeartbeatSeconds) * time.Second
	}
	eventBus := events.NewRedisEventBus(redisClient)
	streams := handlers.NewSSEHandler(eventBus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/stream/users/{id}", streams.StreamUserEvents)
	mux.HandleFunc("GET /api/stream/providers/{id}", streams.StreamProviderEvents)
	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"connected_clients": streams.GetClientCount()})
	})

	handler := middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(middleware.LoggingMiddleware(mux))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Stream.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// streams stay open until the client leaves
		WriteTimeout: 0,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("addr", addr).Dur("heartbeat", handlers.HeartbeatInterval).Msg("stream server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("stream server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("clients", streams.GetClientCount()).Msg("stream server shutting down")

	// open streams never go idle, end them before Shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing event bus")
	}

	logger.Info().Msg("stream server stopped")
}
