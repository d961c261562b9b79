package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached recommendations when bookings,
// listings or provider scores change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	channels := []string{
		providers.EventChannelBookings,
		providers.EventChannelListings,
		providers.EventChannelProviders,
	}
	for _, channel := range channels {
		eventChan, err := s.eventBus.Subscribe(s.ctx, channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		go s.processEvents(eventChan)
	}

	observability.GetLogger().Info().Strs("channels", channels).Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.DomainEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := observability.GetLogger()

	var err error
	switch event.Type {
	case entities.EventTypeBookingCreated, entities.EventTypeBookingStatusChanged:
		if event.UserID == "" {
			return
		}
		// history changed for one user only
		err = s.cache.DeletePattern(ctx, RecommendationKeyPattern(event.UserID))
	case entities.EventTypeListingUpdated, entities.EventTypeProviderRescored:
		err = s.InvalidateAllRecommendations(ctx)
	default:
		return
	}

	if err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to invalidate cache")
		return
	}
	logger.Debug().Str("event_type", string(event.Type)).Str("user_id", event.UserID).Msg("invalidated cache")
}

// InvalidateAllRecommendations drops every cached recommendation
func (s *CacheInvalidationService) InvalidateAllRecommendations(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, recommendationKeyPrefix+"*"); err != nil {
		return fmt.Errorf("failed to invalidate recommendations: %w", err)
	}
	return nil
}
