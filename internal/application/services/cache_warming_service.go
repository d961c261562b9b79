package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// CacheWarmingService preloads approved provider profiles into the cache so
// search and booking enrichment start warm
type CacheWarmingService struct {
	providerRepo repositories.ProviderRepository
	cache        providers.CacheProvider
	limit        int
}

// NewCacheWarmingService creates a new cache warming service. providerRepo
// should be the uncached repository.
func NewCacheWarmingService(providerRepo repositories.ProviderRepository, cache providers.CacheProvider, limit int) *CacheWarmingService {
	if limit <= 0 {
		limit = 200
	}
	return &CacheWarmingService{
		providerRepo: providerRepo,
		cache:        cache,
		limit:        limit,
	}
}

// WarmProviders caches up to limit approved providers and returns how many
// were written
func (s *CacheWarmingService) WarmProviders(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)

	approved, err := s.providerRepo.ListApproved(ctx, nil, s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch approved providers: %w", err)
	}

	items := make(map[string][]byte, len(approved))
	for _, provider := range approved {
		data, err := json.Marshal(provider)
		if err != nil {
			logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("failed to marshal provider")
			continue
		}
		items[providers.ProviderCacheKey(provider.ID)] = data
	}
	if len(items) == 0 {
		return 0, nil
	}

	if err := s.cache.SetMulti(ctx, items, providers.ProviderCacheTTL); err != nil {
		return 0, fmt.Errorf("failed to cache providers: %w", err)
	}
	logger.Info().Int("providers", len(items)).Msg("warmed provider cache")
	return len(items), nil
}

// StartPeriodicWarming warms once, then again every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	logger := observability.GetLogger()

	if _, err := s.WarmProviders(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial cache warming failed")
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping cache warming")
				return
			case <-ticker.C:
				if _, err := s.WarmProviders(ctx); err != nil {
					logger.Warn().Err(err).Msg("periodic cache warming failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic cache warming")
}

// InvalidateProviders drops every cached provider profile, for use after bulk updates
func (s *CacheWarmingService) InvalidateProviders(ctx context.Context) error {
	return s.cache.DeletePattern(ctx, providers.ProviderCacheKey("*"))
}
