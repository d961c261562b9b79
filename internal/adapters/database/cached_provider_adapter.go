package database

import (
	"context"
	"encoding/json"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// CachedProviderAdapter is a read-through cache over a ProviderRepository.
// Point reads are cached per provider; every write evicts the provider's key.
// Radius and approved listings always hit the database.
type CachedProviderAdapter struct {
	repositories.ProviderRepository
	cache providers.CacheProvider
}

// NewCachedProviderAdapter wraps adapter with caching
func NewCachedProviderAdapter(adapter repositories.ProviderRepository, cache providers.CacheProvider) repositories.ProviderRepository {
	return &CachedProviderAdapter{ProviderRepository: adapter, cache: cache}
}

// GetByID retrieves a provider, preferring the cache
func (a *CachedProviderAdapter) GetByID(ctx context.Context, id string) (*entities.ProviderProfile, error) {
	key := providers.ProviderCacheKey(id)
	logger := observability.LoggerFromContext(ctx)

	if cached, err := a.cache.Get(ctx, key); err == nil && cached != nil {
		var provider entities.ProviderProfile
		if err := json.Unmarshal(cached, &provider); err == nil {
			return &provider, nil
		}
		logger.Warn().Str("provider_id", id).Msg("discarding undecodable cached provider")
	}

	provider, err := a.ProviderRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, provider)
	return provider, nil
}

// GetByIDs serves cached providers and loads the rest in one query. Result
// order follows ids; unknown ids are skipped.
func (a *CachedProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.ProviderProfile, error) {
	if len(ids) == 0 {
		return []*entities.ProviderProfile{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = providers.ProviderCacheKey(id)
	}
	cached, err := a.cache.GetMulti(ctx, keys)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("provider cache unavailable, loading from database")
		cached = nil
	}

	found := make(map[string]*entities.ProviderProfile, len(ids))
	missing := make([]string, 0, len(ids))
	for i, id := range ids {
		if data, ok := cached[keys[i]]; ok {
			var provider entities.ProviderProfile
			if err := json.Unmarshal(data, &provider); err == nil {
				found[id] = &provider
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := a.ProviderRepository.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, provider := range loaded {
			found[provider.ID] = provider
			a.store(ctx, provider)
		}
	}

	out := make([]*entities.ProviderProfile, 0, len(found))
	for _, id := range ids {
		if provider, ok := found[id]; ok {
			out = append(out, provider)
		}
	}
	return out, nil
}

// UpdateEvaluation stores the evaluation and evicts the cached provider
func (a *CachedProviderAdapter) UpdateEvaluation(ctx context.Context, id string, cvScore float64, experienceYears *int) error {
	defer a.evict(ctx, id)
	return a.ProviderRepository.UpdateEvaluation(ctx, id, cvScore, experienceYears)
}

// UpdateLocation stores the location and evicts the cached provider
func (a *CachedProviderAdapter) UpdateLocation(ctx context.Context, id string, location entities.Location, localitySlug *string) error {
	defer a.evict(ctx, id)
	return a.ProviderRepository.UpdateLocation(ctx, id, location, localitySlug)
}

// IncrementBookingLoad bumps the counter and evicts the cached provider
func (a *CachedProviderAdapter) IncrementBookingLoad(ctx context.Context, id string) (int, error) {
	defer a.evict(ctx, id)
	return a.ProviderRepository.IncrementBookingLoad(ctx, id)
}

// UpdateSmartScore stores the score and evicts the cached provider
func (a *CachedProviderAdapter) UpdateSmartScore(ctx context.Context, id string, score float64) error {
	defer a.evict(ctx, id)
	return a.ProviderRepository.UpdateSmartScore(ctx, id, score)
}

func (a *CachedProviderAdapter) store(ctx context.Context, provider *entities.ProviderProfile) {
	data, err := json.Marshal(provider)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, providers.ProviderCacheKey(provider.ID), data, providers.ProviderCacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", provider.ID).Msg("failed to cache provider")
	}
}

func (a *CachedProviderAdapter) evict(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, providers.ProviderCacheKey(id)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", id).Msg("failed to evict cached provider")
	}
}
