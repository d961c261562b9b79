package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/internal/matching"
)

const recommendationKeyPrefix = "recommendations:"

// RecommendationKeyPattern matches every cached recommendation of a user
func RecommendationKeyPattern(userID string) string {
	return recommendationKeyPrefix + userID + ":*"
}

func recommendationKey(userID, category string, limit int) string {
	return fmt.Sprintf("%s%s:%s:%d", recommendationKeyPrefix, userID, category, limit)
}

// RecommendationOptions configures the recommendation service
type RecommendationOptions struct {
	DefaultLimit      int
	HistorySize       int
	RecencyWindowDays int
	CacheTTLSeconds   int
}

// RecommendationService ranks listings for a user from their booking history
type RecommendationService struct {
	listingRepo  repositories.ListingRepository
	providerRepo repositories.ProviderRepository
	bookingRepo  repositories.BookingRepository
	cache        providers.CacheProvider
	opts         RecommendationOptions
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewRecommendationService creates a new recommendation service. cache may be nil.
func NewRecommendationService(
	listingRepo repositories.ListingRepository,
	providerRepo repositories.ProviderRepository,
	bookingRepo repositories.BookingRepository,
	cache providers.CacheProvider,
	opts RecommendationOptions,
) *RecommendationService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}
	return &RecommendationService{
		listingRepo:  listingRepo,
		providerRepo: providerRepo,
		bookingRepo:  bookingRepo,
		cache:        cache,
		opts:         opts,
		now:          time.Now,
	}
}

// SetMetrics enables cache hit and miss counting
func (s *RecommendationService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Recommend returns the top listings for userID, optionally within a category
func (s *RecommendationService) Recommend(ctx context.Context, userID, category string, limit int) ([]entities.MatchCandidate, error) {
	logger := observability.LoggerFromContext(ctx)
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	key := recommendationKey(userID, category, limit)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			var cached []entities.MatchCandidate
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.RecordRecommendationCache(ctx, s.metrics, true)
				return cached, nil
			}
			logger.Warn().Str("key", key).Msg("discarding unreadable cached recommendations")
		}
		observability.RecordRecommendationCache(ctx, s.metrics, false)
	}

	history, err := s.bookingRepo.ListByUser(ctx, userID, s.opts.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking history: %w", err)
	}

	listings, err := s.listingRepo.List(ctx, repositories.ListingFilter{
		Category:     category,
		ApprovedOnly: true,
		Limit:        maxSearchPool,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	candidates, err := buildCandidates(ctx, s.providerRepo, listings)
	if err != nil {
		return nil, err
	}

	ranked := matching.RankRecommendations(candidates, matching.CategoryHistory(history), s.now(), matching.RankOptions{
		Limit:             limit,
		RecencyWindowDays: s.opts.RecencyWindowDays,
	})

	if s.cache != nil && s.opts.CacheTTLSeconds > 0 {
		if data, err := json.Marshal(ranked); err == nil {
			if err := s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("failed to cache recommendations")
			}
		}
	}

	return ranked, nil
}
