package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/zatekoja/sewa/internal/areagraph"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/internal/matching"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

// primaryLocalityRadiusKm bounds the nearest-locality lookup for a new location
const primaryLocalityRadiusKm = 5.0

// ProviderScoreService keeps provider smart scores in step with their inputs
type ProviderScoreService struct {
	providerRepo repositories.ProviderRepository
	graph        *areagraph.Graph
	eventBus     providers.EventBus
}

// NewProviderScoreService creates a new provider score service
func NewProviderScoreService(
	providerRepo repositories.ProviderRepository,
	graph *areagraph.Graph,
	eventBus providers.EventBus,
) *ProviderScoreService {
	return &ProviderScoreService{
		providerRepo: providerRepo,
		graph:        graph,
		eventBus:     eventBus,
	}
}

// Rescore recomputes and stores the provider's smart score
func (s *ProviderScoreService) Rescore(ctx context.Context, providerID string) (*entities.ProviderProfile, error) {
	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	score := matching.SmartScore(provider.CV(), provider.BookingLoad, 0)
	if err := s.providerRepo.UpdateSmartScore(ctx, providerID, score); err != nil {
		return nil, fmt.Errorf("failed to store smart score: %w", err)
	}
	provider.SmartScore = &score

	observability.LoggerFromContext(ctx).Debug().
		Str("provider_id", providerID).
		Float64("smart_score", score).
		Msg("provider rescored")

	publish(ctx, s.eventBus, providers.EventChannelProviders, entities.NewDomainEvent(
		entities.EventTypeProviderRescored, providerID, "",
		map[string]interface{}{"smart_score": score},
	))
	return provider, nil
}

// RescoreSummary reports the outcome of a bulk rescore
type RescoreSummary struct {
	Total  int
	Failed []string
}

// RescoreAll recomputes the smart score of every approved provider on a
// pool of workers. Individual failures are collected, not returned.
func (s *ProviderScoreService) RescoreAll(ctx context.Context, workers int) (RescoreSummary, error) {
	approved, err := s.providerRepo.ListApproved(ctx, nil, 0)
	if err != nil {
		return RescoreSummary{}, fmt.Errorf("failed to list providers: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return RescoreSummary{}, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	logger := observability.LoggerFromContext(ctx)
	for _, provider := range approved {
		id := provider.ID
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if _, err := s.Rescore(ctx, id); err != nil {
				logger.Warn().Err(err).Str("provider_id", id).Msg("failed to rescore provider")
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return RescoreSummary{}, fmt.Errorf("failed to schedule rescore: %w", err)
		}
	}
	wg.Wait()

	sort.Strings(failed)
	return RescoreSummary{Total: len(approved), Failed: failed}, nil
}

// ApplyEvaluation stores the CV evaluator's output and rescores the provider
func (s *ProviderScoreService) ApplyEvaluation(ctx context.Context, providerID string, cvScore float64, experienceYears *int) (*entities.ProviderProfile, error) {
	if cvScore < 0 || cvScore > 1 {
		return nil, apperrors.NewValidationError("cv_score must be between 0 and 1")
	}
	if experienceYears != nil && *experienceYears < 0 {
		return nil, apperrors.NewValidationError("experience_years must not be negative")
	}
	if err := s.providerRepo.UpdateEvaluation(ctx, providerID, cvScore, experienceYears); err != nil {
		return nil, err
	}
	return s.Rescore(ctx, providerID)
}

// UpdateLocation stores a new provider location. An unknown locality is
// rejected; a missing one is derived from the nearest catalog locality.
func (s *ProviderScoreService) UpdateLocation(ctx context.Context, providerID string, location entities.Location, locality string) (*entities.ProviderProfile, error) {
	var slug *string
	if locality != "" {
		l, ok := s.graph.Resolve(areagraph.ParseIdentifier(locality))
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown locality %q", locality))
		}
		slug = &l.Slug
	} else if near := s.graph.NearbyLocation(location, primaryLocalityRadiusKm); len(near) > 0 {
		slug = &near[0].Locality.Slug
	}

	if err := s.providerRepo.UpdateLocation(ctx, providerID, location, slug); err != nil {
		return nil, err
	}
	return s.Rescore(ctx, providerID)
}

// RecordBooking bumps the provider's booking load and rescores
func (s *ProviderScoreService) RecordBooking(ctx context.Context, providerID string) error {
	if _, err := s.providerRepo.IncrementBookingLoad(ctx, providerID); err != nil {
		return fmt.Errorf("failed to increment booking load: %w", err)
	}
	_, err := s.Rescore(ctx, providerID)
	return err
}

// publish sends an event when a bus is configured. Delivery failures are
// logged and never fail the calling operation.
func publish(ctx context.Context, bus providers.EventBus, channel string, event *entities.DomainEvent) {
	if bus == nil || event == nil {
		return
	}
	if err := bus.Publish(ctx, channel, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("channel", channel).
			Str("event_type", string(event.Type)).
			Msg("failed to publish event")
	}
}
