package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/matching"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

// maxSearchPool caps how many listings are scored per query, newest first
const maxSearchPool = 500

// SearchQuery is a text search request
type SearchQuery struct {
	Text         string
	Category     string
	OnlyReviewed bool
	MinQuality   bool
	Limit        int
	Origin       LocationRef
}

// SearchService scores listings against free text
type SearchService struct {
	listingRepo      repositories.ListingRepository
	providerRepo     repositories.ProviderRepository
	resolver         *DistanceResolver
	qualityThreshold float64
	defaultLimit     int
}

// NewSearchService creates a new search service
func NewSearchService(
	listingRepo repositories.ListingRepository,
	providerRepo repositories.ProviderRepository,
	resolver *DistanceResolver,
	qualityThreshold float64,
	defaultLimit int,
) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &SearchService{
		listingRepo:      listingRepo,
		providerRepo:     providerRepo,
		resolver:         resolver,
		qualityThreshold: qualityThreshold,
		defaultLimit:     defaultLimit,
	}
}

// Search returns listings matching q.Text, best first
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]entities.MatchCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, apperrors.NewValidationError("search text is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	// a query of only stop words matches nothing
	tokens := matching.Tokenize(q.Text)
	if len(tokens) == 0 {
		return []entities.MatchCandidate{}, nil
	}

	// listings sharing no token score zero, so they are dropped before the cap
	listings, err := s.listingRepo.List(ctx, repositories.ListingFilter{
		Category:     q.Category,
		ApprovedOnly: true,
		AnyTokens:    tokens,
		Limit:        maxSearchPool,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	candidates, err := buildCandidates(ctx, s.providerRepo, listings)
	if err != nil {
		return nil, err
	}
	if !q.Origin.IsZero() {
		for i := range candidates {
			candidates[i].DistanceKm = s.resolver.DistancePtr(q.Origin, ProviderLocationRef(candidates[i].Provider))
		}
	}

	return matching.SearchByText(q.Text, candidates, matching.SearchOptions{
		OnlyReviewed:            q.OnlyReviewed,
		RequireQualityThreshold: q.MinQuality,
		QualityThreshold:        s.qualityThreshold,
		Limit:                   limit,
	}), nil
}

// buildCandidates pairs listings with their providers loaded in one batch.
// Listings whose provider cannot be found are dropped.
func buildCandidates(ctx context.Context, providerRepo repositories.ProviderRepository, listings []*entities.ServiceListing) ([]entities.MatchCandidate, error) {
	seen := make(map[string]struct{}, len(listings))
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if _, ok := seen[l.ProviderID]; ok {
			continue
		}
		seen[l.ProviderID] = struct{}{}
		ids = append(ids, l.ProviderID)
	}
	if len(ids) == 0 {
		return []entities.MatchCandidate{}, nil
	}

	profiles, err := providerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	byID := make(map[string]*entities.ProviderProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	candidates := make([]entities.MatchCandidate, 0, len(listings))
	for _, l := range listings {
		p, ok := byID[l.ProviderID]
		if !ok {
			continue
		}
		candidates = append(candidates, entities.MatchCandidate{Listing: l, Provider: p})
	}
	return candidates, nil
}
