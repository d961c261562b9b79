package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

var (
	// radii used when the requester's coordinates are known
	nearRadiiKm = []float64{3, 6, 12, 20}
	// radii used when only a locality or nothing is known
	wideRadiiKm = []float64{10, 25, 40}
)

// AlternativeQuery describes the slot a substitute provider must fill
type AlternativeQuery struct {
	Category          string
	ExcludeProviderID string
	Date              string
	Time              string
	Origin            LocationRef
	Limit             int
}

// AlternativeFinder searches substitute providers for a blocked booking
type AlternativeFinder struct {
	providerRepo repositories.ProviderRepository
	listingRepo  repositories.ListingRepository
	bookingRepo  repositories.BookingRepository
	resolver     *DistanceResolver
	metrics      *observability.Metrics
}

// NewAlternativeFinder creates a new alternative finder
func NewAlternativeFinder(
	providerRepo repositories.ProviderRepository,
	listingRepo repositories.ListingRepository,
	bookingRepo repositories.BookingRepository,
	resolver *DistanceResolver,
) *AlternativeFinder {
	return &AlternativeFinder{
		providerRepo: providerRepo,
		listingRepo:  listingRepo,
		bookingRepo:  bookingRepo,
		resolver:     resolver,
	}
}

// SetMetrics enables recording of the tiers walked per lookup
func (f *AlternativeFinder) SetMetrics(m *observability.Metrics) {
	f.metrics = m
}

// FindAlternatives walks expanding radius tiers around the origin and stops
// at the first tier that yields q.Limit candidates. Each tier's new results
// are ordered nearest first and appended after earlier tiers. The excluded
// provider and providers busy at the requested slot are never returned.
func (f *AlternativeFinder) FindAlternatives(ctx context.Context, q AlternativeQuery) ([]entities.MatchCandidate, error) {
	if q.Limit <= 0 {
		return []entities.MatchCandidate{}, nil
	}
	logger := observability.LoggerFromContext(ctx)

	busy, err := f.bookingRepo.ListBusyProviderIDs(ctx, q.Date, q.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy providers: %w", err)
	}
	skip := make(map[string]struct{}, len(busy)+1)
	for _, id := range busy {
		skip[id] = struct{}{}
	}
	if q.ExcludeProviderID != "" {
		skip[q.ExcludeProviderID] = struct{}{}
	}

	radii := wideRadiiKm
	if q.Origin.HasCoordinates() {
		radii = nearRadiiKm
	}

	center, ok := f.resolver.Coordinates(q.Origin)
	if !ok {
		center = f.excludedProviderLocation(ctx, q.ExcludeProviderID)
	}

	found := make([]entities.MatchCandidate, 0, q.Limit)

	if center == nil {
		// nothing to measure from
		providers, err := f.providerRepo.ListApprovedInCategory(ctx, q.Category, setMembers(skip), q.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list approved providers: %w", err)
		}
		found, err = f.collect(ctx, q, providers, skip, found)
		if err != nil {
			return nil, err
		}
		return truncate(found, q.Limit), nil
	}

	walked := 0
	for _, radius := range radii {
		walked++
		providers, err := f.providerRepo.FindNearby(ctx, repositories.NearbyProviderQuery{
			Center:       *center,
			RadiusKm:     radius,
			ApprovedOnly: true,
			ExcludeIDs:   setMembers(skip),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search providers within %.0fkm: %w", radius, err)
		}

		found, err = f.collect(ctx, q, providers, skip, found)
		if err != nil {
			return nil, err
		}

		logger.Debug().
			Float64("radius_km", radius).
			Int("found", len(found)).
			Str("category", q.Category).
			Msg("alternative search tier")

		if len(found) >= q.Limit {
			break
		}
	}
	observability.RecordAlternativeTiers(ctx, f.metrics, walked)

	return truncate(found, q.Limit), nil
}

// collect turns providers into candidates with their best matching listing.
// Providers that qualify are added to skip so later tiers do not repeat them.
func (f *AlternativeFinder) collect(
	ctx context.Context,
	q AlternativeQuery,
	providers []*entities.ProviderProfile,
	skip map[string]struct{},
	found []entities.MatchCandidate,
) ([]entities.MatchCandidate, error) {
	eligible := make(map[string]*entities.ProviderProfile, len(providers))
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		if p == nil || !p.Approved {
			continue
		}
		if _, excluded := skip[p.ID]; excluded {
			continue
		}
		if _, dup := eligible[p.ID]; dup {
			continue
		}
		eligible[p.ID] = p
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return found, nil
	}

	listings, err := f.listingRepo.ListByProviders(ctx, ids, q.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings for alternatives: %w", err)
	}

	best := make(map[string]*entities.ServiceListing, len(ids))
	for _, l := range listings {
		if l == nil || !l.Approved || l.Category != q.Category {
			continue
		}
		if _, ok := eligible[l.ProviderID]; !ok {
			continue
		}
		if cur, ok := best[l.ProviderID]; !ok || l.BookingCount > cur.BookingCount {
			best[l.ProviderID] = l
		}
	}

	tier := make([]entities.MatchCandidate, 0, len(best))
	for _, id := range ids {
		listing, ok := best[id]
		if !ok {
			continue
		}
		p := eligible[id]
		skip[id] = struct{}{}

		var distance *float64
		if p.Location != nil {
			distance = f.resolver.DistancePtr(q.Origin, LocationRef{Coordinates: p.Location})
		}
		tier = append(tier, entities.MatchCandidate{
			Listing:        listing,
			Provider:       p,
			DistanceKm:     distance,
			Score:          p.Quality(),
			ScoreBreakdown: map[string]float64{"quality": p.Quality()},
		})
	}

	sort.SliceStable(tier, func(i, j int) bool {
		less, decided := entities.LessByDistance(tier[i].DistanceKm, tier[j].DistanceKm)
		if decided {
			return less
		}
		return tier[i].Score > tier[j].Score
	})

	return append(found, tier...), nil
}

func (f *AlternativeFinder) excludedProviderLocation(ctx context.Context, providerID string) *entities.Location {
	if providerID == "" {
		return nil
	}
	p, err := f.providerRepo.GetByID(ctx, providerID)
	if err != nil || p == nil {
		return nil
	}
	return p.Location
}

func setMembers(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(cs []entities.MatchCandidate, limit int) []entities.MatchCandidate {
	if len(cs) > limit {
		return cs[:limit]
	}
	return cs
}
