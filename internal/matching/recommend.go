package matching

import (
	"math"
	"sort"
	"time"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/geo"
)

const (
	weightRating     = 0.30
	weightPopularity = 0.25
	weightPreference = 0.25
	weightRecency    = 0.10
	weightQuality    = 0.10
)

// RankOptions tunes RankRecommendations. Zero values pick the defaults.
type RankOptions struct {
	Limit              int
	RecencyWindowDays  int
	PopularityFallback float64
	PinnedPreference   float64
	DefaultPreference  float64
}

// DefaultRankOptions returns the production weights and fallbacks
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Limit:              10,
		RecencyWindowDays:  90,
		PopularityFallback: 0.3,
		PinnedPreference:   0.6,
		DefaultPreference:  0.2,
	}
}

func (o RankOptions) withDefaults() RankOptions {
	d := DefaultRankOptions()
	if o.RecencyWindowDays <= 0 {
		o.RecencyWindowDays = d.RecencyWindowDays
	}
	if o.PopularityFallback <= 0 {
		o.PopularityFallback = d.PopularityFallback
	}
	if o.PinnedPreference <= 0 {
		o.PinnedPreference = d.PinnedPreference
	}
	if o.DefaultPreference <= 0 {
		o.DefaultPreference = d.DefaultPreference
	}
	return o
}

// CategoryHistory counts the categories of a user's recent bookings
func CategoryHistory(bookings []*entities.Booking) map[string]int {
	history := make(map[string]int)
	for _, b := range bookings {
		if b == nil || b.Category == "" {
			continue
		}
		history[b.Category]++
	}
	return history
}

// RankRecommendations scores every candidate on rating, popularity, personal
// preference, recency and provider quality and returns the top Limit.
func RankRecommendations(candidates []entities.MatchCandidate, history map[string]int, now time.Time, opts RankOptions) []entities.MatchCandidate {
	opts = opts.withDefaults()

	maxBookings := 0
	for _, c := range candidates {
		if c.Listing != nil && c.Listing.BookingCount > maxBookings {
			maxBookings = c.Listing.BookingCount
		}
	}
	maxHistory := 0
	for _, n := range history {
		if n > maxHistory {
			maxHistory = n
		}
	}

	ranked := make([]entities.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Listing == nil {
			continue
		}
		l := c.Listing

		rating := clamp01(l.Rating / 5)

		popularity := opts.PopularityFallback
		if maxBookings > 0 {
			popularity = clamp01(math.Log1p(float64(l.BookingCount)) / math.Log1p(float64(maxBookings)))
		}

		var preference float64
		switch {
		case maxHistory > 0:
			preference = clamp01(float64(history[l.Category]) / float64(maxHistory))
		case l.Pinned:
			preference = opts.PinnedPreference
		default:
			preference = opts.DefaultPreference
		}

		recency := 0.0
		if !l.CreatedAt.IsZero() {
			ageDays := now.Sub(l.CreatedAt).Hours() / 24
			recency = clamp01(1 - ageDays/float64(opts.RecencyWindowDays))
		}

		quality := clamp01(c.Provider.Quality())

		total := weightRating*rating +
			weightPopularity*popularity +
			weightPreference*preference +
			weightRecency*recency +
			weightQuality*quality

		c.Score = geo.Round(clamp01(total), 4)
		c.ScoreBreakdown = map[string]float64{
			"rating":     geo.Round(rating, 4),
			"popularity": geo.Round(popularity, 4),
			"preference": geo.Round(preference, 4),
			"recency":    geo.Round(recency, 4),
			"quality":    geo.Round(quality, 4),
		}
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}
