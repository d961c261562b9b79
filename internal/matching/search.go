package matching

import (
	"sort"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/geo"
)

// SearchOptions controls eligibility and truncation for SearchByText
type SearchOptions struct {
	OnlyReviewed            bool
	RequireQualityThreshold bool
	QualityThreshold        float64
	Limit                   int
}

// Eligible reports whether a candidate may be scored at all
func (o SearchOptions) Eligible(c entities.MatchCandidate) bool {
	if c.Listing == nil || !c.Listing.Approved {
		return false
	}
	if c.Provider != nil && !c.Provider.Approved {
		return false
	}
	if o.OnlyReviewed && c.Listing.PublishedReviewCount < 1 {
		return false
	}
	if o.RequireQualityThreshold {
		threshold := o.QualityThreshold
		if threshold <= 0 {
			threshold = DefaultQualityThreshold
		}
		if c.Provider.Quality() < threshold {
			return false
		}
	}
	return true
}

// SearchByText filters candidates by eligibility, scores the rest by cosine
// similarity against query and returns the non-zero matches best first.
// Equal scores are ordered by distance with unknown distances last.
func SearchByText(query string, candidates []entities.MatchCandidate, opts SearchOptions) []entities.MatchCandidate {
	qv := VectorizeText(query)
	if len(qv) == 0 {
		return []entities.MatchCandidate{}
	}

	results := make([]entities.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !opts.Eligible(c) {
			continue
		}
		sim := CosineSimilarity(qv, BuildListingVector(c.Listing, c.Provider))
		if sim <= 0 {
			continue
		}
		c.Score = geo.Round(sim, 4)
		c.ScoreBreakdown = map[string]float64{"text": c.Score}
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		less, _ := entities.LessByDistance(results[i].DistanceKm, results[j].DistanceKm)
		return less
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}
