package entities

// MatchCandidate is a request-scoped pairing of a listing with its provider,
// an optional distance from the requester and the computed score.
type MatchCandidate struct {
	Listing        *ServiceListing    `json:"listing"`
	Provider       *ProviderProfile   `json:"provider,omitempty"`
	DistanceKm     *float64           `json:"distance_km,omitempty"`
	Score          float64            `json:"score"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown,omitempty"`
}

// LessByDistance orders known distances ascending and unknown distances last.
// The second result is false when both distances are equal or both unknown.
func LessByDistance(a, b *float64) (less bool, decided bool) {
	switch {
	case a != nil && b != nil:
		if *a == *b {
			return false, false
		}
		return *a < *b, true
	case a != nil:
		return true, true
	case b != nil:
		return false, true
	default:
		return false, false
	}
}
