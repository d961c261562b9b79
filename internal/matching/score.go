package matching

import (
	"math"

	"github.com/zatekoja/sewa/pkg/geo"
)

// DefaultQualityThreshold is the minimum provider quality for quality-gated search
const DefaultQualityThreshold = 0.55

var bookingNormalizer = math.Log(101)

// SmartScore blends a provider's CV score, booking count and a preference
// boost into a single [0,1] quality value rounded to 3 decimals.
// The booking term is logarithmic so a few thousand bookings saturate it.
func SmartScore(cvScore float64, bookingCount int, preferenceBoost float64) float64 {
	cv := clamp01(cvScore)
	boost := clamp01(preferenceBoost)
	if bookingCount < 0 {
		bookingCount = 0
	}
	popularity := math.Min(1, math.Log1p(float64(bookingCount))/bookingNormalizer)

	score := 0.6*cv + 0.3*popularity + 0.1*boost
	return geo.Round(clamp01(score), 3)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
