package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, HaversineKm(27.7172, 85.3240, 27.7172, 85.3240))
	})

	t.Run("one degree of latitude is about 111 km", func(t *testing.T) {
		assert.InDelta(t, 111.19, HaversineKm(27.0, 85.0, 28.0, 85.0), 0.05)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineKm(27.6857, 85.3480, 27.6715, 85.3410)
		b := HaversineKm(27.6715, 85.3410, 27.6857, 85.3480)
		assert.InDelta(t, a, b, 1e-12)
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.0, Round(1.3+1.7, 2))
	assert.Equal(t, 0.667, Round(2.0/3.0, 3))
}
