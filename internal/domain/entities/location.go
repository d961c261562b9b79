package entities

import "github.com/zatekoja/sewa/pkg/geo"

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude" validate:"longitude"`
}

// DistanceKm returns the haversine distance to other
func (l Location) DistanceKm(other Location) float64 {
	return geo.HaversineKm(l.Latitude, l.Longitude, other.Latitude, other.Longitude)
}
