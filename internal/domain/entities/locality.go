package entities

// Neighbor is a declared road connection from a locality
type Neighbor struct {
	Slug       string  `json:"slug"`
	DistanceKm float64 `json:"distance_km"`
}

// Locality is a named area node of the service region. Localities come from a
// static catalog and are never mutated at runtime.
type Locality struct {
	Slug        string     `json:"slug"`
	DisplayName string     `json:"display_name"`
	District    string     `json:"district"`
	Location    Location   `json:"location"`
	Tags        []string   `json:"tags,omitempty"`
	Neighbors   []Neighbor `json:"neighbors,omitempty"`
}
