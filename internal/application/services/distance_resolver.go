package services

import (
	"strings"

	"github.com/zatekoja/sewa/internal/areagraph"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/geo"
)

// LocationRef describes one side of a distance query. Either field may be empty.
type LocationRef struct {
	Locality    string
	Coordinates *entities.Location
}

// HasCoordinates reports whether raw coordinates are present
func (r LocationRef) HasCoordinates() bool {
	return r.Coordinates != nil
}

// IsZero reports whether the reference carries nothing at all
func (r LocationRef) IsZero() bool {
	return strings.TrimSpace(r.Locality) == "" && r.Coordinates == nil
}

// ProviderLocationRef builds a reference from a provider's stored location
func ProviderLocationRef(p *entities.ProviderProfile) LocationRef {
	if p == nil {
		return LocationRef{}
	}
	ref := LocationRef{Coordinates: p.Location}
	if p.PrimaryLocalitySlug != nil {
		ref.Locality = *p.PrimaryLocalitySlug
	}
	return ref
}

// DistanceResolver picks the best available distance strategy for two refs
type DistanceResolver struct {
	graph *areagraph.Graph
}

// NewDistanceResolver creates a resolver over an immutable graph snapshot
func NewDistanceResolver(graph *areagraph.Graph) *DistanceResolver {
	return &DistanceResolver{graph: graph}
}

// Graph returns the snapshot the resolver was built with
func (r *DistanceResolver) Graph() *areagraph.Graph {
	return r.graph
}

// Resolve returns the distance between a and b in km. Graph distance is used
// when both sides name a known locality; otherwise haversine over raw
// coordinates, substituting a locality's coordinates for a missing side.
// The second result is false when no strategy applies.
func (r *DistanceResolver) Resolve(a, b LocationRef) (float64, bool) {
	la, okA := r.locality(a)
	lb, okB := r.locality(b)

	if okA && okB {
		if route, ok := r.graph.ShortestPath(areagraph.BySlug(la.Slug), areagraph.BySlug(lb.Slug)); ok {
			return route.DistanceKm, true
		}
	}

	ca := a.Coordinates
	if ca == nil && okA {
		ca = &la.Location
	}
	cb := b.Coordinates
	if cb == nil && okB {
		cb = &lb.Location
	}
	if ca == nil || cb == nil {
		return 0, false
	}
	return geo.Round(ca.DistanceKm(*cb), 2), true
}

// Coordinates returns the ref's raw coordinates, or its locality's coordinates
func (r *DistanceResolver) Coordinates(ref LocationRef) (*entities.Location, bool) {
	if ref.Coordinates != nil {
		return ref.Coordinates, true
	}
	if l, ok := r.locality(ref); ok {
		loc := l.Location
		return &loc, true
	}
	return nil, false
}

// DistancePtr is Resolve returning nil for unknown distance
func (r *DistanceResolver) DistancePtr(a, b LocationRef) *float64 {
	d, ok := r.Resolve(a, b)
	if !ok {
		return nil
	}
	return &d
}

func (r *DistanceResolver) locality(ref LocationRef) (entities.Locality, bool) {
	if r.graph == nil || strings.TrimSpace(ref.Locality) == "" {
		return entities.Locality{}, false
	}
	return r.graph.ResolveText(ref.Locality)
}
