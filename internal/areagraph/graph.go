// Package areagraph models the service region as an undirected weighted graph
// of localities. A Graph is immutable once built and safe for concurrent use.
package areagraph

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/pkg/geo"
)

// Route is a shortest path between two localities
type Route struct {
	DistanceKm float64             `json:"distance_km"`
	Path       []entities.Locality `json:"path"`
}

// NearbyLocality is a locality with its straight-line distance from an origin
type NearbyLocality struct {
	Locality   entities.Locality `json:"locality"`
	DistanceKm float64           `json:"distance_km"`
}

// Graph is the built adjacency and lookup structure for a locality catalog
type Graph struct {
	order     []string
	nodes     map[string]entities.Locality
	adjacency map[string]map[string]float64

	bySlug        map[string]string
	byName        map[string]string
	bySlugCompact map[string]string
	byNameCompact map[string]string
}

var (
	defaultOnce  sync.Once
	defaultGraph *Graph
	defaultErr   error
)

// Default builds the static catalog on first call and returns the same
// snapshot to every caller afterwards.
func Default() (*Graph, error) {
	defaultOnce.Do(func() {
		defaultGraph, defaultErr = Build(Catalog())
	})
	return defaultGraph, defaultErr
}

// Build constructs a graph from catalog. Every declared edge A->B gets a
// reverse edge B->A with the same weight unless B declares its own edge to A,
// in which case each direction keeps its declared weight.
func Build(catalog []entities.Locality) (*Graph, error) {
	g := &Graph{
		order:         make([]string, 0, len(catalog)),
		nodes:         make(map[string]entities.Locality, len(catalog)),
		adjacency:     make(map[string]map[string]float64, len(catalog)),
		bySlug:        make(map[string]string, len(catalog)),
		byName:        make(map[string]string, len(catalog)),
		bySlugCompact: make(map[string]string, len(catalog)),
		byNameCompact: make(map[string]string, len(catalog)),
	}

	for _, l := range catalog {
		if l.Slug == "" {
			return nil, fmt.Errorf("locality %q has an empty slug", l.DisplayName)
		}
		if _, dup := g.nodes[l.Slug]; dup {
			return nil, fmt.Errorf("duplicate locality slug %q", l.Slug)
		}
		g.order = append(g.order, l.Slug)
		g.nodes[l.Slug] = l
		g.adjacency[l.Slug] = make(map[string]float64)
	}

	// explicit edges first so a synthesized reverse never shadows a declared one
	for _, l := range catalog {
		for _, n := range l.Neighbors {
			if _, ok := g.nodes[n.Slug]; !ok {
				return nil, fmt.Errorf("locality %q lists unknown neighbor %q", l.Slug, n.Slug)
			}
			if n.Slug == l.Slug {
				return nil, fmt.Errorf("locality %q lists itself as a neighbor", l.Slug)
			}
			if n.DistanceKm <= 0 || math.IsNaN(n.DistanceKm) || math.IsInf(n.DistanceKm, 0) {
				return nil, fmt.Errorf("edge %s->%s has invalid distance %v", l.Slug, n.Slug, n.DistanceKm)
			}
			if _, seen := g.adjacency[l.Slug][n.Slug]; !seen {
				g.adjacency[l.Slug][n.Slug] = n.DistanceKm
			}
		}
	}
	for _, l := range catalog {
		for _, n := range l.Neighbors {
			if _, ok := g.adjacency[n.Slug][l.Slug]; !ok {
				g.adjacency[n.Slug][l.Slug] = g.adjacency[l.Slug][n.Slug]
			}
		}
	}

	for _, slug := range g.order {
		l := g.nodes[slug]
		g.bySlug[normalizeKey(l.Slug)] = slug
		if _, taken := g.bySlugCompact[compactSlugKey(l.Slug)]; !taken {
			g.bySlugCompact[compactSlugKey(l.Slug)] = slug
		}
		if name := normalizeKey(l.DisplayName); name != "" {
			if _, taken := g.byName[name]; !taken {
				g.byName[name] = slug
			}
			if _, taken := g.byNameCompact[compactKey(name)]; !taken {
				g.byNameCompact[compactKey(name)] = slug
			}
		}
	}

	return g, nil
}

// Localities returns all localities in catalog order
func (g *Graph) Localities() []entities.Locality {
	out := make([]entities.Locality, 0, len(g.order))
	for _, slug := range g.order {
		out = append(out, g.nodes[slug])
	}
	return out
}

// Resolve looks an identifier up in the table matching its kind
func (g *Graph) Resolve(id Identifier) (entities.Locality, bool) {
	var slug string
	var ok bool
	switch id.Kind {
	case KindSlug:
		if slug, ok = g.bySlug[normalizeKey(id.Value)]; !ok {
			slug, ok = g.bySlugCompact[compactSlugKey(id.Value)]
		}
	case KindDisplayName:
		if slug, ok = g.byName[normalizeKey(id.Value)]; !ok {
			slug, ok = g.byNameCompact[compactKey(id.Value)]
		}
	}
	if !ok {
		return entities.Locality{}, false
	}
	return g.nodes[slug], true
}

// ResolveText tags free-form input with ParseIdentifier and resolves it.
// Unknown input yields false.
func (g *Graph) ResolveText(text string) (entities.Locality, bool) {
	return g.Resolve(ParseIdentifier(text))
}

// ShortestPath runs Dijkstra between two locality identifiers.
// Among equally distant frontier nodes the lexicographically smallest slug is
// expanded first. Distance is rounded to two decimals.
func (g *Graph) ShortestPath(source, target Identifier) (*Route, bool) {
	src, ok := g.Resolve(source)
	if !ok {
		return nil, false
	}
	dst, ok := g.Resolve(target)
	if !ok {
		return nil, false
	}
	if src.Slug == dst.Slug {
		return &Route{DistanceKm: 0, Path: []entities.Locality{src}}, true
	}

	dist := map[string]float64{src.Slug: 0}
	prev := make(map[string]string)
	visited := make(map[string]bool, len(g.order))

	for {
		current := ""
		best := math.Inf(1)
		for slug, d := range dist {
			if visited[slug] {
				continue
			}
			if d < best || (d == best && slug < current) {
				current, best = slug, d
			}
		}
		if current == "" {
			return nil, false
		}
		if current == dst.Slug {
			break
		}
		visited[current] = true

		for next, w := range g.adjacency[current] {
			if visited[next] {
				continue
			}
			candidate := best + w
			if old, seen := dist[next]; !seen || candidate < old {
				dist[next] = candidate
				prev[next] = current
			}
		}
	}

	var path []entities.Locality
	for at := dst.Slug; ; at = prev[at] {
		path = append(path, g.nodes[at])
		if at == src.Slug {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return &Route{DistanceKm: geo.Round(dist[dst.Slug], 2), Path: path}, true
}

// Nearby returns every other locality within radiusKm of origin by
// straight-line distance, nearest first. Graph connectivity is ignored.
func (g *Graph) Nearby(origin Identifier, radiusKm float64) ([]NearbyLocality, bool) {
	o, ok := g.Resolve(origin)
	if !ok {
		return nil, false
	}
	return g.within(o.Location, radiusKm, o.Slug), true
}

// NearbyLocation is Nearby for raw coordinates
func (g *Graph) NearbyLocation(origin entities.Location, radiusKm float64) []NearbyLocality {
	return g.within(origin, radiusKm, "")
}

func (g *Graph) within(origin entities.Location, radiusKm float64, skip string) []NearbyLocality {
	out := []NearbyLocality{}
	for _, slug := range g.order {
		if slug == skip {
			continue
		}
		l := g.nodes[slug]
		d := origin.DistanceKm(l.Location)
		if d <= radiusKm {
			out = append(out, NearbyLocality{Locality: l, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	for i := range out {
		out[i].DistanceKm = geo.Round(out[i].DistanceKm, 2)
	}
	return out
}
