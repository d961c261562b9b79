package areagraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/domain/entities"
)

func slugs(path []entities.Locality) []string {
	out := make([]string, len(path))
	for i, l := range path {
		out[i] = l.Slug
	}
	return out
}

func mustDefault(t *testing.T) *Graph {
	t.Helper()
	g, err := Default()
	require.NoError(t, err)
	return g
}

func TestShortestPath_TinkuneToBalkumari(t *testing.T) {
	g := mustDefault(t)

	_, direct := g.adjacency["tinkune"]["balkumari"]
	require.False(t, direct, "fixture must not have a direct edge")

	route, ok := g.ShortestPath(BySlug("tinkune"), BySlug("balkumari"))
	require.True(t, ok)
	assert.Equal(t, 3.0, route.DistanceKm)
	assert.Equal(t, []string{"tinkune", "koteshwor", "balkumari"}, slugs(route.Path))
}

func TestShortestPath_Identity(t *testing.T) {
	g := mustDefault(t)

	route, ok := g.ShortestPath(ByDisplayName("Koteshwor"), BySlug("koteshwor"))
	require.True(t, ok)
	assert.Equal(t, 0.0, route.DistanceKm)
	assert.Equal(t, []string{"koteshwor"}, slugs(route.Path))
}

func TestShortestPath_SymmetryAndTriangle(t *testing.T) {
	g := mustDefault(t)
	all := g.Localities()

	dist := make(map[[2]string]float64)
	for _, a := range all {
		for _, b := range all {
			route, ok := g.ShortestPath(BySlug(a.Slug), BySlug(b.Slug))
			require.True(t, ok, "%s -> %s should be routable", a.Slug, b.Slug)
			dist[[2]string{a.Slug, b.Slug}] = route.DistanceKm
		}
	}

	for _, a := range all {
		for _, b := range all {
			ab := dist[[2]string{a.Slug, b.Slug}]
			assert.Equal(t, ab, dist[[2]string{b.Slug, a.Slug}], "symmetry %s/%s", a.Slug, b.Slug)

			for _, c := range all {
				ac := dist[[2]string{a.Slug, c.Slug}]
				cb := dist[[2]string{c.Slug, b.Slug}]
				// each leg is rounded to 2 decimals
				assert.LessOrEqual(t, ab, ac+cb+0.011, "triangle %s %s %s", a.Slug, c.Slug, b.Slug)
			}
		}
	}
}

func TestShortestPath_UnknownAndUnreachable(t *testing.T) {
	g, err := Build([]entities.Locality{
		{Slug: "a", DisplayName: "A", Neighbors: []entities.Neighbor{{Slug: "b", DistanceKm: 1}}},
		{Slug: "b", DisplayName: "B"},
		{Slug: "island", DisplayName: "Island"},
	})
	require.NoError(t, err)

	_, ok := g.ShortestPath(BySlug("a"), BySlug("nowhere"))
	assert.False(t, ok)

	_, ok = g.ShortestPath(BySlug("a"), BySlug("island"))
	assert.False(t, ok)

	route, ok := g.ShortestPath(BySlug("b"), BySlug("a"))
	require.True(t, ok, "reverse edge is synthesized")
	assert.Equal(t, 1.0, route.DistanceKm)
}

func TestShortestPath_DeterministicTieBreak(t *testing.T) {
	// two equal paths a-b-d and a-c-d; b is expanded before c
	g, err := Build([]entities.Locality{
		{Slug: "a", Neighbors: []entities.Neighbor{{Slug: "c", DistanceKm: 1}, {Slug: "b", DistanceKm: 1}}},
		{Slug: "b", Neighbors: []entities.Neighbor{{Slug: "d", DistanceKm: 1}}},
		{Slug: "c", Neighbors: []entities.Neighbor{{Slug: "d", DistanceKm: 1}}},
		{Slug: "d"},
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		route, ok := g.ShortestPath(BySlug("a"), BySlug("d"))
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b", "d"}, slugs(route.Path))
	}
}

func TestBuild_ExplicitEdgesKeepOwnWeights(t *testing.T) {
	g, err := Build([]entities.Locality{
		{Slug: "x", Neighbors: []entities.Neighbor{{Slug: "y", DistanceKm: 2}}},
		{Slug: "y", Neighbors: []entities.Neighbor{{Slug: "x", DistanceKm: 5}}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2.0, g.adjacency["x"]["y"])
	assert.Equal(t, 5.0, g.adjacency["y"]["x"])
}

func TestBuild_RejectsBadCatalogs(t *testing.T) {
	_, err := Build([]entities.Locality{{Slug: "a"}, {Slug: "a"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = Build([]entities.Locality{{Slug: "a", Neighbors: []entities.Neighbor{{Slug: "z", DistanceKm: 1}}}})
	assert.ErrorContains(t, err, "unknown neighbor")

	_, err = Build([]entities.Locality{{Slug: "a", Neighbors: []entities.Neighbor{{Slug: "b", DistanceKm: 0}}}, {Slug: "b"}})
	assert.ErrorContains(t, err, "invalid distance")
}

func TestResolve(t *testing.T) {
	g := mustDefault(t)

	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"slug", "new-baneshwor", "new-baneshwor", true},
		{"display name any case", "NEW baneshwor", "new-baneshwor", true},
		{"extra whitespace", "  New   Baneshwor ", "new-baneshwor", true},
		{"whitespace stripped", "newbaneshwor", "new-baneshwor", true},
		{"multi word name", "patan durbar square", "patan", true},
		{"unknown", "pokhara", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := g.ResolveText(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, l.Slug)
		})
	}

	l, ok := g.Resolve(ByDisplayName("Madhyapur Thimi"))
	require.True(t, ok)
	assert.Equal(t, "thimi", l.Slug)

	_, ok = g.Resolve(BySlug("Madhyapur Thimi"))
	assert.False(t, ok, "a display name is not looked up in the slug tables")

	_, ok = g.Resolve(ByDisplayName("thimi"))
	assert.False(t, ok, "a slug is not looked up in the name tables")

	l, ok = g.Resolve(ByDisplayName("MadhyapurThimi"))
	require.True(t, ok)
	assert.Equal(t, "thimi", l.Slug)
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  Identifier
	}{
		{"koteshwor", BySlug("koteshwor")},
		{" new-baneshwor ", BySlug("new-baneshwor")},
		{"Koteshwor", ByDisplayName("Koteshwor")},
		{"patan durbar square", ByDisplayName("patan durbar square")},
		{"thimi!", ByDisplayName("thimi!")},
		{"  ", Identifier{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIdentifier(tt.input))
		})
	}

	assert.Equal(t, "slug:koteshwor", BySlug("koteshwor").String())
	assert.Equal(t, "name:Koteshwor", ByDisplayName("Koteshwor").String())
}

func TestNearby(t *testing.T) {
	g := mustDefault(t)

	near, ok := g.Nearby(BySlug("tinkune"), 2.0)
	require.True(t, ok)
	require.NotEmpty(t, near)

	for i, n := range near {
		assert.NotEqual(t, "tinkune", n.Locality.Slug)
		assert.LessOrEqual(t, n.DistanceKm, 2.0)
		if i > 0 {
			assert.GreaterOrEqual(t, n.DistanceKm, near[i-1].DistanceKm)
		}
	}

	_, ok = g.Nearby(ByDisplayName("Atlantis"), 5)
	assert.False(t, ok)
}

func TestNearby_IgnoresConnectivity(t *testing.T) {
	g, err := Build([]entities.Locality{
		{Slug: "a", Location: entities.Location{Latitude: 27.70, Longitude: 85.30}},
		{Slug: "b", Location: entities.Location{Latitude: 27.701, Longitude: 85.30}},
	})
	require.NoError(t, err)

	near, ok := g.Nearby(BySlug("a"), 1)
	require.True(t, ok)
	require.Len(t, near, 1)
	assert.Equal(t, "b", near[0].Locality.Slug)
}

func TestDefault_SingleSnapshotUnderConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	graphs := make([]*Graph, 16)
	for i := range graphs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i], _ = Default()
		}(i)
	}
	wg.Wait()

	for _, g := range graphs {
		assert.Same(t, graphs[0], g)
	}
}
