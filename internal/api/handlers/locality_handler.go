package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/areagraph"
)

const defaultNearbyRadiusKm = 3.0

// LocalityHandler serves the locality catalog, routes and distances
type LocalityHandler struct {
	graph    *areagraph.Graph
	resolver *services.DistanceResolver
}

// NewLocalityHandler creates a new locality handler
func NewLocalityHandler(resolver *services.DistanceResolver) *LocalityHandler {
	return &LocalityHandler{
		graph:    resolver.Graph(),
		resolver: resolver,
	}
}

// ListLocalities handles GET /api/localities
func (h *LocalityHandler) ListLocalities(w http.ResponseWriter, r *http.Request) {
	localities := h.graph.Localities()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"localities": localities,
		"count":      len(localities),
	})
}

// queryIdentifier reads a locality reference from base_slug, base_name or
// the free-form base parameter, in that order
func queryIdentifier(r *http.Request, base string) (areagraph.Identifier, bool) {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get(base + "_slug")); v != "" {
		return areagraph.BySlug(v), true
	}
	if v := strings.TrimSpace(q.Get(base + "_name")); v != "" {
		return areagraph.ByDisplayName(v), true
	}
	id := areagraph.ParseIdentifier(q.Get(base))
	return id, id.Value != ""
}

// ResolveLocality handles GET /api/localities/resolve?slug=|name=|q=
func (h *LocalityHandler) ResolveLocality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var id areagraph.Identifier
	switch {
	case strings.TrimSpace(q.Get("slug")) != "":
		id = areagraph.BySlug(strings.TrimSpace(q.Get("slug")))
	case strings.TrimSpace(q.Get("name")) != "":
		id = areagraph.ByDisplayName(strings.TrimSpace(q.Get("name")))
	default:
		id = areagraph.ParseIdentifier(q.Get("q"))
	}
	if id.Value == "" {
		respondWithError(w, http.StatusBadRequest, "slug, name or q is required")
		return
	}

	locality, ok := h.graph.Resolve(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "unknown locality")
		return
	}
	respondWithJSON(w, http.StatusOK, locality)
}

// Route handles GET /api/localities/route?from=&to=. from_slug/from_name and
// to_slug/to_name pin the lookup kind.
func (h *LocalityHandler) Route(w http.ResponseWriter, r *http.Request) {
	from, okFrom := queryIdentifier(r, "from")
	to, okTo := queryIdentifier(r, "to")
	if !okFrom || !okTo {
		respondWithError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	if _, ok := h.graph.Resolve(from); !ok {
		respondWithError(w, http.StatusNotFound, "unknown locality: "+from.Value)
		return
	}
	if _, ok := h.graph.Resolve(to); !ok {
		respondWithError(w, http.StatusNotFound, "unknown locality: "+to.Value)
		return
	}

	route, ok := h.graph.ShortestPath(from, to)
	if !ok {
		respondWithError(w, http.StatusNotFound, "no route between localities")
		return
	}
	respondWithJSON(w, http.StatusOK, route)
}

// Nearby handles GET /api/localities/{slug}/nearby?radius_km=
func (h *LocalityHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	origin, ok := h.graph.Resolve(areagraph.BySlug(r.PathValue("slug")))
	if !ok {
		respondWithError(w, http.StatusNotFound, "unknown locality")
		return
	}

	radius, err := queryFloat(r, "radius_km")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	radiusKm := defaultNearbyRadiusKm
	if radius != nil {
		if *radius <= 0 {
			respondWithError(w, http.StatusBadRequest, "radius_km must be positive")
			return
		}
		radiusKm = *radius
	}

	nearby, _ := h.graph.Nearby(areagraph.BySlug(origin.Slug), radiusKm)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"origin":     origin.Slug,
		"radius_km":  radiusKm,
		"localities": nearby,
	})
}

// Distance handles GET /api/distance
func (h *LocalityHandler) Distance(w http.ResponseWriter, r *http.Request) {
	from, err := queryLocationRef(r, "from_locality", "from_lat", "from_lng")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	to, err := queryLocationRef(r, "to_locality", "to_lat", "to_lng")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		respondWithError(w, http.StatusBadRequest, "both endpoints need a locality or coordinates")
		return
	}

	km, ok := h.resolver.Resolve(from, to)
	if !ok {
		respondWithError(w, http.StatusNotFound, "distance unknown")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]float64{"distance_km": km})
}
