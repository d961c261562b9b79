package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

const (
	// ResponseCachePrefix namespaces cached HTTP bodies in the shared cache
	ResponseCachePrefix = "http:cache:"

	// CacheStatusHeader reports HIT or MISS on cacheable routes
	CacheStatusHeader = "X-Cache"
)

// CacheRule makes GET responses under Prefix cacheable for TTLSeconds.
// Query parameters named in FoldParams are trimmed and lower-cased before
// keying, so "Tinkune" and "tinkune " share an entry.
type CacheRule struct {
	Prefix     string
	TTLSeconds int
	FoldParams []string
}

// CacheMiddleware caches successful GET responses of read-only routes
type CacheMiddleware struct {
	cache providers.CacheProvider
	rules []CacheRule // longest prefix first
}

type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// NewCacheMiddleware caches the locality catalog, routes and distances. The
// area graph never changes at runtime so these entries only expire.
func NewCacheMiddleware(cache providers.CacheProvider) *CacheMiddleware {
	return NewCacheMiddlewareWithRules(cache,
		CacheRule{Prefix: "/api/localities", TTLSeconds: 3600, FoldParams: []string{"q", "from", "to"}},
		CacheRule{Prefix: "/api/distance", TTLSeconds: 3600, FoldParams: []string{"from_locality", "to_locality"}},
	)
}

// NewCacheMiddlewareWithRules creates a cache middleware with custom rules
func NewCacheMiddlewareWithRules(cache providers.CacheProvider, rules ...CacheRule) *CacheMiddleware {
	sorted := append([]CacheRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Prefix) > len(sorted[j].Prefix) })
	return &CacheMiddleware{cache: cache, rules: sorted}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}
		rule, ok := m.match(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		logger := observability.LoggerFromContext(r.Context())
		key := cacheKey(r, rule)

		if entry, ok := m.load(r, key); ok {
			w.Header().Set(CacheStatusHeader, "HIT")
			w.Header().Set("Content-Type", entry.ContentType)
			w.WriteHeader(http.StatusOK)
			w.Write(entry.Body)
			return
		}

		w.Header().Set(CacheStatusHeader, "MISS")
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode != http.StatusOK || recorder.body.Len() == 0 {
			return
		}
		data, err := json.Marshal(cachedResponse{
			ContentType: w.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := m.cache.Set(r.Context(), key, data, rule.TTLSeconds); err != nil {
			logger.Warn().Err(err).Str("path", r.URL.Path).Msg("response cache write failed")
		}
	})
}

func (m *CacheMiddleware) load(r *http.Request, key string) (cachedResponse, bool) {
	var entry cachedResponse
	data, err := m.cache.Get(r.Context(), key)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("response cache read failed")
		return entry, false
	}
	if data == nil || json.Unmarshal(data, &entry) != nil {
		return entry, false
	}
	if entry.ContentType == "" {
		entry.ContentType = "application/json"
	}
	return entry, true
}

// match finds the rule whose prefix equals path or is a parent segment of it
func (m *CacheMiddleware) match(path string) (CacheRule, bool) {
	for _, rule := range m.rules {
		if path == rule.Prefix || strings.HasPrefix(path, rule.Prefix+"/") {
			return rule, true
		}
	}
	return CacheRule{}, false
}

// cacheKey hashes the path and the canonical query; url.Values.Encode sorts
// by parameter name
func cacheKey(r *http.Request, rule CacheRule) string {
	query := r.URL.Query()
	for _, name := range rule.FoldParams {
		if values, ok := query[name]; ok {
			folded := make([]string, len(values))
			for i, v := range values {
				folded[i] = strings.ToLower(strings.TrimSpace(v))
			}
			query[name] = folded
		}
	}

	canonical := r.URL.Path
	if len(query) > 0 {
		canonical += "?" + query.Encode()
	}
	hash := sha256.Sum256([]byte(canonical))
	return ResponseCachePrefix + hex.EncodeToString(hash[:])
}

// responseRecorder tees the response body for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
