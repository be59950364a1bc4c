// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package api

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/shopsense/shopsense/internal/cache"
	"github.com/shopsense/shopsense/internal/catalog"
	"github.com/shopsense/shopsense/internal/metrics"
	"github.com/shopsense/shopsense/internal/recommend"
	"github.com/shopsense/shopsense/internal/tracker"
)

var validate = validator.New()

// Handler serves the personalization API. All product surfaces are computed
// against the catalog snapshot returned by the provider.
type Handler struct {
	recommender *recommend.Recommender
	catalog     catalog.Provider
	cache       *cache.Store
	logger      zerolog.Logger
}

// NewHandler wires the API handler to its backing services.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func NewHandler(rec *recommend.Recommender, provider catalog.Provider, store *cache.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		recommender: rec,
		catalog:     provider,
		cache:       store,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// trackEventRequest is the POST /api/v1/events body.
type trackEventRequest struct {
	Type      string   `json:"type" validate:"required"`
	ProductID string   `json:"productId" validate:"omitempty,max=128"`
	Category  string   `json:"category" validate:"omitempty,max=128"`
	Brand     string   `json:"brand" validate:"omitempty,max=128"`
	Tags      []string `json:"tags" validate:"omitempty,max=32,dive,max=64"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
}

// TrackEvent records one behavioral event and returns it.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	kind, err := tracker.ParseKind(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "UNKNOWN_EVENT_TYPE", err.Error(), nil)
		return
	}

	event := h.recommender.TrackEvent(kind, tracker.Payload{
		ProductID: req.ProductID,
		Category:  req.Category,
		Brand:     req.Brand,
		Tags:      req.Tags,
		Price:     req.Price,
	})

	metrics.RecordEvent(kind.String())
	respondData(w, http.StatusCreated, event, 1)
}

// Recommendations returns the top-ranked products for the visitor.
// Query parameters: limit, category, exclude (comma-separated ids).
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	products, ok := h.loadCatalog(w)
	if !ok {
		return
	}

	opts := recommend.Options{
		Limit:    getIntParam(r, "limit", 0),
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.ExcludeIDs = append(opts.ExcludeIDs, id)
			}
		}
	}

	start := time.Now()
	ranked := h.recommender.GetRecommendations(products, opts)
	metrics.RecordRecommendation("recommendations", time.Since(start))

	respondData(w, http.StatusOK, ranked, len(ranked))
}

// SimilarProducts returns products similar to the one in the URL.
func (h *Handler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	ref, products, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	start := time.Now()
	similar := h.recommender.GetSimilarProducts(ref, products, getIntParam(r, "limit", 0))
	metrics.RecordRecommendation("similar", time.Since(start))

	respondData(w, http.StatusOK, similar, len(similar))
}

// BoughtTogether returns the frequently-bought-together companions.
func (h *Handler) BoughtTogether(w http.ResponseWriter, r *http.Request) {
	ref, products, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	together := h.recommender.GetFrequentlyBoughtTogether(ref, products)
	respondData(w, http.StatusOK, together, len(together))
}

// RecentlyViewed returns the visitor's view history projected onto the
// catalog, most recent first.
func (h *Handler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	products, ok := h.loadCatalog(w)
	if !ok {
		return
	}

	recent := h.recommender.GetRecentlyViewed(products)
	respondData(w, http.StatusOK, recent, len(recent))
}

// Browsing returns history-derived products, falling back to popularity.
func (h *Handler) Browsing(w http.ResponseWriter, r *http.Request) {
	products, ok := h.loadCatalog(w)
	if !ok {
		return
	}

	start := time.Now()
	result := h.recommender.GetBasedOnBrowsing(products, getIntParam(r, "limit", 0))
	metrics.RecordRecommendation("browsing", time.Since(start))

	respondData(w, http.StatusOK, result, len(result))
}

// ClearUserData wipes all per-visitor personalization state.
func (h *Handler) ClearUserData(w http.ResponseWriter, r *http.Request) {
	h.recommender.ClearUserData()
	respondData(w, http.StatusOK, map[string]string{"cleared": "user-data"}, 0)
}

// CacheStats reports cache occupancy and efficiency counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.GetStats()

	respondData(w, http.StatusOK, map[string]any{
		"memorySize": stats.MemorySize,
		"memoryKeys": stats.MemoryKeys,
		"hits":       stats.Hits,
		"misses":     stats.Misses,
		"evictions":  stats.Evictions,
		"breaker":    h.cache.BreakerState(),
	}, stats.MemorySize)
}

// invalidateCacheRequest is the POST /api/v1/cache/invalidate body.
type invalidateCacheRequest struct {
	Pattern string `json:"pattern" validate:"required,max=256"`
}

// InvalidateCache removes all cache entries whose keys match the given
// regular expression pattern.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	pattern, err := regexp.Compile(req.Pattern)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PATTERN", "pattern is not a valid regular expression", err)
		return
	}

	h.cache.InvalidatePattern(pattern)
	respondData(w, http.StatusOK, map[string]string{"invalidated": req.Pattern}, 0)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"breaker": h.cache.BreakerState(),
	}, 0)
}

func (h *Handler) loadCatalog(w http.ResponseWriter) ([]catalog.Product, bool) {
	products, err := h.catalog.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", "failed to load product catalog", err)
		return nil, false
	}
	return products, true
}

func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (catalog.Product, []catalog.Product, bool) {
	products, ok := h.loadCatalog(w)
	if !ok {
		return catalog.Product{}, nil, false
	}

	id := chi.URLParam(r, "id")
	ref, found := catalog.FindByID(products, id)
	if !found {
		respondError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "no product with id "+id, nil)
		return catalog.Product{}, nil, false
	}
	return ref, products, true
}
