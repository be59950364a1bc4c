// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package api provides the HTTP surface of the personalization service
// using the chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopsense/shopsense/internal/metrics"
)

// RouterConfig carries the HTTP-level knobs the router needs.
type RouterConfig struct {
	// RateLimit is requests per minute per client IP. Zero disables
	// rate limiting.
	RateLimit int

	// CORSOrigins lists allowed origins. Empty means same-origin only.
	CORSOrigins []string
}

// NewRouter assembles the full route tree around the handler.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(prometheusMiddleware)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}

		r.Post("/events", h.TrackEvent)
		r.Get("/recommendations", h.Recommendations)
		r.Get("/products/{id}/similar", h.SimilarProducts)
		r.Get("/products/{id}/bought-together", h.BoughtTogether)
		r.Get("/recently-viewed", h.RecentlyViewed)
		r.Get("/browsing", h.Browsing)
		r.Delete("/user-data", h.ClearUserData)

		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/invalidate", h.InvalidateCache)

		r.Get("/health", h.Health)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// prometheusMiddleware records request counts and latency per route
// pattern, not per raw URL, to keep label cardinality bounded.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
