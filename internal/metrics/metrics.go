// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package metrics exposes Prometheus instrumentation for event tracking,
// cache efficiency and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event tracking metrics.
	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_events_tracked_total",
			Help: "Total number of behavioral events tracked, by kind",
		},
		[]string{"kind"},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Recommendation metrics.
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_recommendation_duration_seconds",
			Help:    "Recommendation computation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"surface"},
	)

	// Durable tier metrics.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_storage_errors_total",
			Help: "Total number of swallowed durable storage errors",
		},
		[]string{"operation"},
	)
)

// RecordEvent counts one tracked behavioral event.
func RecordEvent(kind string) {
	EventsTracked.WithLabelValues(kind).Inc()
}

// RecordAPIRequest records latency and outcome for one API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records the computation time of one ranked surface.
func RecordRecommendation(surface string, duration time.Duration) {
	RecommendationDuration.WithLabelValues(surface).Observe(duration.Seconds())
}

// RecordStorageError counts one swallowed durable tier fault.
func RecordStorageError(operation string) {
	StorageErrors.WithLabelValues(operation).Inc()
}

// Cache metrics are read from the cache at scrape time rather than pushed,
// so /metrics never reports stale values between polls.
var (
	cacheEntriesDesc = prometheus.NewDesc(
		"shopsense_cache_entries",
		"Current number of fast-tier cache entries",
		nil, nil,
	)
	cacheHitsDesc = prometheus.NewDesc(
		"shopsense_cache_hits_total",
		"Cumulative fast-tier cache hits",
		nil, nil,
	)
	cacheMissesDesc = prometheus.NewDesc(
		"shopsense_cache_misses_total",
		"Cumulative cache misses across both tiers",
		nil, nil,
	)
	cacheEvictionsDesc = prometheus.NewDesc(
		"shopsense_cache_evictions_total",
		"Cumulative fast-tier capacity evictions",
		nil, nil,
	)
)

// CacheStatsSource supplies a point-in-time snapshot of cache counters.
type CacheStatsSource func() (entries int, hits, misses, evictions int64)

type cacheStatsCollector struct {
	source CacheStatsSource
}

// NewCacheStatsCollector builds a collector that reads cache counters from
// source at every scrape.
func NewCacheStatsCollector(source CacheStatsSource) prometheus.Collector {
	return &cacheStatsCollector{source: source}
}

// RegisterCacheStats registers the scrape-time cache collector with the
// default registry. Call once at startup.
func RegisterCacheStats(source CacheStatsSource) {
	prometheus.MustRegister(NewCacheStatsCollector(source))
}

func (c *cacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheEntriesDesc
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheEvictionsDesc
}

func (c *cacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	entries, hits, misses, evictions := c.source()

	ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(entries))
	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(misses))
	ch <- prometheus.MustNewConstMetric(cacheEvictionsDesc, prometheus.CounterValue, float64(evictions))
}
