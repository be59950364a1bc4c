// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(EventsTracked.WithLabelValues("purchase"))

	RecordEvent("purchase")
	RecordEvent("purchase")
	RecordEvent("view")

	assert.Equal(t, before+2, testutil.ToFloat64(EventsTracked.WithLabelValues("purchase")))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/recommendations", "200"))

	RecordAPIRequest("GET", "/api/v1/recommendations", 200, 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/recommendations", "200")))
}

func TestRecordStorageError(t *testing.T) {
	before := testutil.ToFloat64(StorageErrors.WithLabelValues("set"))

	RecordStorageError("set")

	assert.Equal(t, before+1, testutil.ToFloat64(StorageErrors.WithLabelValues("set")))
}

func TestCacheStatsCollectorReadsSourceAtScrape(t *testing.T) {
	entries, hits := 42, int64(10)
	collector := NewCacheStatsCollector(func() (int, int64, int64, int64) {
		return entries, hits, 3, 1
	})

	expected := `
# HELP shopsense_cache_entries Current number of fast-tier cache entries
# TYPE shopsense_cache_entries gauge
shopsense_cache_entries 42
# HELP shopsense_cache_evictions_total Cumulative fast-tier capacity evictions
# TYPE shopsense_cache_evictions_total counter
shopsense_cache_evictions_total 1
# HELP shopsense_cache_hits_total Cumulative fast-tier cache hits
# TYPE shopsense_cache_hits_total counter
shopsense_cache_hits_total 10
# HELP shopsense_cache_misses_total Cumulative cache misses across both tiers
# TYPE shopsense_cache_misses_total counter
shopsense_cache_misses_total 3
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))

	// Each scrape re-reads the source; no push step in between.
	entries, hits = 43, 11
	updated := `
# HELP shopsense_cache_entries Current number of fast-tier cache entries
# TYPE shopsense_cache_entries gauge
shopsense_cache_entries 43
# HELP shopsense_cache_hits_total Cumulative fast-tier cache hits
# TYPE shopsense_cache_hits_total counter
shopsense_cache_hits_total 11
`
	assert.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(updated),
		"shopsense_cache_entries", "shopsense_cache_hits_total"))
}
