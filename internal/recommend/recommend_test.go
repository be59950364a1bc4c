// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package recommend

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/shopsense/internal/catalog"
	"github.com/shopsense/shopsense/internal/kvstore"
	"github.com/shopsense/shopsense/internal/logging"
	"github.com/shopsense/shopsense/internal/tracker"
)

func newTestRecommender(t *testing.T) *Recommender {
	t.Helper()

	logger := logging.NewTestLogger(io.Discard)
	return New(tracker.New(kvstore.NewMemoryStore(), logger), logger)
}

func price(v float64) *float64 { return &v }

func testCatalog() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Name: "Trail Shoe", Category: "shoes", Brand: "acme", Tags: []string{"trail", "running"}, Price: 1200, Rating: 4.5, Sales: 300},
		{ID: "p2", Name: "Road Shoe", Category: "shoes", Brand: "zenith", Tags: []string{"road", "running"}, Price: 900, Rating: 4.0, Sales: 1200},
		{ID: "p3", Name: "Rain Jacket", Category: "jackets", Brand: "acme", Tags: []string{"rain", "outdoor"}, Price: 4500, Rating: 3.5, Sales: 80},
		{ID: "p4", Name: "Down Jacket", Category: "jackets", Brand: "polar", Tags: []string{"winter", "outdoor"}, Price: 15000, Rating: 4.8, Sales: 40},
		{ID: "p5", Name: "Watch", Category: "accessories", Brand: "zenith", Tags: []string{"gps", "running"}, Price: 25000, Rating: 4.2, Sales: 500},
	}
}

func TestScoreEmptyProfileIsPopularityOnly(t *testing.T) {
	r := newTestRecommender(t)

	p := catalog.Product{ID: "p1", Category: "shoes", Rating: 4.0, Sales: 99}
	want := ratingFactor*4.0 + salesFactor*math.Log10(100)
	assert.InDelta(t, want, r.Score(p), 1e-9)
}

func TestScoreZeroSalesFloorsToOne(t *testing.T) {
	r := newTestRecommender(t)

	p := catalog.Product{ID: "p1", Rating: 0, Sales: 0}
	// log10(1+1): zero sales must still produce a nonzero novelty term.
	assert.InDelta(t, salesFactor*math.Log10(2), r.Score(p), 1e-9)
}

func TestScoreCombinesProfileAffinities(t *testing.T) {
	r := newTestRecommender(t)

	r.TrackEvent(tracker.KindPurchase, tracker.Payload{
		ProductID: "p0",
		Category:  "shoes",
		Brand:     "acme",
		Tags:      []string{"trail", "running"},
		Price:     price(1200),
	})

	p := catalog.Product{
		ID:       "p1",
		Category: "shoes",
		Brand:    "acme",
		Tags:     []string{"trail", "hiking"},
		Price:    1500,
		Rating:   4.0,
		Sales:    9,
	}

	// Purchase weight 10 lands on every facet; the candidate matches the
	// category, the brand, one tag and the mid price bucket.
	want := categoryFactor*10 + brandFactor*10 + 10 + priceFactor*10 +
		ratingFactor*4.0 + salesFactor*math.Log10(10)
	assert.InDelta(t, want, r.Score(p), 1e-9)
}

func TestScoreMonotonicReinforcement(t *testing.T) {
	r := newTestRecommender(t)
	p := catalog.Product{ID: "p9", Category: "shoes", Rating: 3.0, Sales: 10}

	before := r.Score(p)
	r.TrackEvent(tracker.KindAddToCart, tracker.Payload{ProductID: "px", Category: "shoes"})
	after := r.Score(p)

	assert.Greater(t, after, before)
}

func TestScoreRecencyPenaltyHalvesExactly(t *testing.T) {
	r := newTestRecommender(t)

	p := catalog.Product{ID: "p1", Category: "shoes", Rating: 4.0, Sales: 50}
	base := r.Score(p)

	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "p1", Category: "shoes"})

	// The view also reinforced the shoes category, so recompute the
	// un-penalized score through an unviewed twin.
	twin := p
	twin.ID = "p1-twin"
	unpenalized := r.Score(twin)

	assert.Greater(t, unpenalized, base)
	assert.InDelta(t, unpenalized*recencyPenalty, r.Score(p), 1e-9)
}

func TestGetRecommendationsEmptyProfilePopularityOrder(t *testing.T) {
	r := newTestRecommender(t)

	products := []catalog.Product{
		{ID: "1", Category: "a", Rating: 5, Sales: 100},
		{ID: "2", Category: "b", Rating: 1, Sales: 0},
	}

	got := r.GetRecommendations(products, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestGetRecommendationsStableOrderOnTies(t *testing.T) {
	r := newTestRecommender(t)

	products := []catalog.Product{
		{ID: "a", Rating: 2, Sales: 10},
		{ID: "b", Rating: 2, Sales: 10},
		{ID: "c", Rating: 2, Sales: 10},
	}

	got := r.GetRecommendations(products, Options{})
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestGetRecommendationsFilters(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	t.Run("limit", func(t *testing.T) {
		got := r.GetRecommendations(products, Options{Limit: 2})
		assert.Len(t, got, 2)
	})

	t.Run("exclude", func(t *testing.T) {
		got := r.GetRecommendations(products, Options{ExcludeIDs: []string{"p1", "p2"}})
		for _, p := range got {
			assert.NotContains(t, []string{"p1", "p2"}, p.ID)
		}
		assert.Len(t, got, 3)
	})

	t.Run("category", func(t *testing.T) {
		got := r.GetRecommendations(products, Options{Category: "jackets"})
		require.Len(t, got, 2)
		for _, p := range got {
			assert.Equal(t, "jackets", p.Category)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		many := make([]catalog.Product, 0, 15)
		for i := 0; i < 15; i++ {
			many = append(many, catalog.Product{ID: string(rune('a' + i))})
		}
		got := r.GetRecommendations(many, Options{})
		assert.Len(t, got, DefaultLimit)
	})
}

func TestSimilarityComponents(t *testing.T) {
	ref := catalog.Product{ID: "r", Category: "shoes", Brand: "acme", Price: 1000, Tags: []string{"trail", "running"}}

	tests := []struct {
		name      string
		candidate catalog.Product
		want      float64
	}{
		{
			name:      "category only",
			candidate: catalog.Product{ID: "c", Category: "shoes", Price: 5000},
			want:      similarCategoryBonus,
		},
		{
			name:      "brand only",
			candidate: catalog.Product{ID: "c", Brand: "acme", Price: 5000},
			want:      similarBrandBonus,
		},
		{
			name:      "close price within 20 percent",
			candidate: catalog.Product{ID: "c", Price: 1100},
			want:      closePriceBonus,
		},
		{
			name:      "near price within 50 percent",
			candidate: catalog.Product{ID: "c", Price: 1400},
			want:      nearPriceBonus,
		},
		{
			name:      "far price no bonus",
			candidate: catalog.Product{ID: "c", Price: 5000},
			want:      0,
		},
		{
			name:      "shared tags are distinct",
			candidate: catalog.Product{ID: "c", Price: 5000, Tags: []string{"running", "running", "trail"}},
			want:      2 * sharedTagFactor,
		},
		{
			name: "all signals stack",
			candidate: catalog.Product{
				ID: "c", Category: "shoes", Brand: "acme", Price: 1000,
				Tags: []string{"trail"},
			},
			want: similarCategoryBonus + similarBrandBonus + closePriceBonus + sharedTagFactor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity(ref, tt.candidate), 1e-9)
		})
	}
}

func TestSimilarityGuardsMissingReferenceFields(t *testing.T) {
	ref := catalog.Product{ID: "r", Price: 0}
	candidate := catalog.Product{ID: "c", Price: 0}

	// No category, no brand, zero price: nothing may match by accident.
	assert.Zero(t, similarity(ref, candidate))
}

func TestGetSimilarProducts(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	got := r.GetSimilarProducts(products[0], products, 0)
	require.Len(t, got, DefaultSimilarLimit)

	for _, p := range got {
		assert.NotEqual(t, "p1", p.ID, "reference product must be excluded")
	}

	// p2 shares category, a tag and a near price with p1.
	assert.Equal(t, "p2", got[0].ID)
}

func TestGetFrequentlyBoughtTogether(t *testing.T) {
	r := newTestRecommender(t)

	products := []catalog.Product{
		{ID: "ref", Category: "shoes", Rating: 5},
		{ID: "low", Category: "shoes", Rating: 3.9},
		{ID: "a", Category: "shoes", Rating: 4.0},
		{ID: "other", Category: "jackets", Rating: 5},
		{ID: "b", Category: "shoes", Rating: 4.5},
		{ID: "c", Category: "shoes", Rating: 5},
		{ID: "d", Category: "shoes", Rating: 5},
	}

	got := r.GetFrequentlyBoughtTogether(products[0], products)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestGetFrequentlyBoughtTogetherNoCategory(t *testing.T) {
	r := newTestRecommender(t)

	ref := catalog.Product{ID: "ref", Rating: 5}
	products := []catalog.Product{ref, {ID: "a", Category: "", Rating: 5}}

	assert.Empty(t, r.GetFrequentlyBoughtTogether(ref, products))
}

func TestGetRecentlyViewedProjectsOntoCatalog(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "p3"})
	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "gone"})
	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "p1"})

	got := r.GetRecentlyViewed(products)
	require.Len(t, got, 2, "ids absent from the catalog are dropped")
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p3", got[1].ID)
}

func TestGetBasedOnBrowsingFallsBackToPopularity(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	got := r.GetBasedOnBrowsing(products, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p5", got[1].ID)
	assert.Equal(t, "p1", got[2].ID)
}

func TestGetBasedOnBrowsingUsesHistory(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "p4"})
	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "p2"})

	got := r.GetBasedOnBrowsing(products, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p4", got[1].ID)
}

func TestGetBasedOnBrowsingDelistedHistoryIsEmpty(t *testing.T) {
	r := newTestRecommender(t)
	products := testCatalog()

	// A history made entirely of products no longer in the catalog must
	// not trigger the cold-start popularity fallback.
	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "delisted-1"})
	r.TrackEvent(tracker.KindView, tracker.Payload{ProductID: "delisted-2"})

	assert.Empty(t, r.GetBasedOnBrowsing(products, 5))
}

func TestClearUserDataResetsScores(t *testing.T) {
	r := newTestRecommender(t)
	p := catalog.Product{ID: "p1", Category: "shoes", Rating: 4, Sales: 10}

	base := r.Score(p)
	r.TrackEvent(tracker.KindPurchase, tracker.Payload{ProductID: "p1", Category: "shoes"})
	require.NotEqual(t, base, r.Score(p))

	r.ClearUserData()
	assert.InDelta(t, base, r.Score(p), 1e-9)
}
