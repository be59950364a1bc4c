// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package recommend implements the scoring and similarity engines and the
// facade the UI layer consumes.
//
// This is a deterministic, explainable, single-visitor heuristic ranker:
// there is no model training and no aggregation across users. Every score is
// a pure function of the current preference profile and the product's own
// fields, so the same inputs always produce the same ordering.
package recommend

import (
	"math"
	"sort"

	"github.com/shopsense/shopsense/internal/catalog"
	"github.com/shopsense/shopsense/internal/tracker"
)

// Scoring factors. Category and brand affinity scale the whole preference
// bucket; tag weights are summed unscaled per matching tag. Rating and sales
// are popularity boosts independent of personalization. The recency penalty
// halves the entire score after all additive terms.
const (
	categoryFactor = 2.0
	brandFactor    = 1.5
	priceFactor    = 0.5
	ratingFactor   = 2.0
	salesFactor    = 3.0
	recencyPenalty = 0.5
)

// scorer scores products against one snapshot of visitor state.
// Snapshotting keeps a ranking pass consistent even if events arrive
// mid-iteration.
type scorer struct {
	profile tracker.Profile
	recent  map[string]struct{}
}

func newScorer(profile tracker.Profile, recentIDs []string) scorer {
	recent := make(map[string]struct{}, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = struct{}{}
	}
	return scorer{profile: profile, recent: recent}
}

// score computes the relevance score for a product. All terms are additive
// and optional fields contribute zero; the recency penalty applies last.
func (s scorer) score(p catalog.Product) float64 {
	var score float64

	if p.Category != "" {
		score += categoryFactor * s.profile.Categories[p.Category]
	}
	if p.Brand != "" {
		score += brandFactor * s.profile.Brands[p.Brand]
	}
	for _, tag := range p.Tags {
		score += s.profile.Tags[tag]
	}
	score += priceFactor * s.profile.PriceRanges[tracker.BucketFor(p.Price)]

	score += ratingFactor * p.Rating

	sales := p.Sales
	if sales == 0 {
		sales = 1
	}
	score += salesFactor * math.Log10(float64(sales)+1)

	if _, viewed := s.recent[p.ID]; viewed {
		score *= recencyPenalty
	}

	return score
}

// Options filters and sizes a recommendation request.
type Options struct {
	// Limit caps the number of returned products. Default: 10.
	Limit int

	// ExcludeIDs removes specific products, e.g. the one currently on
	// screen or items already in the cart.
	ExcludeIDs []string

	// Category restricts results to a single category when non-empty.
	Category string
}

// DefaultLimit is the recommendation count when Options.Limit is zero.
const DefaultLimit = 10

// rank filters, scores and stable-sorts products descending by score.
// Ties keep the original catalog order.
func (s scorer) rank(products []catalog.Product, opts Options) []catalog.Product {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	exclude := make(map[string]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		exclude[id] = struct{}{}
	}

	type scored struct {
		product catalog.Product
		score   float64
	}

	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		candidates = append(candidates, scored{product: p, score: s.score(p)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]catalog.Product, len(candidates))
	for i, c := range candidates {
		out[i] = c.product
	}
	return out
}
