// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package recommend

import (
	"sort"

	"github.com/shopsense/shopsense/internal/catalog"
)

// Similarity factors. Category is the strongest signal, then brand, then
// price proximity relative to the reference product, then shared tags.
const (
	similarCategoryBonus = 5.0
	similarBrandBonus    = 3.0
	closePriceBonus      = 2.0
	nearPriceBonus       = 1.0
	sharedTagFactor      = 1.5

	closePriceRatio = 0.2
	nearPriceRatio  = 0.5
)

// DefaultSimilarLimit is the "similar products" count when limit is zero.
const DefaultSimilarLimit = 4

// maxBoughtTogether caps the "frequently bought together" surface.
const maxBoughtTogether = 3

// similarity computes the pairwise similarity between a reference product
// and a candidate. Missing fields contribute nothing.
func similarity(ref, candidate catalog.Product) float64 {
	var score float64

	if ref.Category != "" && ref.Category == candidate.Category {
		score += similarCategoryBonus
	}
	if ref.Brand != "" && ref.Brand == candidate.Brand {
		score += similarBrandBonus
	}

	if ref.Price > 0 {
		diff := ref.Price - candidate.Price
		if diff < 0 {
			diff = -diff
		}
		switch ratio := diff / ref.Price; {
		case ratio < closePriceRatio:
			score += closePriceBonus
		case ratio < nearPriceRatio:
			score += nearPriceBonus
		}
	}

	score += sharedTagFactor * float64(sharedTagCount(ref.Tags, candidate.Tags))

	return score
}

// sharedTagCount counts distinct tags present on both products.
func sharedTagCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}

	count := 0
	for _, tag := range b {
		if _, ok := set[tag]; ok {
			count++
			delete(set, tag)
		}
	}
	return count
}

// similarProducts ranks all other products by similarity to the reference.
// Ties keep the original catalog order (stable sort).
func similarProducts(ref catalog.Product, products []catalog.Product, limit int) []catalog.Product {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	type scored struct {
		product catalog.Product
		score   float64
	}

	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		if p.ID == ref.ID {
			continue
		}
		candidates = append(candidates, scored{product: p, score: similarity(ref, p)})
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

// boughtTogether returns up to three same-category products rated 4 or
// higher, in catalog order. There is no co-purchase signal behind this
// surface: it is a documented heuristic stand-in, and deliberately not a
// market-basket algorithm.
func boughtTogether(ref catalog.Product, products []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, 0, maxBoughtTogether)
	for _, p := range products {
		if p.ID == ref.ID {
			continue
		}
		if ref.Category == "" || p.Category != ref.Category {
			continue
		}
		if p.Rating < 4 {
			continue
		}
		out = append(out, p)
		if len(out) == maxBoughtTogether {
			break
		}
	}
	return out
}
