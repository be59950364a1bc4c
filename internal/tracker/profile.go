// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package tracker

// PriceBucket generalizes price sensitivity into four fixed ranges instead of
// matching exact prices.
type PriceBucket string

const (
	// BucketBudget covers prices below 1000.
	BucketBudget PriceBucket = "budget"
	// BucketMid covers prices below 5000.
	BucketMid PriceBucket = "mid"
	// BucketPremium covers prices below 20000.
	BucketPremium PriceBucket = "premium"
	// BucketLuxury covers everything above.
	BucketLuxury PriceBucket = "luxury"
)

// Fixed bucket thresholds. Static configuration, never mutated.
const (
	budgetLimit  = 1000
	midLimit     = 5000
	premiumLimit = 20000
)

// BucketFor maps a price to its bucket.
func BucketFor(price float64) PriceBucket {
	switch {
	case price < budgetLimit:
		return BucketBudget
	case price < midLimit:
		return BucketMid
	case price < premiumLimit:
		return BucketPremium
	default:
		return BucketLuxury
	}
}

// Profile holds the accumulated per-visitor preference weights.
// The four maps are independent; keys are created on first reinforcement and
// weights only ever grow (no decay). Reset only by an explicit clear.
type Profile struct {
	Categories  map[string]float64      `json:"categories"`
	Brands      map[string]float64      `json:"brands"`
	Tags        map[string]float64      `json:"tags"`
	PriceRanges map[PriceBucket]float64 `json:"priceRanges"`
}

// NewProfile returns an empty preference profile.
func NewProfile() Profile {
	return Profile{
		Categories:  make(map[string]float64),
		Brands:      make(map[string]float64),
		Tags:        make(map[string]float64),
		PriceRanges: make(map[PriceBucket]float64),
	}
}

// normalize replaces nil maps after deserialization, so a partially
// populated persisted profile never trips a nil map write.
func (p *Profile) normalize() {
	if p.Categories == nil {
		p.Categories = make(map[string]float64)
	}
	if p.Brands == nil {
		p.Brands = make(map[string]float64)
	}
	if p.Tags == nil {
		p.Tags = make(map[string]float64)
	}
	if p.PriceRanges == nil {
		p.PriceRanges = make(map[PriceBucket]float64)
	}
}

// reinforce adds weight to every facet present on the event.
// Each facet receives the full weight; there is no scaling by facet count.
func (p *Profile) reinforce(ev Event, weight float64) {
	if ev.Category != "" {
		p.Categories[ev.Category] += weight
	}
	if ev.Brand != "" {
		p.Brands[ev.Brand] += weight
	}
	for _, tag := range ev.Tags {
		if tag != "" {
			p.Tags[tag] += weight
		}
	}
	if ev.Price != nil {
		p.PriceRanges[BucketFor(*ev.Price)] += weight
	}
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := Profile{
		Categories:  make(map[string]float64, len(p.Categories)),
		Brands:      make(map[string]float64, len(p.Brands)),
		Tags:        make(map[string]float64, len(p.Tags)),
		PriceRanges: make(map[PriceBucket]float64, len(p.PriceRanges)),
	}
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	for k, v := range p.Brands {
		out.Brands[k] = v
	}
	for k, v := range p.Tags {
		out.Tags[k] = v
	}
	for k, v := range p.PriceRanges {
		out.PriceRanges[k] = v
	}
	return out
}

// IsEmpty reports whether no preference has been recorded yet.
func (p Profile) IsEmpty() bool {
	return len(p.Categories) == 0 && len(p.Brands) == 0 &&
		len(p.Tags) == 0 && len(p.PriceRanges) == 0
}
