// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package tracker records behavioral signals and derives the per-visitor
// preference profile that drives recommendation scoring.
//
// Events carry optional product facets (category, brand, tags, price); each
// facet present on an event reinforces the matching preference map by the
// event kind's fixed weight. Profiles accumulate additively for the lifetime
// of the visitor and are only reset by an explicit clear.
package tracker

import (
	"fmt"

	"github.com/goccy/go-json"
)

// EventKind classifies a behavioral event.
type EventKind int

const (
	// KindView indicates a product detail view.
	KindView EventKind = iota
	// KindAddToCart indicates a product added to the cart.
	KindAddToCart
	// KindPurchase indicates a completed purchase.
	KindPurchase
	// KindWishlist indicates a product saved to the wishlist.
	KindWishlist
	// KindSearch indicates a search with product context.
	KindSearch
	// KindClick indicates a low-intent click (tile, banner).
	KindClick
	// KindReview indicates a review submission.
	KindReview
)

// String returns the wire name for the event kind.
func (k EventKind) String() string {
	switch k {
	case KindView:
		return "view"
	case KindAddToCart:
		return "add_to_cart"
	case KindPurchase:
		return "purchase"
	case KindWishlist:
		return "wishlist"
	case KindSearch:
		return "search"
	case KindClick:
		return "click"
	case KindReview:
		return "review"
	default:
		return "unknown"
	}
}

// Weight returns the preference reinforcement weight for the event kind.
// Weights are static configuration and never change at runtime.
func (k EventKind) Weight() float64 {
	switch k {
	case KindPurchase:
		return 10
	case KindAddToCart:
		return 5
	case KindWishlist:
		return 4
	case KindReview:
		return 3
	case KindSearch:
		return 2
	case KindView:
		return 1
	case KindClick:
		return 0.5
	default:
		return 0
	}
}

// ParseKind converts a wire name to an EventKind.
func ParseKind(s string) (EventKind, error) {
	switch s {
	case "view":
		return KindView, nil
	case "add_to_cart":
		return KindAddToCart, nil
	case "purchase":
		return KindPurchase, nil
	case "wishlist":
		return KindWishlist, nil
	case "search":
		return KindSearch, nil
	case "click":
		return KindClick, nil
	case "review":
		return KindReview, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its wire name.
func (k *EventKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Event is a recorded behavioral event. Immutable once created.
// Timestamp is unix milliseconds.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"type"`
	Timestamp int64     `json:"timestamp"`
	ProductID string    `json:"product_id,omitempty"`
	Category  string    `json:"category,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Price     *float64  `json:"price,omitempty"`
}

// Payload carries the optional product facets of an event being tracked.
// All fields are optional; absent facets simply contribute nothing.
type Payload struct {
	ProductID string
	Category  string
	Brand     string
	Tags      []string
	Price     *float64
}
