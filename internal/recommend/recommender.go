// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package recommend

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/shopsense/shopsense/internal/catalog"
	"github.com/shopsense/shopsense/internal/tracker"
)

// Recommender composes the event tracker with the scoring and similarity
// engines into the read operations the UI layer consumes.
//
// Every operation is a single synchronous computation over the caller's
// product slice and the tracker's current state; the recommender holds no
// state of its own.
type Recommender struct {
	tracker *tracker.Tracker
	logger  zerolog.Logger
}

// New creates a recommender over the given tracker.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func New(t *tracker.Tracker, logger zerolog.Logger) *Recommender {
	return &Recommender{
		tracker: t,
		logger:  logger.With().Str("component", "recommend").Logger(),
	}
}

// TrackEvent records a behavioral event. See tracker.Tracker.TrackEvent.
func (r *Recommender) TrackEvent(kind tracker.EventKind, payload tracker.Payload) tracker.Event {
	return r.tracker.TrackEvent(kind, payload)
}

// Score computes the relevance score for a single product against the
// current preference profile. Deterministic and side-effect free.
func (r *Recommender) Score(p catalog.Product) float64 {
	s := newScorer(r.tracker.Profile(), r.tracker.RecentlyViewed())
	return s.score(p)
}

// GetRecommendations ranks the catalog against the visitor's preference
// profile and returns the top Options.Limit products.
func (r *Recommender) GetRecommendations(products []catalog.Product, opts Options) []catalog.Product {
	s := newScorer(r.tracker.Profile(), r.tracker.RecentlyViewed())
	ranked := s.rank(products, opts)

	r.logger.Debug().
		Int("candidates", len(products)).
		Int("returned", len(ranked)).
		Str("category", opts.Category).
		Msg("ranked recommendations")

	return ranked
}

// GetSimilarProducts returns up to limit products similar to the reference,
// for "similar items" surfaces. Default limit: 4.
func (r *Recommender) GetSimilarProducts(ref catalog.Product, products []catalog.Product, limit int) []catalog.Product {
	return similarProducts(ref, products, limit)
}

// GetFrequentlyBoughtTogether returns up to three same-category products
// rated 4 or higher, in catalog order.
func (r *Recommender) GetFrequentlyBoughtTogether(ref catalog.Product, products []catalog.Product) []catalog.Product {
	return boughtTogether(ref, products)
}

// GetRecentlyViewed projects the recently-viewed id list onto the live
// catalog, most recent first. IDs with no matching product are dropped.
func (r *Recommender) GetRecentlyViewed(products []catalog.Product) []catalog.Product {
	return r.projectRecent(products)
}

// GetBasedOnBrowsing returns products derived from the visitor's browsing
// history, falling back to a pure popularity ordering (sales descending)
// when nothing has been viewed yet. The fallback keys off the history
// itself: a history of only delisted products yields an empty result, not
// the popularity list.
func (r *Recommender) GetBasedOnBrowsing(products []catalog.Product, limit int) []catalog.Product {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if len(r.tracker.RecentlyViewed()) > 0 {
		recent := r.projectRecent(products)
		if len(recent) > limit {
			recent = recent[:limit]
		}
		return recent
	}

	// Cold start: most-sold products first, catalog order on ties.
	popular := make([]catalog.Product, len(products))
	copy(popular, products)
	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Sales > popular[j].Sales
	})

	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular
}

// ClearUserData wipes all per-visitor state, in memory and persisted.
func (r *Recommender) ClearUserData() {
	r.tracker.ClearUserData()
	r.logger.Info().Msg("cleared user personalization data")
}

func (r *Recommender) projectRecent(products []catalog.Product) []catalog.Product {
	ids := r.tracker.RecentlyViewed()

	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := catalog.FindByID(products, id); ok {
			out = append(out, p)
		}
	}
	return out
}
