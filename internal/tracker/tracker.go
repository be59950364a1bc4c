// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopsense/shopsense/internal/kvstore"
	"github.com/shopsense/shopsense/internal/metrics"
)

const (
	// StateKey is the fixed durable-store key holding all tracker state.
	StateKey = "recommender:state"

	// maxPersistedEvents caps the event log written to the durable store.
	// Older events still shape the in-memory profile for the session but are
	// not replayed after a reload.
	maxPersistedEvents = 100

	// maxRecentlyViewed bounds the recently-viewed product list.
	maxRecentlyViewed = 20
)

// persistedState is the single JSON blob written under StateKey.
type persistedState struct {
	Events         []Event  `json:"events"`
	Preferences    Profile  `json:"preferences"`
	RecentlyViewed []string `json:"recentlyViewed"`
}

// Tracker records behavioral events, maintains the preference profile and
// the recently-viewed list, and persists its own state after every mutation.
// Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	events  []Event
	profile Profile
	recent  []string

	store  kvstore.Store
	logger zerolog.Logger

	// now is replaceable in tests for deterministic timestamps.
	now func() time.Time
}

// New creates a tracker, restoring any previously persisted state.
// A missing key or malformed blob yields empty initial state, never an error.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func New(store kvstore.Store, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		profile: NewProfile(),
		store:   store,
		logger:  logger.With().Str("component", "tracker").Logger(),
		now:     time.Now,
	}
	t.load()
	return t
}

// TrackEvent records an event, updates the preference profile and the
// recently-viewed list, and persists the new state. Never fails: a storage
// fault costs durability of this one event, not correctness.
func (t *Tracker) TrackEvent(kind EventKind, payload Payload) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: t.now().UnixMilli(),
		ProductID: payload.ProductID,
		Category:  payload.Category,
		Brand:     payload.Brand,
		Tags:      payload.Tags,
		Price:     payload.Price,
	}

	t.mu.Lock()
	t.events = append(t.events, ev)
	t.profile.reinforce(ev, kind.Weight())

	if kind == KindView && ev.ProductID != "" {
		t.touchRecentLocked(ev.ProductID)
	}

	err := t.persistLocked()
	t.mu.Unlock()

	if err != nil {
		metrics.RecordStorageError("persist")
		t.logger.Warn().Err(err).Msg("tracker state persist failed, in-memory state unaffected")
	}

	return ev
}

// Profile returns a deep copy of the current preference profile.
func (t *Tracker) Profile() Profile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.profile.Clone()
}

// RecentlyViewed returns the recently-viewed product IDs, most recent first.
func (t *Tracker) RecentlyViewed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.recent))
	copy(out, t.recent)
	return out
}

// IsRecentlyViewed reports whether the product is in the recent list.
func (t *Tracker) IsRecentlyViewed(productID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.recent {
		if id == productID {
			return true
		}
	}
	return false
}

// Events returns a copy of the in-memory event log.
func (t *Tracker) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// ClearUserData wipes the in-memory and persisted profile, event log and
// recently-viewed list.
func (t *Tracker) ClearUserData() {
	t.mu.Lock()
	t.events = nil
	t.profile = NewProfile()
	t.recent = nil
	t.mu.Unlock()

	if err := t.store.Delete(StateKey); err != nil {
		metrics.RecordStorageError("delete")
		t.logger.Warn().Err(err).Msg("failed to delete persisted tracker state")
	}
}

// Persist writes the current state to the durable store. Exposed so callers
// can observe storage health; TrackEvent already persists on every mutation.
func (t *Tracker) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.persistLocked()
}

// touchRecentLocked moves a product to the front of the recently-viewed
// list, de-duplicating and dropping the oldest entry past the cap.
// Must be called with mu held.
func (t *Tracker) touchRecentLocked(productID string) {
	next := make([]string, 0, len(t.recent)+1)
	next = append(next, productID)
	for _, id := range t.recent {
		if id != productID {
			next = append(next, id)
		}
	}
	if len(next) > maxRecentlyViewed {
		next = next[:maxRecentlyViewed]
	}
	t.recent = next
}

// persistLocked serializes state under StateKey. Must hold mu (read or
// write); mutation ordering is preserved because TrackEvent persists while
// still holding the write lock.
func (t *Tracker) persistLocked() error {
	events := t.events
	if len(events) > maxPersistedEvents {
		events = events[len(events)-maxPersistedEvents:]
	}

	data, err := json.Marshal(persistedState{
		Events:         events,
		Preferences:    t.profile,
		RecentlyViewed: t.recent,
	})
	if err != nil {
		return err
	}

	return t.store.Set(StateKey, data)
}

// load restores persisted state. Any failure yields empty state.
func (t *Tracker) load() {
	data, err := t.store.Get(StateKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			t.logger.Warn().Err(err).Msg("tracker state read failed, starting empty")
		}
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		t.logger.Warn().Err(err).Msg("malformed tracker state, starting empty")
		return
	}

	state.Preferences.normalize()

	t.events = state.Events
	t.profile = state.Preferences
	t.recent = state.RecentlyViewed
	if len(t.recent) > maxRecentlyViewed {
		t.recent = t.recent[:maxRecentlyViewed]
	}

	t.logger.Debug().
		Int("events", len(t.events)).
		Int("recently_viewed", len(t.recent)).
		Msg("restored tracker state")
}
