// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package cache implements the two-tier cache used for repeated catalog and
// recommendation reads.
//
// The fast tier is a bounded in-process map with insertion-order FIFO
// eviction. Despite being informally called "LRU-like" in the original
// product docs, it is deliberately NOT an LRU: Get does not bump an entry's
// position, and eviction always removes the oldest-inserted key. The simpler
// policy is intentional and must not be "fixed" to true LRU without a product
// decision.
//
// The durable tier persists every entry to a kvstore.Store under a prefixed
// key. Every durable operation sits behind a fault boundary plus a circuit
// breaker: a failing store is logged and the cache degrades to memory-only
// for the affected keys. A caller never observes an error from this package;
// the worst case is a miss.
package cache

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/shopsense/shopsense/internal/kvstore"
	"github.com/shopsense/shopsense/internal/metrics"
)

// Default tuning values. Capacity bounds only the fast tier; the durable
// tier is unbounded.
const (
	DefaultCapacity = 50
	DefaultTTL      = 5 * time.Minute
	DefaultPrefix   = "cache:"
)

// Entry is the durable-tier record for a single cached value.
// An entry is logically absent once now > Expiry, regardless of physical
// presence in either tier. Times are unix milliseconds.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Expiry    int64           `json:"expiry"`
	Timestamp int64           `json:"timestamp"`
}

// Stats is a snapshot of fast-tier state and hit counters.
type Stats struct {
	MemorySize int      `json:"memory_size"`
	MemoryKeys []string `json:"memory_keys"`
	Hits       int64    `json:"hits"`
	Misses     int64    `json:"misses"`
	Evictions  int64    `json:"evictions"`
}

// Config holds cache construction parameters.
type Config struct {
	// Capacity is the fast-tier key limit. Default: DefaultCapacity.
	Capacity int

	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL time.Duration

	// Prefix namespaces durable-tier keys. Default: DefaultPrefix.
	Prefix string

	// BreakerThreshold is the consecutive durable-tier failure count that
	// opens the circuit. Default: 5.
	BreakerThreshold uint32

	// BreakerTimeout is how long the circuit stays open before probing the
	// store again. Default: 30s.
	BreakerTimeout time.Duration
}

// fifoEntry is a fast-tier node in the insertion-ordered list.
// head.next is the oldest-inserted entry, tail.prev the newest.
type fifoEntry struct {
	key       string
	value     any
	expiresAt time.Time
	prev      *fifoEntry
	next      *fifoEntry
}

// Store is the two-tier cache. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	capacity   int
	defaultTTL time.Duration
	prefix     string

	// Fast tier: map for O(1) lookup, sentinel-bounded list for FIFO order.
	items map[string]*fifoEntry
	head  *fifoEntry
	tail  *fifoEntry

	durable kvstore.Store
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger

	hits      int64
	misses    int64
	evictions int64

	// now is replaceable in tests for deterministic expiry.
	now func() time.Time
}

// New creates a two-tier cache over the given durable store.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func New(durable kvstore.Store, cfg Config, logger zerolog.Logger) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	log := logger.With().Str("component", "cache").Logger()

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "cache-durable-tier",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		// An absent key is an ordinary miss, not a storage fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, kvstore.ErrKeyNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("durable tier breaker state changed")
		},
	})

	c := &Store{
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		prefix:     cfg.Prefix,
		items:      make(map[string]*fifoEntry, cfg.Capacity),
		head:       &fifoEntry{},
		tail:       &fifoEntry{},
		durable:    durable,
		breaker:    breaker,
		logger:     log,
		now:        time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Set stores value in both tiers with the given TTL.
// A non-positive TTL falls back to the configured default. Durable-tier
// failures are logged and swallowed; the fast-tier write always succeeds.
func (c *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	now := c.now()
	expiresAt := now.Add(ttl)

	if entry, ok := c.items[key]; ok {
		// Overwrite keeps the key's original insertion position.
		entry.value = value
		entry.expiresAt = expiresAt
	} else {
		c.insertLocked(key, value, expiresAt)
	}
	c.mu.Unlock()

	c.writeDurable(key, value, now, expiresAt)
}

// Get returns the cached value for key, or (nil, false) when absent.
// Checks the fast tier first; on miss it reads the durable tier and, when
// the entry is still live, repopulates the fast tier (lazy promotion).
// An expired entry found in either tier is removed eagerly.
func (c *Store) Get(key string) (any, bool) {
	c.mu.Lock()
	now := c.now()

	if entry, ok := c.items[key]; ok {
		if now.After(entry.expiresAt) {
			c.removeLocked(entry)
			c.misses++
			c.mu.Unlock()
			c.deleteDurable(key)
			return nil, false
		}
		c.hits++
		value := entry.value
		c.mu.Unlock()
		return value, true
	}
	c.mu.Unlock()

	return c.getFromDurable(key, now)
}

// getFromDurable reads the durable tier and promotes live entries.
func (c *Store) getFromDurable(key string, now time.Time) (any, bool) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.durable.Get(c.prefix + key)
	})
	if err != nil {
		c.recordDurableMiss(key, err)
		return nil, false
	}
	raw, _ := result.([]byte)

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("malformed durable cache entry")
		c.deleteDurable(key)
		c.addMiss()
		return nil, false
	}

	if now.UnixMilli() > entry.Expiry {
		// Eager cleanup of the expired entry in both tiers.
		c.Remove(key)
		c.addMiss()
		return nil, false
	}

	var value any
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("malformed durable cache value")
		c.deleteDurable(key)
		c.addMiss()
		return nil, false
	}

	c.mu.Lock()
	if _, ok := c.items[key]; !ok {
		c.insertLocked(key, value, time.UnixMilli(entry.Expiry))
	}
	c.hits++
	c.mu.Unlock()

	return value, true
}

// Remove deletes key from both tiers.
func (c *Store) Remove(key string) {
	c.mu.Lock()
	if entry, ok := c.items[key]; ok {
		c.removeLocked(entry)
	}
	c.mu.Unlock()

	c.deleteDurable(key)
}

// Clear empties both tiers. Durable-tier keys outside the cache prefix are
// untouched (the tracker state shares the same store).
func (c *Store) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*fifoEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.mu.Unlock()

	for _, key := range c.durableKeys() {
		c.deleteDurable(key)
	}
}

// InvalidatePattern removes every key whose logical (unprefixed) name
// matches the pattern, from both tiers. Used to bulk-invalidate a family of
// cached reads, e.g. all catalog pages, without tracking individual keys.
func (c *Store) InvalidatePattern(pattern *regexp.Regexp) {
	matched := make(map[string]struct{})

	c.mu.Lock()
	for key := range c.items {
		if pattern.MatchString(key) {
			matched[key] = struct{}{}
		}
	}
	c.mu.Unlock()

	for _, key := range c.durableKeys() {
		if pattern.MatchString(key) {
			matched[key] = struct{}{}
		}
	}

	for key := range matched {
		c.Remove(key)
	}
}

// GetStats returns a snapshot of fast-tier state and counters.
func (c *Store) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for entry := c.head.next; entry != c.tail; entry = entry.next {
		keys = append(keys, entry.key)
	}

	return Stats{
		MemorySize: len(c.items),
		MemoryKeys: keys,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

// insertLocked appends a new entry at the tail (newest) and evicts the
// oldest-inserted entry while over capacity. Must be called with mu held.
func (c *Store) insertLocked(key string, value any, expiresAt time.Time) {
	entry := &fifoEntry{key: key, value: value, expiresAt: expiresAt}

	entry.prev = c.tail.prev
	entry.next = c.tail
	c.tail.prev.next = entry
	c.tail.prev = entry
	c.items[key] = entry

	for len(c.items) > c.capacity {
		oldest := c.head.next
		if oldest == c.tail {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}
}

// removeLocked unlinks an entry from the list and map. Must hold mu.
func (c *Store) removeLocked(entry *fifoEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

// writeDurable serializes and stores an entry in the durable tier.
func (c *Store) writeDurable(key string, value any, now, expiresAt time.Time) {
	rawValue, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache value not serializable, memory-only")
		return
	}

	data, err := json.Marshal(Entry{
		Value:     rawValue,
		Expiry:    expiresAt.UnixMilli(),
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry not serializable, memory-only")
		return
	}

	if _, err := c.breaker.Execute(func() (any, error) {
		return nil, c.durable.Set(c.prefix+key, data)
	}); err != nil {
		metrics.RecordStorageError("set")
		c.logger.Warn().Err(err).Str("key", key).Msg("durable cache write failed, memory-only")
	}
}

// deleteDurable removes a key from the durable tier, swallowing faults.
func (c *Store) deleteDurable(key string) {
	if _, err := c.breaker.Execute(func() (any, error) {
		return nil, c.durable.Delete(c.prefix + key)
	}); err != nil {
		metrics.RecordStorageError("delete")
		c.logger.Debug().Err(err).Str("key", key).Msg("durable cache delete failed")
	}
}

// durableKeys lists the logical (unprefixed) keys in the durable tier.
// A failing store yields an empty list.
func (c *Store) durableKeys() []string {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.durable.Keys()
	})
	if err != nil {
		metrics.RecordStorageError("keys")
		c.logger.Debug().Err(err).Msg("durable cache key scan failed")
		return nil
	}
	all, _ := result.([]string)

	logical := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, c.prefix) {
			logical = append(logical, strings.TrimPrefix(k, c.prefix))
		}
	}
	return logical
}

// recordDurableMiss logs a durable-tier read failure and counts a miss.
// kvstore.ErrKeyNotFound is an ordinary miss, not a fault.
func (c *Store) recordDurableMiss(key string, err error) {
	if !errors.Is(err, kvstore.ErrKeyNotFound) {
		metrics.RecordStorageError("get")
		c.logger.Debug().Err(err).Str("key", key).Msg("durable cache read failed")
	}
	c.addMiss()
}

func (c *Store) addMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// BreakerState reports the durable-tier circuit breaker state for
// observability endpoints.
func (c *Store) BreakerState() string {
	return c.breaker.State().String()
}
