// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package kvstore provides the durable key-value storage backing the cache
// and the recommendation state.
//
// The Store interface models a synchronous string-keyed byte store that may
// fail at any time (disk full, store disabled). Callers are expected to wrap
// every operation in a fault boundary: a failing store degrades the
// application to memory-only behavior, it never takes it down.
package kvstore

import "errors"

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is a durable string-keyed byte store.
//
// Implementations must be safe for concurrent use. Any operation may return
// an error; callers treat errors as a miss or no-op, never as fatal.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all keys currently present in the store.
	Keys() ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
