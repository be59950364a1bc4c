// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package kvstore

import "errors"

// ErrStoreUnavailable is the error reported by FaultyStore.
var ErrStoreUnavailable = errors.New("kvstore: store unavailable")

// FaultyStore implements Store but fails every operation.
// It exercises the fault boundaries of callers: the cache and the event
// tracker must keep working when durable storage is gone (quota exceeded,
// storage disabled).
type FaultyStore struct {
	// Err is returned from every operation. Defaults to ErrStoreUnavailable.
	Err error
}

func (s *FaultyStore) fail() error {
	if s.Err != nil {
		return s.Err
	}
	return ErrStoreUnavailable
}

// Get always fails.
func (s *FaultyStore) Get(string) ([]byte, error) { return nil, s.fail() }

// Set always fails.
func (s *FaultyStore) Set(string, []byte) error { return s.fail() }

// Delete always fails.
func (s *FaultyStore) Delete(string) error { return s.fail() }

// Keys always fails.
func (s *FaultyStore) Keys() ([]string, error) { return nil, s.fail() }

// Close always succeeds.
func (s *FaultyStore) Close() error { return nil }

var _ Store = (*FaultyStore)(nil)
