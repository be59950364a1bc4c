// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/shopsense/internal/cache"
	"github.com/shopsense/shopsense/internal/kvstore"
)

// countingProvider tracks how many times the inner catalog is read.
type countingProvider struct {
	products []Product
	reads    int
}

func (p *countingProvider) All() ([]Product, error) {
	p.reads++
	out := make([]Product, len(p.products))
	copy(out, p.products)
	return out, nil
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `[{"id":"p1","name":"Trail Shoe","category":"shoes","price":1200,"rating":4.5,"sales":321}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	products, err := NewFileProvider(path).All()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, 1200.0, products[0].Price)

	_, err = NewFileProvider(filepath.Join(t.TempDir(), "missing.json")).All()
	assert.Error(t, err)
}

func TestCachedProvider_ServesRepeatedReadsFromCache(t *testing.T) {
	store := cache.New(kvstore.NewMemoryStore(), cache.Config{}, zerolog.Nop())
	inner := &countingProvider{products: []Product{{ID: "p1"}, {ID: "p2"}}}
	provider := NewCachedProvider(inner, store, time.Minute)

	first, err := provider.All()
	require.NoError(t, err)
	second, err := provider.All()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.reads, "second read must come from cache")
}

func TestCachedProvider_Invalidate(t *testing.T) {
	store := cache.New(kvstore.NewMemoryStore(), cache.Config{}, zerolog.Nop())
	inner := &countingProvider{products: []Product{{ID: "p1"}}}
	provider := NewCachedProvider(inner, store, time.Minute)

	_, err := provider.All()
	require.NoError(t, err)
	provider.Invalidate()
	_, err = provider.All()
	require.NoError(t, err)

	assert.Equal(t, 2, inner.reads)
}

func TestCachedProvider_DurableTierSurvivesRestart(t *testing.T) {
	durable := kvstore.NewMemoryStore()

	inner := &countingProvider{products: []Product{{ID: "p1", Price: 900, Tags: []string{"sale"}}}}
	provider := NewCachedProvider(inner, cache.New(durable, cache.Config{}, zerolog.Nop()), time.Minute)
	_, err := provider.All()
	require.NoError(t, err)

	// New cache over the same durable store: the promotion path decodes the
	// generic JSON back into typed products without touching the provider.
	provider2 := NewCachedProvider(inner, cache.New(durable, cache.Config{}, zerolog.Nop()), time.Minute)
	products, err := provider2.All()
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, 900.0, products[0].Price)
	assert.Equal(t, []string{"sale"}, products[0].Tags)
	assert.Equal(t, 1, inner.reads)
}

func TestFindByID(t *testing.T) {
	products := []Product{{ID: "a"}, {ID: "b"}}

	p, ok := FindByID(products, "b")
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)

	_, ok = FindByID(products, "zzz")
	assert.False(t, ok)
}
