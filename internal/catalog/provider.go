// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/shopsense/shopsense/internal/cache"
)

// Provider supplies the live product catalog the engines rank.
type Provider interface {
	// All returns the full catalog.
	All() ([]Product, error)
}

// StaticProvider serves a fixed in-memory catalog. Used in tests and for
// embedded demo data.
type StaticProvider struct {
	products []Product
}

// NewStaticProvider creates a provider over a fixed product slice.
func NewStaticProvider(products []Product) *StaticProvider {
	return &StaticProvider{products: products}
}

// All returns a copy of the catalog.
func (p *StaticProvider) All() ([]Product, error) {
	out := make([]Product, len(p.products))
	copy(out, p.products)
	return out, nil
}

// FileProvider loads the catalog from a JSON file on every read.
// The file holds a top-level array of products.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider reading from the given path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// All reads and decodes the catalog file.
func (p *FileProvider) All() ([]Product, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", p.path, err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", p.path, err)
	}

	return products, nil
}

// CachedProvider serves catalog reads through the two-tier cache store, so
// repeated reads skip the underlying provider until the entry expires.
type CachedProvider struct {
	inner Provider
	cache *cache.Store
	key   string
	ttl   time.Duration
}

// CatalogCacheKey is the logical cache key for the full catalog read.
const CatalogCacheKey = "catalog:all"

// NewCachedProvider wraps a provider with the cache store.
func NewCachedProvider(inner Provider, store *cache.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: store,
		key:   CatalogCacheKey,
		ttl:   ttl,
	}
}

// All returns the cached catalog, falling back to the inner provider on a
// miss. Provider failures fall back to the cache's durable tier only via the
// normal miss path; a failing provider with a cold cache is a real error.
func (p *CachedProvider) All() ([]Product, error) {
	if v, ok := p.cache.Get(p.key); ok {
		if products, ok := decodeProducts(v); ok {
			return products, nil
		}
		// Undecodable cached value: drop it and fall through.
		p.cache.Remove(p.key)
	}

	products, err := p.inner.All()
	if err != nil {
		return nil, err
	}

	p.cache.Set(p.key, products, p.ttl)
	return products, nil
}

// Invalidate drops the cached catalog, forcing the next read through to the
// inner provider.
func (p *CachedProvider) Invalidate() {
	p.cache.Remove(p.key)
}

// decodeProducts converts a cached value back to a typed product slice.
// Fast-tier hits hold the original []Product; durable-tier promotions hold
// generic decoded JSON and take the re-marshal path.
func decodeProducts(v any) ([]Product, bool) {
	if products, ok := v.([]Product); ok {
		return products, true
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false
	}
	return products, true
}

var (
	_ Provider = (*StaticProvider)(nil)
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*CachedProvider)(nil)
)
