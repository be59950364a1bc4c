// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package catalog models the product catalog this subsystem ranks.
// The catalog is owned by an external provider; Shopsense only reads it.
package catalog

// Product is a catalog item. Read-only to this subsystem.
// Category, Brand, Tags, Rating and Sales are optional; scoring treats a
// missing field as zero contribution.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Price    float64  `json:"price"`
	Rating   float64  `json:"rating,omitempty"`
	Sales    int      `json:"sales,omitempty"`
}

// FindByID returns the product with the given id, or false.
func FindByID(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
