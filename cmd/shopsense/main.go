// Shopsense - Marketplace Personalization and Caching Service
// Copyright 2026 Shopsense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsense/shopsense

// Package main is the entry point for the Shopsense personalization server.
//
// Shopsense tracks behavioral events for a single storefront visitor, builds
// a weighted preference profile from them and serves personalized product
// surfaces (recommendations, similar items, frequently bought together,
// recently viewed) over a REST API. All per-visitor state is persisted in an
// embedded BadgerDB store so profiles survive restarts.
//
// Initialization order:
//
//  1. Configuration: defaults, optional YAML file, SHOPSENSE_* env vars
//  2. Logging: zerolog, JSON or console format
//  3. Durable store: BadgerDB, or in-memory when storage is disabled
//  4. Cache: two-tier response cache over the durable store
//  5. Tracker and recommender: behavioral state and ranking
//  6. HTTP server: chi router with graceful shutdown on SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopsense/shopsense/internal/api"
	"github.com/shopsense/shopsense/internal/cache"
	"github.com/shopsense/shopsense/internal/catalog"
	"github.com/shopsense/shopsense/internal/config"
	"github.com/shopsense/shopsense/internal/kvstore"
	"github.com/shopsense/shopsense/internal/logging"
	"github.com/shopsense/shopsense/internal/metrics"
	"github.com/shopsense/shopsense/internal/recommend"
	"github.com/shopsense/shopsense/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("addr", cfg.Addr()).
		Str("catalog", cfg.Catalog.Path).
		Bool("storage_disabled", cfg.Storage.Disabled).
		Msg("Starting Shopsense")

	store, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open durable store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing durable store")
		}
	}()

	logger := logging.Logger()

	responseCache := cache.New(store, cache.Config{
		Capacity:         cfg.Cache.Capacity,
		DefaultTTL:       cfg.Cache.TTL,
		BreakerThreshold: cfg.Cache.BreakerThreshold,
		BreakerTimeout:   cfg.Cache.BreakerTimeout,
	}, logger)

	metrics.RegisterCacheStats(func() (int, int64, int64, int64) {
		stats := responseCache.GetStats()
		return stats.MemorySize, stats.Hits, stats.Misses, stats.Evictions
	})

	trk := tracker.New(store, logger)
	rec := recommend.New(trk, logger)

	provider := catalog.NewCachedProvider(
		catalog.NewFileProvider(cfg.Catalog.Path),
		responseCache,
		cfg.Catalog.TTL,
	)

	handler := api.NewHandler(rec, provider, responseCache, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimit:   cfg.Server.RateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Addr()).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}

	// Persist whatever the tracker holds before the store closes.
	if err := trk.Persist(); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist tracker state on shutdown")
	}

	logging.Info().Msg("Shopsense stopped")
}

// openStore opens the BadgerDB durable tier, or an in-memory store when
// storage is disabled. Both satisfy kvstore.Store.
func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Storage.Disabled {
		logging.Info().Msg("Durable storage disabled, state will not survive restarts")
		return kvstore.NewMemoryStore(), nil
	}
	return kvstore.OpenBadger(cfg.Storage.Path, logging.Logger())
}
