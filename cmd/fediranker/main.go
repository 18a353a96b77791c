// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package main is the entry point for the Fediranker server.
//
// Fediranker is a self-hosted, single-user ranking layer for a Mastodon
// home timeline. It merges the home timeline, trending statuses, and
// followed-hashtag posts into one deduplicated feed, scores every item
// with user-tunable weights, and serves the ranked result over an HTTP
// API with WebSocket change notifications.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, env vars (Koanf v2)
//  2. Store: badger key-value persistence, namespaced per user
//  3. Mastodon client: rate-limited, retried, circuit-broken
//  4. Scoring engine: scorer registry plus persisted user weights
//  5. Coordinator: the fetch/merge/score/publish pipeline
//  6. Supervision tree: background services and the HTTP API under
//     separate Suture child supervisors
//
// # Configuration
//
// The instance credentials are the only required settings:
//
//	export MASTODON_BASE_URL=https://example.social
//	export MASTODON_ACCESS_TOKEN=your-oauth-token
//	./fediranker
//
// Everything else (listen address, refresh cadence, scoring batch
// sizes, staleness windows) has production defaults and can be
// overridden via config.yaml or environment variables.
//
// # Signal Handling
//
// SIGINT and SIGTERM shut the tree down gracefully: the HTTP server
// drains in-flight requests, the persist service flushes seen-state,
// and badger closes cleanly.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/api"
	"github.com/rcalloway/fediranker/internal/config"
	"github.com/rcalloway/fediranker/internal/coordinator"
	"github.com/rcalloway/fediranker/internal/logging"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/scoring/scorers"
	"github.com/rcalloway/fediranker/internal/source"
	"github.com/rcalloway/fediranker/internal/store"
	"github.com/rcalloway/fediranker/internal/supervisor"
	"github.com/rcalloway/fediranker/internal/timeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config is not available yet.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(cfg.Logging.Logging())
	logger := logging.Logger()

	logging.Info().
		Str("instance", cfg.Source.BaseURL).
		Str("store_path", cfg.Store.Path).
		Str("addr", cfg.Server.Addr).
		Msg("starting Fediranker")

	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	client := source.NewBreakerClient(
		source.NewMastodonClient(cfg.Source.Client(), logger),
		logger,
	)

	// The store is namespaced per user, so the token must resolve
	// before anything is read or written.
	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), cfg.Source.Timeout)
	userID, err := client.VerifyCredentials(verifyCtx)
	cancelVerify()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to verify instance credentials")
	}
	logging.Info().Str("user", userID).Msg("credentials verified")

	st := store.New(db, userID, logger)

	engine, err := scoring.NewEngine(cfg.Feed.Scoring.Engine(), logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create scoring engine")
	}
	registerScorers(engine, client, cfg, logger)

	clock := clockwork.NewRealClock()
	tracker := timeline.NewTracker(cfg.Feed.Staleness.Tracker(), st, clock, logger)
	snapshots := timeline.NewSnapshotCache(st, logger)

	coord, err := coordinator.New(cfg.Feed.Pipeline, client, engine, st, tracker, snapshots, clock, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create coordinator")
	}

	hub := api.NewHub(logger)
	server := api.NewServer(cfg.Server, coord, hub, logger)

	tree := supervisor.NewTree(logging.NewSlogLogger(), cfg.Tree)
	tree.AddFeedService(coordinator.NewRefreshService(coord, cfg.Feed.Services.RefreshInterval, logger))
	tree.AddFeedService(coordinator.NewPersistService(coord, cfg.Feed.Services.PersistInterval, logger))
	tree.AddFeedService(coordinator.NewUserDataService(coord, cfg.Feed.Services.UserDataInterval, logger))
	tree.AddAPIService(hub)
	tree.AddAPIService(server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("supervision tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervision tree exited")
		if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
			logging.Error().Int("unstopped", len(report)).Msg("services failed to stop in time")
		}
		// os.Exit skips defers, so close the store here.
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("error closing store")
		}
		os.Exit(1)
	}

	logging.Info().Msg("shutdown complete")
}

// registerScorers wires every scoring strategy into the engine and
// installs signed defaults for the penalty scorers. Persisted user
// weights, when present, override these when the coordinator restores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func registerScorers(engine *scoring.Engine, client source.Client, cfg *config.Config, logger zerolog.Logger) {
	engine.Register(scorers.Favourites{})
	engine.Register(scorers.Replies{})
	engine.Register(scorers.Reblogs{})
	engine.Register(scorers.AlreadyShown{})
	engine.Register(scorers.MediaAttachments{})
	engine.Register(scorers.TrendingTags{})
	engine.Register(scorers.TrendingLinks{})

	followedTags := scorers.NewFollowedTags(client)
	mentionsFollowed := scorers.NewMentionsFollowed(client)
	engine.Register(followedTags)
	engine.Register(mentionsFollowed)
	engine.Register(scorers.NewDiversity(
		cfg.Feed.Diversity.Scorer(),
		mentionsFollowed.FollowedSet,
		followedTags.FollowedSet,
		logger,
	))

	// Penalty scorers produce non-negative raw scores; they only help
	// when their weight is negative.
	weights := engine.Weights()
	weights.Scorers["already_shown"] = -1
	weights.Scorers["diversity"] = -1
	if err := engine.SetWeights(weights); err != nil {
		logging.Fatal().Err(err).Msg("failed to install default weights")
	}
}
