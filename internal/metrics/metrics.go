// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package metrics exposes Prometheus instrumentation for the ranking
// pipeline: fetch activity, scoring passes, snapshot promotions, and
// the API surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Coordinator metrics

	FeedTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fediranker_feed_triggers_total",
			Help: "Total feed update triggers by kind",
		},
		[]string{"kind"}, // "refresh", "backfill", "tag-backfill", "user-data"
	)

	ScoringPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fediranker_scoring_passes_total",
			Help: "Total scoring passes started",
		},
	)

	ScoringPassesCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fediranker_scoring_passes_cancelled_total",
			Help: "Scoring passes cancelled by a newer trigger",
		},
	)

	FeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fediranker_feed_items",
			Help: "Current number of items in the merged feed",
		},
	)

	MergedItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fediranker_merged_items_total",
			Help: "Total items absorbed into existing feed entries during merge",
		},
	)

	// Timeline metrics

	StaleSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fediranker_stale_sources",
			Help: "Number of data sources currently past their freshness window",
		},
	)

	SnapshotPromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fediranker_snapshot_promotions_total",
			Help: "Pending snapshots promoted to visible on cold start",
		},
	)

	// Source client metrics

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fediranker_source_requests_total",
			Help: "Instance API requests by outcome",
		},
		[]string{"outcome"}, // "success", "auth_error", "rate_limited", "failure"
	)

	SourceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fediranker_source_breaker_state",
			Help: "Instance API circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// API metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fediranker_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fediranker_websocket_connections",
			Help: "Currently connected timeline-change subscribers",
		},
	)
)
