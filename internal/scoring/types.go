// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package scoring implements the multi-factor weighted scoring engine:
// a registry of independent scoring strategies plus the aggregation
// algorithm (time decay, outlier dampening, trending multiplier).
package scoring

import (
	"context"

	"github.com/rcalloway/fediranker/internal/feed"
)

// Scorer is a named scoring strategy. Score must be a pure function of
// one item (plus whatever background data Prepare loaded) and must
// return a value >= 0.
type Scorer interface {
	// Name returns the scorer identifier used in weights and score detail.
	Name() string

	// Trending reports whether this scorer belongs to the trending
	// category; trending scorers get the global trending multiplier
	// applied on top of their user weight.
	Trending() bool

	// Prepare loads background data (e.g. "accounts I follow") once per
	// scoring pass. Scorers with no background data return nil.
	Prepare(ctx context.Context) error

	// Ready reports whether background data has been prepared. A scorer
	// that is not ready never blocks scoring; the engine falls back to
	// the item's previously stored contribution, or zero.
	Ready() bool

	// Score returns the raw (unweighted) score for one item.
	Score(item *feed.Item) (float64, error)
}

// FeedScorer is a scorer that first extracts a score table from the
// entire current feed, then looks each item up in that table. Used for
// feed-level diversity.
type FeedScorer interface {
	Scorer

	// PrepareFeed recomputes the per-item score table from the whole feed.
	PrepareFeed(items []*feed.Item)
}

// UserDataProvider supplies the background data scorers prepare against.
// Implemented by the remote source client; kept as an interface here so
// the engine has no transport dependency.
type UserDataProvider interface {
	// FollowedAccounts returns the acct handles the user follows.
	FollowedAccounts(ctx context.Context) (map[string]struct{}, error)

	// FollowedTags returns the (lowercased) tags the user follows.
	FollowedTags(ctx context.Context) (map[string]struct{}, error)
}
