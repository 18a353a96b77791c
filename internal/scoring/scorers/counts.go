// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package scorers provides the concrete scoring strategies registered
// with the scoring engine: engagement counters, followed-account/tag
// affinity, trending matches, and the feed-level diversity penalty.
package scorers

import (
	"context"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/scoring"
)

// stateless is embedded by scorers that need no background data.
type stateless struct{}

func (stateless) Prepare(ctx context.Context) error { return nil }
func (stateless) Ready() bool                       { return true }
func (stateless) Trending() bool                    { return false }

// Favourites scores an item by its favourite count.
type Favourites struct{ stateless }

// Name returns the scorer identifier.
func (Favourites) Name() string { return "favourites" }

// Score returns the item's favourite count.
func (Favourites) Score(item *feed.Item) (float64, error) {
	return float64(item.FavouritesCount), nil
}

// Replies scores an item by its reply count.
type Replies struct{ stateless }

func (Replies) Name() string { return "replies" }

func (Replies) Score(item *feed.Item) (float64, error) {
	return float64(item.RepliesCount), nil
}

// Reblogs scores an item by its boost count.
type Reblogs struct{ stateless }

func (Reblogs) Name() string { return "reblogs" }

func (Reblogs) Score(item *feed.Item) (float64, error) {
	return float64(item.ReblogsCount), nil
}

// AlreadyShown scores an item by how many times it has been shown.
// Normally given a negative weight so seen items sink.
type AlreadyShown struct{ stateless }

func (AlreadyShown) Name() string { return "already_shown" }

func (AlreadyShown) Score(item *feed.Item) (float64, error) {
	return float64(item.NumTimesShown), nil
}

// MediaAttachments scores an item by its attachment count.
type MediaAttachments struct{ stateless }

func (MediaAttachments) Name() string { return "media_attachments" }

func (MediaAttachments) Score(item *feed.Item) (float64, error) {
	return float64(item.AttachmentCount), nil
}

var (
	_ scoring.Scorer = (*Favourites)(nil)
	_ scoring.Scorer = (*Replies)(nil)
	_ scoring.Scorer = (*Reblogs)(nil)
	_ scoring.Scorer = (*AlreadyShown)(nil)
	_ scoring.Scorer = (*MediaAttachments)(nil)
)
