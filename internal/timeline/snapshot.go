// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package timeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/store"
)

// SnapshotCache is the two-slot blue/green timeline cache.
//
// The visible snapshot is what the user currently sees and stays stable
// within a session. Background refreshes land in the pending slot, and
// a stale flag records that pending differs from visible. The visible
// snapshot is never silently reshuffled: pending only becomes visible
// on cold start (when the user was not looking) or on an explicit
// user-triggered refresh.
type SnapshotCache struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewSnapshotCache creates a snapshot cache over the session store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSnapshotCache(st *store.Store, logger zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		store:  st,
		logger: logger.With().Str("component", "snapshots").Logger(),
	}
}

// SaveVisible persists the visible timeline and clears both the pending
// slot and the stale flag: visible is now the single source of truth.
func (c *SnapshotCache) SaveVisible(items []*feed.Item) error {
	if err := c.store.SetJSON(store.KeyVisibleTimeline, items); err != nil {
		return fmt.Errorf("save visible timeline: %w", err)
	}
	if err := c.store.Remove(store.KeyPendingTimeline); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear pending snapshot")
	}
	if err := c.store.Remove(store.KeyVisibleStaleFlag); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear stale flag")
	}
	return nil
}

// SavePending persists a background refresh result and, when it differs
// from the visible snapshot, marks the visible snapshot stale.
func (c *SnapshotCache) SavePending(items []*feed.Item) error {
	if err := c.store.SetJSON(store.KeyPendingTimeline, items); err != nil {
		return fmt.Errorf("save pending timeline: %w", err)
	}

	visible, err := c.Visible()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if !sameTimeline(visible, items) {
		if err := c.store.SetJSON(store.KeyVisibleStaleFlag, true); err != nil {
			return fmt.Errorf("set stale flag: %w", err)
		}
	}
	return nil
}

// Visible loads the visible snapshot.
func (c *SnapshotCache) Visible() ([]*feed.Item, error) {
	var items []*feed.Item
	if _, err := c.store.GetJSON(store.KeyVisibleTimeline, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Pending loads the pending snapshot.
func (c *SnapshotCache) Pending() ([]*feed.Item, error) {
	var items []*feed.Item
	if _, err := c.store.GetJSON(store.KeyPendingTimeline, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// VisibleStale reports whether the stale flag is set. An absent flag
// (including first-ever load) reads as false.
func (c *SnapshotCache) VisibleStale() bool {
	var stale bool
	if _, err := c.store.GetJSON(store.KeyVisibleStaleFlag, &stale); err != nil {
		return false
	}
	return stale
}

// LoadOnColdStart applies the blue/green promotion policy at session
// start and returns the timeline to show.
//
// If the stale flag is unset (or absent) and a pending snapshot exists,
// the pending snapshot is promoted to visible immediately and the
// pending slot cleared. Otherwise the visible snapshot is shown as-is
// and the pending snapshot waits for an explicit refresh.
func (c *SnapshotCache) LoadOnColdStart() (items []*feed.Item, promoted bool, err error) {
	pending, pendErr := c.Pending()
	hasPending := pendErr == nil && len(pending) > 0

	if !c.VisibleStale() && hasPending {
		if err := c.SaveVisible(pending); err != nil {
			return nil, false, err
		}
		c.logger.Info().Int("items", len(pending)).Msg("promoted pending snapshot to visible")
		return pending, true, nil
	}

	visible, err := c.Visible()
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return visible, false, nil
}

// sameTimeline reports whether two timelines show the same items in the
// same order. Scores may differ; only identity and order matter for the
// stale flag.
func sameTimeline(a, b []*feed.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].CanonicalURI() != b[i].CanonicalURI() {
			return false
		}
	}
	return true
}
