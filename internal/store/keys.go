// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package store

// Logical keys for persisted session state. All are scoped by the
// session user's prefix.
const (
	// KeyFeed holds the full merged feed.
	KeyFeed = "feed"

	// KeyHomeFeed holds the home-only sub-feed.
	KeyHomeFeed = "home-feed"

	// KeyVisibleTimeline holds the filtered timeline the user currently sees.
	KeyVisibleTimeline = "visible-timeline"

	// KeyPendingTimeline holds the result of the latest background refresh.
	KeyPendingTimeline = "pending-timeline"

	// KeyVisibleStaleFlag marks that the pending snapshot differs from
	// the visible one.
	KeyVisibleStaleFlag = "visible-stale-flag"

	// KeyFilters holds the serialized filter settings (arg lists).
	KeyFilters = "filters"

	// KeyWeights holds the scorer and non-score weights.
	KeyWeights = "weights"

	// lastFetchPrefix scopes per-source last-fetch timestamps.
	lastFetchPrefix = "last-fetch:"
)

// LastFetchKey returns the key holding a source's last-fetch timestamp.
func LastFetchKey(source string) string {
	return lastFetchPrefix + source
}
