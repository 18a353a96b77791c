// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package feed defines the canonical item (post) model and the pure
// dedup/merge stage that combines batches of items from multiple sources
// into one canonical feed.
//
// Reblog relationships are stored as a URI key reference, never an owning
// pointer. The feed acts as an arena keyed by URI, which makes reference
// cycles impossible by construction.
package feed
