// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package timeline owns per-source freshness tracking and the
// blue/green visible-vs-pending snapshot pair that keeps background
// refreshes from reshuffling what is on screen.
package timeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/store"
)

// StalenessConfig sets how long cached data from each source stays fresh.
type StalenessConfig struct {
	// DefaultMinutes applies to any source without an override.
	DefaultMinutes int

	// Overrides sets per-source freshness windows in minutes.
	Overrides map[feed.SourceID]int
}

// DefaultStalenessConfig returns production defaults.
func DefaultStalenessConfig() StalenessConfig {
	return StalenessConfig{
		DefaultMinutes: 10,
		Overrides: map[feed.SourceID]int{
			feed.SourceTrending:    60,
			feed.SourceUserHistory: 720,
		},
	}
}

// Tracker records when each source was last fetched and answers whether
// a fetch is needed before scoring. Last-fetch timestamps persist across
// restarts. The clock is injectable for tests.
type Tracker struct {
	config StalenessConfig
	clock  clockwork.Clock
	store  *store.Store
	logger zerolog.Logger

	mu          sync.RWMutex
	lastFetched map[feed.SourceID]time.Time
}

// NewTracker creates a tracker, loading any persisted last-fetch
// timestamps for recognized sources.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTracker(cfg StalenessConfig, st *store.Store, clock clockwork.Clock, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		config:      cfg,
		clock:       clock,
		store:       st,
		logger:      logger.With().Str("component", "staleness").Logger(),
		lastFetched: make(map[feed.SourceID]time.Time),
	}

	for _, source := range feed.AllSources {
		var ts time.Time
		if _, err := st.GetJSON(store.LastFetchKey(string(source)), &ts); err == nil {
			t.lastFetched[source] = ts
		}
	}

	return t
}

// MinutesUntilStale returns the freshness window for a source.
func (t *Tracker) MinutesUntilStale(source feed.SourceID) int {
	if m, ok := t.config.Overrides[source]; ok {
		return m
	}
	return t.config.DefaultMinutes
}

// IsStale reports whether a source's cached data is older than its
// freshness window. Sources never fetched are always stale.
func (t *Tracker) IsStale(source feed.SourceID) bool {
	t.mu.RLock()
	last, ok := t.lastFetched[source]
	t.mu.RUnlock()
	if !ok {
		return true
	}
	window := time.Duration(t.MinutesUntilStale(source)) * time.Minute
	return t.clock.Since(last) >= window
}

// LastFetched returns when a source was last fetched, if ever.
func (t *Tracker) LastFetched(source feed.SourceID) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	last, ok := t.lastFetched[source]
	return last, ok
}

// MarkFetched records that a source was just fetched and persists the
// timestamp. Persistence failures are logged; the in-memory timestamp
// remains authoritative for this session.
func (t *Tracker) MarkFetched(source feed.SourceID) {
	now := t.clock.Now().UTC()
	t.mu.Lock()
	t.lastFetched[source] = now
	t.mu.Unlock()

	if err := t.store.SetJSON(store.LastFetchKey(string(source)), now); err != nil {
		t.logger.Error().Str("source", string(source)).Err(err).Msg("failed to persist last-fetch timestamp")
	}
}

// StaleSources returns all recognized sources whose data is stale.
func (t *Tracker) StaleSources() []feed.SourceID {
	var stale []feed.SourceID
	for _, source := range feed.AllSources {
		if t.IsStale(source) {
			stale = append(stale, source)
		}
	}
	return stale
}
