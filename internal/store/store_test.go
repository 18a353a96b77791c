// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package store

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcalloway/fediranker/internal/feed"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, "alice@example.social", zerolog.Nop())
}

func TestStore_RoundTrip(t *testing.T) {
	s := testStore(t)

	items := []*feed.Item{{
		URI:       "https://example.social/1",
		ID:        "1",
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Score:     42.5,
	}}
	require.NoError(t, s.SetJSON(KeyFeed, items))

	var got []*feed.Item
	updatedAt, err := s.GetJSON(KeyFeed, &got)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.social/1", got[0].URI)
	assert.Equal(t, 42.5, got[0].Score)
	assert.False(t, updatedAt.IsZero(), "record must carry its write timestamp")
}

func TestStore_GetMissing(t *testing.T) {
	s := testStore(t)

	_, err := s.Get("never-written")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Remove(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetJSON(KeyWeights, map[string]float64{"a": 1}))
	require.NoError(t, s.Remove(KeyWeights))

	_, err := s.Get(KeyWeights)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Removing an absent key is not an error.
	assert.NoError(t, s.Remove(KeyWeights))
}

func TestStore_UserScoping(t *testing.T) {
	db, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	alice := New(db, "alice@example.social", zerolog.Nop())
	bob := New(db, "bob@example.social", zerolog.Nop())

	require.NoError(t, alice.SetJSON(KeyFeed, []string{"alice-data"}))

	_, err = bob.Get(KeyFeed)
	assert.True(t, errors.Is(err, ErrNotFound), "keys must be scoped per user")
}

func TestStore_RemoveAll(t *testing.T) {
	db, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	alice := New(db, "alice@example.social", zerolog.Nop())
	bob := New(db, "bob@example.social", zerolog.Nop())

	require.NoError(t, alice.SetJSON(KeyFeed, 1))
	require.NoError(t, alice.SetJSON(KeyWeights, 2))
	require.NoError(t, bob.SetJSON(KeyFeed, 3))

	require.NoError(t, alice.RemoveAll())

	_, err = alice.Get(KeyFeed)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = alice.Get(KeyWeights)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Other users' data is untouched.
	_, err = bob.Get(KeyFeed)
	assert.NoError(t, err)
}

func TestLastFetchKey(t *testing.T) {
	assert.Equal(t, "last-fetch:home", LastFetchKey("home"))
}
