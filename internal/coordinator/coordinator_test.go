// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/scoring/scorers"
	"github.com/rcalloway/fediranker/internal/source"
	"github.com/rcalloway/fediranker/internal/store"
	"github.com/rcalloway/fediranker/internal/timeline"
)

type stubClient struct {
	home      []*feed.Item
	homeErr   error
	trending  []*feed.Item
	trendTags []source.TrendingTag
	notifs    []*feed.Item
	followed  map[string]struct{}
	tagTL     map[string][]*feed.Item

	// holdFirstHome, when set, blocks the first home fetch until the
	// channel closes or the fetch context is cancelled.
	holdFirstHome chan struct{}

	homeCalls atomic.Int32
}

func (s *stubClient) VerifyCredentials(context.Context) (string, error) {
	return "me@example.social", nil
}

func (s *stubClient) HomeTimeline(ctx context.Context, _ string, _ int) (source.Page, error) {
	call := s.homeCalls.Add(1)
	if s.holdFirstHome != nil && call == 1 {
		select {
		case <-s.holdFirstHome:
		case <-ctx.Done():
			return source.Page{}, ctx.Err()
		}
	}
	if s.homeErr != nil {
		return source.Page{}, s.homeErr
	}
	return source.Page{Items: s.home}, nil
}

func (s *stubClient) TagTimeline(_ context.Context, tag, _ string, _ int) (source.Page, error) {
	return source.Page{Items: s.tagTL[tag]}, nil
}

func (s *stubClient) Notifications(context.Context, string, int) (source.Page, error) {
	return source.Page{Items: s.notifs}, nil
}

func (s *stubClient) TrendingStatuses(context.Context, int) ([]*feed.Item, error) {
	return s.trending, nil
}

func (s *stubClient) TrendingTags(context.Context) ([]source.TrendingTag, error) {
	return s.trendTags, nil
}

func (s *stubClient) TrendingLinks(context.Context) ([]source.TrendingLink, error) {
	return nil, nil
}

func (s *stubClient) FollowedAccounts(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *stubClient) FollowedTags(context.Context) (map[string]struct{}, error) {
	return s.followed, nil
}

func homeItem(uri string, age time.Duration, favourites int, now time.Time) *feed.Item {
	it := &feed.Item{
		URI:             uri,
		ID:              uri,
		CreatedAt:       now.Add(-age),
		Author:          feed.Account{ID: "1", Acct: "ann@example.social"},
		FavouritesCount: favourites,
	}
	it.AddSource(feed.SourceHomeTimeline)
	return it
}

type fixture struct {
	coord  *Coordinator
	client *stubClient
	store  *store.Store
	snaps  *timeline.SnapshotCache
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, client *stubClient) *fixture {
	t.Helper()

	db, err := store.Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db, "me@example.social", zerolog.Nop())

	engine, err := scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.Register(scorers.Favourites{})
	engine.Register(scorers.Replies{})
	engine.Register(scorers.TrendingTags{})

	clock := clockwork.NewFakeClock()
	tracker := timeline.NewTracker(timeline.DefaultStalenessConfig(), st, clock, zerolog.Nop())
	snaps := timeline.NewSnapshotCache(st, zerolog.Nop())

	coord, err := New(DefaultConfig(), client, engine, st, tracker, snaps, clock, zerolog.Nop())
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return &fixture{coord: coord, client: client, store: st, snaps: snaps, clock: clock}
}

func TestCoordinator_ForegroundUpdatePublishes(t *testing.T) {
	now := time.Now()
	client := &stubClient{
		home: []*feed.Item{
			homeItem("https://s/1", time.Hour, 2, now),
			homeItem("https://s/2", time.Hour, 50, now),
		},
	}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}

	tl := f.coord.Timeline()
	if len(tl) != 2 {
		t.Fatalf("timeline has %d items, want 2", len(tl))
	}
	// Same age, more favourites wins.
	if tl[0].URI != "https://s/2" {
		t.Errorf("timeline[0] = %s, want the higher-scored item", tl[0].URI)
	}
	if tl[0].Score <= tl[1].Score {
		t.Errorf("timeline must be sorted by score desc: %v then %v", tl[0].Score, tl[1].Score)
	}

	// Foreground publish lands in the visible snapshot.
	visible, err := f.snaps.Visible()
	if err != nil || len(visible) != 2 {
		t.Errorf("visible snapshot not saved: %v err %v", visible, err)
	}
	if f.coord.NumTriggers() != 1 {
		t.Errorf("NumTriggers = %d, want 1", f.coord.NumTriggers())
	}
	if f.coord.CurrentAction() != ActionIdle {
		t.Errorf("action after update = %q, want idle", f.coord.CurrentAction())
	}
}

func TestCoordinator_FreshSourcesAreNotRefetched(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{homeItem("https://s/1", time.Hour, 1, now)}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("second update: %v", err)
	}
	// The fake clock never advanced, so home stayed fresh.
	if n := client.homeCalls.Load(); n != 1 {
		t.Errorf("home fetched %d times, want 1", n)
	}
}

func TestCoordinator_BackgroundUpdateParksPending(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{homeItem("https://s/1", time.Hour, 1, now)}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), true); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}

	// Background result must not reshuffle what the user sees.
	if len(f.coord.Timeline()) != 0 {
		t.Error("background update must not replace the visible timeline")
	}
	pending, err := f.snaps.Pending()
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending snapshot missing: %v err %v", pending, err)
	}
	if !f.snaps.VisibleStale() {
		t.Error("differing background result must set the stale flag")
	}

	// An explicit promotion installs it.
	promoted, err := f.coord.PromotePending()
	if err != nil || !promoted {
		t.Fatalf("PromotePending: promoted=%v err=%v", promoted, err)
	}
	if len(f.coord.Timeline()) != 1 {
		t.Error("promotion must install the pending timeline")
	}
}

func TestCoordinator_MarkShownDoesNotRescore(t *testing.T) {
	now := time.Now()
	items := make([]*feed.Item, 20)
	for i := range items {
		items[i] = homeItem(fmt.Sprintf("https://s/%02d", i), time.Hour, 5, now)
	}
	client := &stubClient{home: items}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}

	tl := f.coord.Timeline()
	if len(tl) != 20 {
		t.Fatalf("timeline has %d items, want 20", len(tl))
	}
	target := tl[10].CanonicalURI()
	before := tl[10].Score

	// Marking one item seen mid-session must not move or rescore it.
	f.coord.MarkShown([]string{target})

	tl = f.coord.Timeline()
	if tl[10].CanonicalURI() != target {
		t.Errorf("marking shown must not reorder the timeline, slot 10 = %s", tl[10].CanonicalURI())
	}
	if tl[10].Score != before {
		t.Errorf("marking shown must not change the displayed score: %v -> %v", before, tl[10].Score)
	}

	for _, it := range f.coord.Feed() {
		want := 0
		if it.CanonicalURI() == target {
			want = 1
		}
		if it.NumTimesShown != want {
			t.Errorf("%s NumTimesShown = %d, want %d", it.URI, it.NumTimesShown, want)
		}
	}

	// The periodic persister notices the change.
	if err := f.coord.PersistIfShownChanged(); err != nil {
		t.Fatalf("PersistIfShownChanged: %v", err)
	}
	var persisted []*feed.Item
	if _, err := f.store.GetJSON(store.KeyFeed, &persisted); err != nil {
		t.Fatalf("load persisted feed: %v", err)
	}
	if feed.TotalTimesShown(persisted) != 1 {
		t.Error("seen-state was not persisted")
	}
}

// waitFor polls cond until it holds or the deadline passes. Goroutine
// scheduling, not the fake clock, drives these conditions.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestCoordinator_NewerTriggerEvictsInFlightUpdate(t *testing.T) {
	now := time.Now()
	client := &stubClient{
		home:          []*feed.Item{homeItem("https://s/1", time.Hour, 1, now)},
		holdFirstHome: make(chan struct{}),
	}
	f := newFixture(t, client)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- f.coord.TriggerFeedUpdate(context.Background(), false)
	}()

	// The first update holds the update pass inside its home fetch.
	waitFor(t, func() bool { return client.homeCalls.Load() == 1 })
	if !f.coord.UpdateInFlight() {
		t.Error("an update holding the pass must report in-flight")
	}

	// A second trigger evicts it and runs the whole pass itself.
	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("evicted update must return context.Canceled, got %v", err)
	}

	if len(f.coord.Timeline()) != 1 {
		t.Errorf("winning update must publish, timeline has %d items", len(f.coord.Timeline()))
	}
	if f.coord.UpdateInFlight() {
		t.Error("no update should be in flight after both triggers returned")
	}
}

func TestCoordinator_PublishedTimelineIsIsolated(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{homeItem("https://s/1", time.Hour, 5, now)}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}
	held := f.coord.Timeline()
	before := held[0].Score

	w := f.coord.Weights()
	w.Scorers["favourites"] = 9
	if err := f.coord.UpdateWeights(context.Background(), w); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	// The rescore rewrites feed items in place; a snapshot handed out
	// before it ran must not change underneath its holder.
	if held[0].Score != before {
		t.Errorf("held snapshot was mutated by a later pass: %v -> %v", before, held[0].Score)
	}
	if f.coord.Timeline()[0].Score == before {
		t.Error("rescore must change the newly published score")
	}
}

func TestCoordinator_TracksUnscannedItems(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{
		homeItem("https://s/1", time.Hour, 1, now),
		homeItem("https://s/2", time.Hour, 2, now),
	}}
	f := newFixture(t, client)

	f.coord.mergeIncoming(client.home)
	if got := f.coord.NumUnscannedItems(); got != 2 {
		t.Errorf("after merge: unscanned = %d, want 2", got)
	}

	// A full update enriches everything it merged.
	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}
	if got := f.coord.NumUnscannedItems(); got != 0 {
		t.Errorf("after update: unscanned = %d, want 0", got)
	}
}

func TestCoordinator_AuthErrorSurfaces(t *testing.T) {
	client := &stubClient{homeErr: source.ErrUnauthorized}
	f := newFixture(t, client)

	err := f.coord.TriggerFeedUpdate(context.Background(), false)
	if !errors.Is(err, source.ErrUnauthorized) {
		t.Errorf("auth error must surface, got %v", err)
	}
}

func TestCoordinator_TrendingEnrichmentBoostsMatches(t *testing.T) {
	now := time.Now()
	plain := homeItem("https://s/plain", time.Hour, 0, now)
	tagged := homeItem("https://s/tagged", time.Hour, 0, now)
	tagged.Tags = []string{"golang"}

	client := &stubClient{
		home:      []*feed.Item{plain, tagged},
		trendTags: []source.TrendingTag{{Name: "golang", Uses: 100}},
	}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}

	tl := f.coord.Timeline()
	if tl[0].URI != "https://s/tagged" {
		t.Errorf("trending-tag match should rank first, got %s", tl[0].URI)
	}
	for _, it := range tl {
		if it.CompletedAt == nil {
			t.Errorf("enrichment must stamp CompletedAt on %s", it.URI)
		}
	}
}

func TestCoordinator_UpdateWeightsRescoresImmediately(t *testing.T) {
	now := time.Now()
	manyFavs := homeItem("https://s/favs", time.Hour, 50, now)
	manyReplies := homeItem("https://s/replies", time.Hour, 0, now)
	manyReplies.RepliesCount = 80

	client := &stubClient{home: []*feed.Item{manyFavs, manyReplies}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}
	if f.coord.Timeline()[0].URI != "https://s/replies" {
		t.Fatalf("precondition: replies item should lead, got %s", f.coord.Timeline()[0].URI)
	}

	w := f.coord.Weights()
	w.Scorers["replies"] = 0
	w.Scorers["favourites"] = 10
	if err := f.coord.UpdateWeights(context.Background(), w); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	if f.coord.Timeline()[0].URI != "https://s/favs" {
		t.Errorf("new weights must reorder the timeline, got %s first", f.coord.Timeline()[0].URI)
	}

	// Weights persist for the next session.
	var persisted scoring.Weights
	if _, err := f.store.GetJSON(store.KeyWeights, &persisted); err != nil {
		t.Fatalf("load persisted weights: %v", err)
	}
	if persisted.Scorers["favourites"] != 10 {
		t.Error("weights were not persisted")
	}
}

func TestCoordinator_RestoreAcrossRestart(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{homeItem("https://s/1", time.Hour, 3, now)}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}

	// A second coordinator over the same store sees the session.
	engine, _ := scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop())
	engine.Register(scorers.Favourites{})
	tracker := timeline.NewTracker(timeline.DefaultStalenessConfig(), f.store, f.clock, zerolog.Nop())
	restored, err := New(DefaultConfig(), client, engine, f.store, tracker, f.snaps, f.clock, zerolog.Nop())
	if err != nil {
		t.Fatalf("restore coordinator: %v", err)
	}
	if len(restored.Feed()) != 1 {
		t.Errorf("restored feed has %d items, want 1", len(restored.Feed()))
	}
	if len(restored.Timeline()) != 1 {
		t.Errorf("restored timeline has %d items, want 1", len(restored.Timeline()))
	}
}

func TestCoordinator_Reset(t *testing.T) {
	now := time.Now()
	client := &stubClient{home: []*feed.Item{homeItem("https://s/1", time.Hour, 3, now)}}
	f := newFixture(t, client)

	if err := f.coord.TriggerFeedUpdate(context.Background(), false); err != nil {
		t.Fatalf("TriggerFeedUpdate: %v", err)
	}
	if err := f.coord.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if len(f.coord.Feed()) != 0 || len(f.coord.Timeline()) != 0 {
		t.Error("reset must clear in-memory state")
	}
	if _, err := f.store.Get(store.KeyFeed); !errors.Is(err, store.ErrNotFound) {
		t.Error("reset must wipe persisted state")
	}
}

func TestCoordinator_TagBackfillMergesFollowedTags(t *testing.T) {
	now := time.Now()
	tagPost := &feed.Item{
		URI:       "https://s/tagged",
		ID:        "tagged",
		CreatedAt: now.Add(-time.Hour),
		Tags:      []string{"golang"},
	}
	tagPost.AddSource(feed.SourceHashtag)

	client := &stubClient{
		followed: map[string]struct{}{"golang": {}},
		tagTL:    map[string][]*feed.Item{"golang": {tagPost}},
	}
	f := newFixture(t, client)

	if err := f.coord.TriggerTagBackfill(context.Background()); err != nil {
		t.Fatalf("TriggerTagBackfill: %v", err)
	}
	if len(f.coord.Feed()) != 1 {
		t.Fatalf("feed has %d items, want 1", len(f.coord.Feed()))
	}
	if !f.coord.Feed()[0].HasSource(feed.SourceHashtag) {
		t.Error("tag backfill item must carry the hashtag source")
	}
}
