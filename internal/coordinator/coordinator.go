// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package coordinator owns the feed update pipeline: fetch stale
// sources, merge into the deduplicated feed, enrich and score, then
// publish the filtered timeline. Every trigger takes the score lock
// before it fetches, so fetch, merge, and scoring run as one pass; a
// new trigger evicts the in-flight pass rather than queueing behind it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/filters"
	"github.com/rcalloway/fediranker/internal/metrics"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/source"
	"github.com/rcalloway/fediranker/internal/store"
	"github.com/rcalloway/fediranker/internal/timeline"
)

// Action labels what the coordinator is currently doing, for status
// reporting in the API.
type Action string

const (
	ActionIdle            Action = "idle"
	ActionFetchingHome    Action = "fetching-home"
	ActionBackfilling     Action = "backfilling"
	ActionTagBackfilling  Action = "tag-backfilling"
	ActionPullingUserData Action = "pulling-user-data"
	ActionFinishingUpdate Action = "finishing-update"
)

// Config tunes the update pipeline.
type Config struct {
	// MaxFeedLength bounds the merged feed; the oldest items beyond it
	// are dropped after each merge.
	MaxFeedLength int `koanf:"max_feed_length" validate:"min=1"`

	// BackfillPages is how many older pages a backfill trigger pulls.
	BackfillPages int `koanf:"backfill_pages" validate:"min=1"`

	// MaxBackfillTags caps how many followed hashtags one tag-backfill
	// trigger walks, so a heavy follow list cannot blow the rate budget.
	MaxBackfillTags int `koanf:"max_backfill_tags" validate:"min=1"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxFeedLength:   3000,
		BackfillPages:   3,
		MaxBackfillTags: 10,
	}
}

// TimelineListener is notified with the new visible timeline after a
// foreground update publishes it.
type TimelineListener func(items []*feed.Item)

// Coordinator drives the fetch/merge/score/publish pipeline.
type Coordinator struct {
	cfg       Config
	client    source.Client
	engine    *scoring.Engine
	store     *store.Store
	tracker   *timeline.Tracker
	snapshots *timeline.SnapshotCache
	clock     clockwork.Clock
	logger    zerolog.Logger

	// mergeMu serializes feed mutation (merge, mark-shown, reset).
	mergeMu sync.Mutex

	// scoreLock serializes whole update passes, fetch through publish;
	// a new trigger evicts the running one.
	scoreLock *CancelLock

	mu             sync.RWMutex
	feedItems      []*feed.Item
	visibleItems   []*feed.Item
	filterSettings *filters.Settings
	trendingTags   []string
	trendingLinks  []string
	cursors        map[feed.SourceID]string
	action         Action
	numTriggers    int
	numUnscanned   int
	lastShownTotal int
	listeners      []TimelineListener
}

// New creates a coordinator and restores persisted session state: the
// merged feed, filter settings, weights, and the blue/green timeline
// snapshot (promoting a clean pending snapshot).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(
	cfg Config,
	client source.Client,
	engine *scoring.Engine,
	st *store.Store,
	tracker *timeline.Tracker,
	snapshots *timeline.SnapshotCache,
	clock clockwork.Clock,
	logger zerolog.Logger,
) (*Coordinator, error) {
	c := &Coordinator{
		cfg:       cfg,
		client:    client,
		engine:    engine,
		store:     st,
		tracker:   tracker,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger.With().Str("component", "coordinator").Logger(),
		scoreLock: NewCancelLock(),
		cursors:   make(map[feed.SourceID]string),
		action:    ActionIdle,
	}

	if err := c.restore(logger); err != nil {
		return nil, err
	}
	return c, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) restore(logger zerolog.Logger) error {
	var items []*feed.Item
	if _, err := c.store.GetJSON(store.KeyFeed, &items); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("restore feed: %w", err)
	}
	c.feedItems = items
	c.numUnscanned = countUnscanned(items)
	c.lastShownTotal = feed.TotalTimesShown(items)

	var args filters.Args
	if _, err := c.store.GetJSON(store.KeyFilters, &args); err == nil {
		c.filterSettings = filters.Decode(args, logger)
	} else {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("failed to restore filters, using defaults")
		}
		c.filterSettings = filters.NewSettings(logger)
	}

	var weights scoring.Weights
	if _, err := c.store.GetJSON(store.KeyWeights, &weights); err == nil {
		if err := c.engine.SetWeights(weights); err != nil {
			c.logger.Warn().Err(err).Msg("persisted weights invalid, keeping defaults")
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		c.logger.Warn().Err(err).Msg("failed to restore weights")
	}

	visible, promoted, err := c.snapshots.LoadOnColdStart()
	if err != nil {
		return fmt.Errorf("restore timeline: %w", err)
	}
	if promoted {
		metrics.SnapshotPromotions.Inc()
	}
	c.visibleItems = visible

	c.logger.Info().
		Int("feed", len(items)).
		Int("timeline", len(visible)).
		Bool("promoted", promoted).
		Msg("session state restored")
	return nil
}

// OnTimelineChanged registers a listener called after each foreground
// publish. Listeners must not block.
func (c *Coordinator) OnTimelineChanged(fn TimelineListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// CurrentAction reports what the coordinator is doing right now.
func (c *Coordinator) CurrentAction() Action {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.action
}

// NumTriggers returns how many update triggers this session has seen.
func (c *Coordinator) NumTriggers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numTriggers
}

// NumUnscannedItems returns how many feed items have been merged but
// not yet been through an enrichment pass.
func (c *Coordinator) NumUnscannedItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numUnscanned
}

// UpdateInFlight reports whether an update pass currently holds the
// score lock. Status reporting only; the answer can be stale by the
// time it is read.
func (c *Coordinator) UpdateInFlight() bool {
	return c.scoreLock.TryHeld()
}

// Timeline returns the current visible timeline.
func (c *Coordinator) Timeline() []*feed.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visibleItems
}

// Feed returns the full merged feed.
func (c *Coordinator) Feed() []*feed.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedItems
}

func (c *Coordinator) setAction(a Action) {
	c.mu.Lock()
	c.action = a
	c.mu.Unlock()
}

// TriggerFeedUpdate fetches every stale source, merges the results into
// the feed, rescores, and publishes. Background updates land in the
// pending snapshot; foreground updates replace the visible timeline.
func (c *Coordinator) TriggerFeedUpdate(ctx context.Context, background bool) error {
	trigger := shortID()
	kind := "refresh"
	if background {
		kind = "background-refresh"
	}
	metrics.FeedTriggers.WithLabelValues("refresh").Inc()
	c.bumpTriggers()

	log := c.logger.With().Str("trigger", trigger).Str("kind", kind).Logger()
	log.Info().Msg("feed update triggered")

	c.setAction(ActionFetchingHome)
	defer c.setAction(ActionIdle)

	sctx, release, err := c.scoreLock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	incoming, err := c.fetchStale(sctx, log)
	if err != nil {
		return c.evicted(err, log)
	}

	c.mergeIncoming(incoming)
	return c.rescoreAndPublish(sctx, background, log)
}

// TriggerBackfill pages further back through the home timeline to
// extend the feed, then rescores.
func (c *Coordinator) TriggerBackfill(ctx context.Context) error {
	trigger := shortID()
	metrics.FeedTriggers.WithLabelValues("backfill").Inc()
	c.bumpTriggers()

	log := c.logger.With().Str("trigger", trigger).Str("kind", "backfill").Logger()
	log.Info().Msg("backfill triggered")

	c.setAction(ActionBackfilling)
	defer c.setAction(ActionIdle)

	sctx, release, err := c.scoreLock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var incoming []*feed.Item
	maxID := c.cursor(feed.SourceHomeTimeline)
	for page := 0; page < c.cfg.BackfillPages; page++ {
		p, err := c.client.HomeTimeline(sctx, maxID, 0)
		if err != nil {
			return c.evicted(fmt.Errorf("backfill page %d: %w", page, err), log)
		}
		incoming = append(incoming, p.Items...)
		if p.NextMaxID == "" {
			maxID = ""
			break
		}
		maxID = p.NextMaxID
	}
	c.setCursor(feed.SourceHomeTimeline, maxID)

	log.Debug().Int("items", len(incoming)).Msg("backfill fetched")
	c.mergeIncoming(incoming)
	return c.rescoreAndPublish(sctx, true, log)
}

// TriggerTagBackfill pulls recent posts from the user's followed
// hashtags, then rescores.
func (c *Coordinator) TriggerTagBackfill(ctx context.Context) error {
	trigger := shortID()
	metrics.FeedTriggers.WithLabelValues("tag-backfill").Inc()
	c.bumpTriggers()

	log := c.logger.With().Str("trigger", trigger).Str("kind", "tag-backfill").Logger()
	log.Info().Msg("tag backfill triggered")

	c.setAction(ActionTagBackfilling)
	defer c.setAction(ActionIdle)

	sctx, release, err := c.scoreLock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tags, err := c.client.FollowedTags(sctx)
	if err != nil {
		return c.evicted(fmt.Errorf("list followed tags: %w", err), log)
	}

	ordered := make([]string, 0, len(tags))
	for tag := range tags {
		ordered = append(ordered, tag)
	}
	sort.Strings(ordered)
	if len(ordered) > c.cfg.MaxBackfillTags {
		ordered = ordered[:c.cfg.MaxBackfillTags]
	}

	var incoming []*feed.Item
	for _, tag := range ordered {
		p, err := c.client.TagTimeline(sctx, tag, "", 0)
		if err != nil {
			if source.IsAuthError(err) {
				return err
			}
			if errors.Is(err, context.Canceled) {
				return c.evicted(err, log)
			}
			log.Warn().Str("tag", tag).Err(err).Msg("tag timeline fetch failed, continuing")
			continue
		}
		incoming = append(incoming, p.Items...)
	}
	c.tracker.MarkFetched(feed.SourceHashtag)

	log.Debug().Int("tags", len(ordered)).Int("items", len(incoming)).Msg("tag backfill fetched")
	c.mergeIncoming(incoming)
	return c.rescoreAndPublish(sctx, true, log)
}

// TriggerMoreUserData pulls further back through the user's
// notifications so interaction history can inform scoring.
func (c *Coordinator) TriggerMoreUserData(ctx context.Context) error {
	trigger := shortID()
	metrics.FeedTriggers.WithLabelValues("user-data").Inc()
	c.bumpTriggers()

	log := c.logger.With().Str("trigger", trigger).Str("kind", "user-data").Logger()
	log.Info().Msg("user data pull triggered")

	c.setAction(ActionPullingUserData)
	defer c.setAction(ActionIdle)

	sctx, release, err := c.scoreLock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	p, err := c.client.Notifications(sctx, c.cursor(feed.SourceUserHistory), 0)
	if err != nil {
		return c.evicted(fmt.Errorf("fetch notifications: %w", err), log)
	}
	c.setCursor(feed.SourceUserHistory, p.NextMaxID)
	c.tracker.MarkFetched(feed.SourceUserHistory)

	log.Debug().Int("items", len(p.Items)).Msg("user data fetched")
	c.mergeIncoming(p.Items)
	return c.rescoreAndPublish(sctx, true, log)
}

// fetchStale pulls fresh data from every source past its freshness
// window. A failing non-home source is skipped with a warning; a
// failing home fetch or a rejected token aborts the update.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) fetchStale(ctx context.Context, log zerolog.Logger) ([]*feed.Item, error) {
	var incoming []*feed.Item

	for _, src := range c.tracker.StaleSources() {
		switch src {
		case feed.SourceHomeTimeline:
			p, err := c.client.HomeTimeline(ctx, "", 0)
			if err != nil {
				return nil, fmt.Errorf("fetch home timeline: %w", err)
			}
			incoming = append(incoming, p.Items...)
			c.setCursor(feed.SourceHomeTimeline, p.NextMaxID)
			c.tracker.MarkFetched(src)

		case feed.SourceTrending:
			if err := c.fetchTrending(ctx, &incoming, log); err != nil {
				if source.IsAuthError(err) || errors.Is(err, context.Canceled) {
					return nil, err
				}
				log.Warn().Err(err).Msg("trending fetch failed, continuing without it")
				continue
			}
			c.tracker.MarkFetched(src)

		case feed.SourceUserHistory:
			p, err := c.client.Notifications(ctx, "", 0)
			if err != nil {
				if source.IsAuthError(err) || errors.Is(err, context.Canceled) {
					return nil, err
				}
				log.Warn().Err(err).Msg("notifications fetch failed, continuing without them")
				continue
			}
			incoming = append(incoming, p.Items...)
			c.setCursor(feed.SourceUserHistory, p.NextMaxID)
			c.tracker.MarkFetched(src)

		case feed.SourceHashtag:
			// Tag timelines are expensive (one request per followed
			// tag); they refresh through the dedicated tag backfill
			// trigger instead of every update.
		}
	}

	metrics.StaleSources.Set(float64(len(c.tracker.StaleSources())))
	log.Debug().Int("items", len(incoming)).Msg("stale sources fetched")
	return incoming, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) fetchTrending(ctx context.Context, incoming *[]*feed.Item, log zerolog.Logger) error {
	statuses, err := c.client.TrendingStatuses(ctx, 0)
	if err != nil {
		return err
	}
	*incoming = append(*incoming, statuses...)

	tags, err := c.client.TrendingTags(ctx)
	if err != nil {
		return err
	}
	links, err := c.client.TrendingLinks(ctx)
	if err != nil {
		return err
	}

	tagNames := make([]string, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, strings.ToLower(t.Name))
	}
	linkURLs := make([]string, 0, len(links))
	for _, l := range links {
		linkURLs = append(linkURLs, l.URL)
	}

	c.mu.Lock()
	c.trendingTags = tagNames
	c.trendingLinks = linkURLs
	c.mu.Unlock()

	log.Debug().Int("statuses", len(statuses)).Int("tags", len(tagNames)).Int("links", len(linkURLs)).Msg("trending fetched")
	return nil
}

// mergeIncoming folds a fetched batch into the feed under the merge
// lock. The caller holds the score lock, so a merge never runs beside
// an enrichment or scoring pass; mergeMu additionally serializes
// against MarkShown and Reset.
func (c *Coordinator) mergeIncoming(incoming []*feed.Item) {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	c.mu.RLock()
	existing := c.feedItems
	c.mu.RUnlock()

	merged := feed.Merge(existing, incoming)
	absorbed := len(existing) + len(incoming) - len(merged)
	if absorbed > 0 {
		metrics.MergedItems.Add(float64(absorbed))
	}
	merged = feed.Truncate(merged, c.cfg.MaxFeedLength)

	c.mu.Lock()
	c.feedItems = merged
	c.numUnscanned = countUnscanned(merged)
	c.mu.Unlock()
	metrics.FeedSize.Set(float64(len(merged)))
}

// rescoreAndPublish runs enrichment and a scoring pass, then persists
// and publishes. The caller must hold the score lock; ctx is the lock's
// evictable context, so a pass evicted by a newer trigger returns
// context.Canceled and the newer pass takes over publication.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) rescoreAndPublish(ctx context.Context, background bool, log zerolog.Logger) error {
	c.setAction(ActionFinishingUpdate)

	metrics.ScoringPasses.Inc()
	now := c.clock.Now()

	c.mu.RLock()
	items := c.feedItems
	tags := c.trendingTags
	links := c.trendingLinks
	c.mu.RUnlock()

	if err := c.engine.EnrichTrending(ctx, items, tags, links, now); err != nil {
		return c.evicted(err, log)
	}
	if err := c.engine.ScoreFeed(ctx, items, now); err != nil {
		return c.evicted(err, log)
	}

	c.mu.Lock()
	c.numUnscanned = countUnscanned(items)
	c.mu.Unlock()

	return c.publish(items, background, log)
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) evicted(err error, log zerolog.Logger) error {
	if errors.Is(err, context.Canceled) {
		metrics.ScoringPassesCancelled.Inc()
		log.Debug().Msg("update pass evicted by newer trigger")
	}
	return err
}

// countUnscanned reports how many items still await enrichment.
func countUnscanned(items []*feed.Item) int {
	n := 0
	for _, it := range items {
		if it.CompletedAt == nil {
			n++
		}
	}
	return n
}

// publish persists the scored feed, applies filters, sorts the timeline
// by score, and installs it: visible for foreground updates, pending
// (plus the stale flag) for background ones.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) publish(items []*feed.Item, background bool, log zerolog.Logger) error {
	if err := c.store.SetJSON(store.KeyFeed, items); err != nil {
		log.Error().Err(err).Msg("failed to persist feed")
	}
	if err := c.store.SetJSON(store.KeyHomeFeed, feed.HomeOnly(items)); err != nil {
		log.Error().Err(err).Msg("failed to persist home feed")
	}

	c.mu.RLock()
	settings := c.filterSettings
	c.mu.RUnlock()

	// The published snapshot is a deep copy: the next scoring pass
	// mutates feed items in place and must never write through what
	// the API is serving.
	visible := feed.Clone(settings.Apply(items))
	sort.SliceStable(visible, func(a, b int) bool {
		return visible[a].Score > visible[b].Score
	})

	if background {
		if err := c.snapshots.SavePending(visible); err != nil {
			return fmt.Errorf("save pending timeline: %w", err)
		}
		log.Info().Int("items", len(visible)).Msg("background update parked in pending snapshot")
		return nil
	}

	if err := c.snapshots.SaveVisible(visible); err != nil {
		return fmt.Errorf("save visible timeline: %w", err)
	}

	c.mu.Lock()
	c.visibleItems = visible
	c.lastShownTotal = feed.TotalTimesShown(items)
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(visible)
	}

	log.Info().Int("items", len(visible)).Msg("timeline published")
	return nil
}

// PromotePending makes the pending snapshot visible on an explicit user
// refresh without refetching. Returns false when there is nothing
// pending.
func (c *Coordinator) PromotePending() (bool, error) {
	pending, err := c.snapshots.Pending()
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := c.snapshots.SaveVisible(pending); err != nil {
		return false, err
	}
	metrics.SnapshotPromotions.Inc()

	c.mu.Lock()
	c.visibleItems = pending
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(pending)
	}
	return true, nil
}

// MarkShown records that the given items were displayed. Seen-state
// only bumps counters; scores stay stable until the next scoring pass.
func (c *Coordinator) MarkShown(uris []string) {
	if len(uris) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(uris))
	for _, u := range uris {
		seen[u] = struct{}{}
	}

	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	c.mu.Lock()
	for _, it := range c.feedItems {
		if _, ok := seen[it.CanonicalURI()]; ok {
			it.NumTimesShown++
		}
	}
	c.mu.Unlock()
}

// PersistIfShownChanged writes the feed when seen-state changed since
// the last write. The background persister calls this periodically so
// every view does not cost a store write.
func (c *Coordinator) PersistIfShownChanged() error {
	c.mu.RLock()
	items := c.feedItems
	last := c.lastShownTotal
	c.mu.RUnlock()

	total := feed.TotalTimesShown(items)
	if total == last {
		return nil
	}

	if err := c.store.SetJSON(store.KeyFeed, items); err != nil {
		return fmt.Errorf("persist feed: %w", err)
	}

	c.mu.Lock()
	c.lastShownTotal = total
	c.mu.Unlock()
	c.logger.Debug().Int("total_shown", total).Msg("seen-state persisted")
	return nil
}

// Filters returns the current filter settings encoded for transport.
func (c *Coordinator) Filters() filters.Args {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filterSettings.Encode()
}

// UpdateFilters validates, installs, and persists new filter settings,
// then re-filters the current feed without rescoring.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *Coordinator) UpdateFilters(args filters.Args, logger zerolog.Logger) error {
	if err := args.Validate(); err != nil {
		return err
	}
	settings := filters.Decode(args, logger)

	if err := c.store.SetJSON(store.KeyFilters, settings.Encode()); err != nil {
		return fmt.Errorf("persist filters: %w", err)
	}

	// Re-filtering publishes a snapshot of the feed, so it takes the
	// score lock like any other publisher.
	_, release, err := c.scoreLock.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	c.filterSettings = settings
	items := c.feedItems
	c.mu.Unlock()

	return c.publish(items, false, c.logger)
}

// Weights returns the engine's current weights.
func (c *Coordinator) Weights() scoring.Weights {
	return c.engine.Weights()
}

// UpdateWeights validates, installs, and persists new weights, then
// rescores the feed in the foreground.
func (c *Coordinator) UpdateWeights(ctx context.Context, w scoring.Weights) error {
	if err := c.engine.SetWeights(w); err != nil {
		return err
	}
	if err := c.store.SetJSON(store.KeyWeights, c.engine.Weights()); err != nil {
		return fmt.Errorf("persist weights: %w", err)
	}

	sctx, release, err := c.scoreLock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return c.rescoreAndPublish(sctx, false, c.logger)
}

// Reset wipes all persisted and in-memory session state, as at logout.
func (c *Coordinator) Reset() error {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	if err := c.store.RemoveAll(); err != nil {
		return fmt.Errorf("wipe session store: %w", err)
	}

	c.mu.Lock()
	c.feedItems = nil
	c.visibleItems = nil
	c.trendingTags = nil
	c.trendingLinks = nil
	c.cursors = make(map[feed.SourceID]string)
	c.numUnscanned = 0
	c.lastShownTotal = 0
	c.mu.Unlock()

	metrics.FeedSize.Set(0)
	c.logger.Info().Msg("session state reset")
	return nil
}

func (c *Coordinator) bumpTriggers() {
	c.mu.Lock()
	c.numTriggers++
	c.mu.Unlock()
}

func (c *Coordinator) cursor(src feed.SourceID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursors[src]
}

func (c *Coordinator) setCursor(src feed.SourceID, maxID string) {
	c.mu.Lock()
	c.cursors[src] = maxID
	c.mu.Unlock()
}

// shortID returns a short correlation ID for trigger logging.
func shortID() string {
	return uuid.NewString()[:8]
}
