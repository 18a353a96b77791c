// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scorers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/scoring"
)

// negativeEpsilon separates floating-point noise from real bugs when a
// computed penalty comes out negative.
const negativeEpsilon = 1e-9

// DiversityConfig tunes the feed-level diversity penalty.
type DiversityConfig struct {
	// MinTagHits is how many occurrences of a trending tag are penalized
	// before further penalties for that tag stop.
	MinTagHits int

	// ReblogMultiplier is the extra factor applied to the penalty of
	// boosted items.
	ReblogMultiplier float64
}

// DefaultDiversityConfig returns production defaults.
func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{
		MinTagHits:       3,
		ReblogMultiplier: 1.5,
	}
}

// Diversity is a feed scorer that penalizes items from accounts and
// trending tags over-represented in the current feed, so one prolific
// poster cannot dominate. Its raw score is a non-negative penalty;
// give it a negative user weight so the penalty subtracts.
//
// Walking the feed in chronological order, each occurrence of an entity
// accumulates a penalty of (totalOccurrences - occurrencesSeenSoFar) *
// penaltyIncrement, so the earliest (oldest) items are hit hardest and
// the penalty shrinks toward the increment floor as instances are
// consumed.
type Diversity struct {
	config DiversityConfig
	logger zerolog.Logger

	// followedAccounts/followedTags return the live followed sets from
	// the affinity scorers, so trending-tag penalties can be skipped for
	// things the user follows.
	followedAccounts func() map[string]struct{}
	followedTags     func() map[string]struct{}

	mu    sync.RWMutex
	table map[string]float64 // item URI -> penalty
}

// NewDiversity creates the diversity feed scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDiversity(cfg DiversityConfig, followedAccounts, followedTags func() map[string]struct{}, logger zerolog.Logger) *Diversity {
	if cfg.ReblogMultiplier <= 0 {
		cfg.ReblogMultiplier = 1
	}
	if followedAccounts == nil {
		followedAccounts = func() map[string]struct{} { return nil }
	}
	if followedTags == nil {
		followedTags = func() map[string]struct{} { return nil }
	}
	return &Diversity{
		config:           cfg,
		logger:           logger.With().Str("scorer", "diversity").Logger(),
		followedAccounts: followedAccounts,
		followedTags:     followedTags,
	}
}

func (d *Diversity) Name() string   { return "diversity" }
func (d *Diversity) Trending() bool { return false }

// Prepare is a no-op; the score table comes from PrepareFeed.
func (d *Diversity) Prepare(_ context.Context) error { return nil }

func (d *Diversity) Ready() bool { return true }

// PrepareFeed recomputes the per-item penalty table from the whole feed.
func (d *Diversity) PrepareFeed(items []*feed.Item) {
	table := make(map[string]float64, len(items))

	// Chronological walk: oldest first.
	ordered := make([]*feed.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].CreatedAt.Before(ordered[b].CreatedAt)
	})

	accountTotals := make(map[string]int)
	tagTotals := make(map[string]int)
	for _, it := range ordered {
		accountTotals[it.Author.Acct]++
		for _, tag := range it.TrendingTagMatches {
			tagTotals[strings.ToLower(tag)]++
		}
	}

	// Tag penalty increment scales with feed composition.
	tagIncrement := 0.0
	if len(ordered) > 0 {
		tagIncrement = float64(len(accountTotals)) / float64(len(ordered))
	}

	followedAccounts := d.followedAccounts()
	followedTags := d.followedTags()

	accountSeen := make(map[string]int, len(accountTotals))
	tagSeen := make(map[string]int, len(tagTotals))

	for _, it := range ordered {
		penalty := 0.0

		acct := it.Author.Acct
		penalty += float64(accountTotals[acct]-accountSeen[acct]) * 1.0
		accountSeen[acct]++

		// Trending-tag penalties are skipped entirely for accounts and
		// tags the user follows.
		_, authorFollowed := followedAccounts[acct]
		for _, tag := range it.TrendingTagMatches {
			tag = strings.ToLower(tag)
			seen := tagSeen[tag]
			tagSeen[tag]++

			if authorFollowed {
				continue
			}
			if _, ok := followedTags[tag]; ok {
				continue
			}
			// After the configured minimum occurrences are consumed,
			// further penalties for this tag stop.
			if seen >= d.config.MinTagHits {
				continue
			}
			penalty += float64(tagTotals[tag]-seen) * tagIncrement
		}

		if it.IsReblog() || len(it.RebloggedBy) > 0 {
			penalty *= d.config.ReblogMultiplier
		}

		// A slightly negative penalty is floating-point noise and clamps
		// to zero. Anything beyond epsilon means the walk above is wrong.
		if penalty < 0 {
			if penalty < -negativeEpsilon {
				d.logger.Error().
					Float64("penalty", penalty).
					Str("uri", it.URI).
					Msg("negative diversity penalty, clamping")
			}
			penalty = 0
		}

		table[it.CanonicalURI()] = penalty
	}

	d.mu.Lock()
	d.table = table
	d.mu.Unlock()
}

// Score looks the item up in the prepared penalty table. Items absent
// from the table (e.g. before the first feed pass) score zero.
func (d *Diversity) Score(item *feed.Item) (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table[item.CanonicalURI()], nil
}

var _ scoring.FeedScorer = (*Diversity)(nil)
