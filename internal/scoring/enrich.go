// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scoring

import (
	"context"
	"strings"
	"time"

	"github.com/rcalloway/fediranker/internal/feed"
)

// EnrichTrending decorates items with trending-tag and trending-link
// matches and stamps CompletedAt. Items already enriched are skipped.
//
// Matching whole feeds against trending lists is the slowest part of a
// scoring pass, so the work runs in bounded batches with a small
// inter-batch yield, checking for cancellation at each boundary.
func (e *Engine) EnrichTrending(ctx context.Context, items []*feed.Item, trendingTags, trendingLinks []string, now time.Time) error {
	lowered := make([]string, len(trendingTags))
	for i, t := range trendingTags {
		lowered[i] = strings.ToLower(t)
	}

	enriched := 0
	for start := 0; start < len(items); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			e.logger.Trace().Int("enriched", enriched).Msg("enrichment pass cancelled")
			return err
		}

		end := start + e.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		for _, item := range items[start:end] {
			if item.CompletedAt != nil {
				continue
			}
			enrichItem(item, lowered, trendingLinks, now)
			enriched++
		}

		if end < len(items) && e.config.BatchYield > 0 {
			select {
			case <-ctx.Done():
				e.logger.Trace().Int("enriched", enriched).Msg("enrichment pass cancelled")
				return ctx.Err()
			case <-time.After(e.config.BatchYield):
			}
		}
	}

	e.logger.Debug().Int("enriched", enriched).Int("feed", len(items)).Msg("trending enrichment complete")
	return nil
}

// enrichItem matches one item against the trending lists.
func enrichItem(item *feed.Item, trendingTags, trendingLinks []string, now time.Time) {
	content := strings.ToLower(item.Content)

	for _, tag := range trendingTags {
		if hasTag(item, tag) || strings.Contains(content, "#"+tag) {
			item.TrendingTagMatches = appendUnique(item.TrendingTagMatches, tag)
		}
	}

	for _, link := range trendingLinks {
		if strings.Contains(content, strings.ToLower(link)) {
			item.TrendingLinkMatches = appendUnique(item.TrendingLinkMatches, link)
		}
	}

	completed := now
	item.CompletedAt = &completed
}

func hasTag(item *feed.Item, tag string) bool {
	for _, t := range item.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// MatchFollowedTags decorates items with matches against the tags the
// user follows. Cheap enough to run unchunked.
func MatchFollowedTags(items []*feed.Item, followed map[string]struct{}) {
	for _, item := range items {
		for _, t := range item.Tags {
			if _, ok := followed[strings.ToLower(t)]; ok {
				item.FollowedTagMatches = appendUnique(item.FollowedTagMatches, strings.ToLower(t))
			}
		}
	}
}
