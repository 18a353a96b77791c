// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scorers

import (
	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/scoring"
)

// TrendingTags scores an item by how many trending tags matched it
// during enrichment. Belongs to the trending category, so its weighted
// score also picks up the global trending multiplier.
type TrendingTags struct{ stateless }

func (TrendingTags) Name() string   { return "trending_tags" }
func (TrendingTags) Trending() bool { return true }

func (TrendingTags) Score(item *feed.Item) (float64, error) {
	return float64(len(item.TrendingTagMatches)), nil
}

// TrendingLinks scores an item by how many trending links matched it
// during enrichment.
type TrendingLinks struct{ stateless }

func (TrendingLinks) Name() string   { return "trending_links" }
func (TrendingLinks) Trending() bool { return true }

func (TrendingLinks) Score(item *feed.Item) (float64, error) {
	return float64(len(item.TrendingLinkMatches)), nil
}

var (
	_ scoring.Scorer = (*TrendingTags)(nil)
	_ scoring.Scorer = (*TrendingLinks)(nil)
)
