// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package feed

import (
	"sort"
)

// Merge combines existing feed items with an incoming batch into one
// deduplicated feed. It is a pure function: inputs are not mutated and
// the result does not alias input items.
//
// Items are grouped by canonical URI. Within a group the survivor is the
// item with the most recent edit timestamp; ties are broken by source
// priority rank, then by the item's own URI. Array-valued properties are
// unioned across the whole group, monotone counters take the group
// maximum, and boolean flags are OR-ed, because independent fetches may
// observe different states of the same post.
//
// The output is ordered newest-first by creation time, ties broken by
// canonical URI so the result is deterministic for any input order.
func Merge(existing, incoming []*Item) []*Item {
	groups := make(map[string][]*Item, len(existing)+len(incoming))
	for _, it := range existing {
		if it == nil || it.CanonicalURI() == "" {
			continue
		}
		groups[it.CanonicalURI()] = append(groups[it.CanonicalURI()], it)
	}
	for _, it := range incoming {
		if it == nil || it.CanonicalURI() == "" {
			continue
		}
		groups[it.CanonicalURI()] = append(groups[it.CanonicalURI()], it)
	}

	merged := make([]*Item, 0, len(groups))
	for _, group := range groups {
		merged = append(merged, mergeGroup(group))
	}

	sort.Slice(merged, func(a, b int) bool {
		if !merged[a].CreatedAt.Equal(merged[b].CreatedAt) {
			return merged[a].CreatedAt.After(merged[b].CreatedAt)
		}
		return merged[a].CanonicalURI() < merged[b].CanonicalURI()
	})

	return merged
}

// mergeGroup collapses all items sharing a canonical URI into the
// single survivor, absorbing the rest.
func mergeGroup(group []*Item) *Item {
	survivor := cloneItem(pickSurvivor(group))

	for _, other := range group {
		absorb(survivor, other)
	}

	return survivor
}

// pickSurvivor selects the group member with the most recent edit
// timestamp. Ties fall to the best source priority rank, then to the
// lexically smallest own URI, so selection never depends on input order.
func pickSurvivor(group []*Item) *Item {
	best := group[0]
	for _, it := range group[1:] {
		switch {
		case it.EffectiveEditedAt().After(best.EffectiveEditedAt()):
			best = it
		case it.EffectiveEditedAt().Equal(best.EffectiveEditedAt()):
			if r, br := it.bestSourceRank(), best.bestSourceRank(); r < br ||
				(r == br && it.URI < best.URI) {
				best = it
			}
		}
	}
	return best
}

// absorb folds another same-URI observation into the survivor.
func absorb(dst, src *Item) {
	for s := range src.Sources {
		dst.AddSource(s)
	}

	dst.RebloggedBy = unionStrings(dst.RebloggedBy, src.RebloggedBy)
	dst.Mentions = unionStrings(dst.Mentions, src.Mentions)
	dst.Tags = unionStrings(dst.Tags, src.Tags)
	dst.FilterMatches = unionStrings(dst.FilterMatches, src.FilterMatches)
	dst.FollowedTagMatches = unionStrings(dst.FollowedTagMatches, src.FollowedTagMatches)
	dst.TrendingTagMatches = unionStrings(dst.TrendingTagMatches, src.TrendingTagMatches)
	dst.TrendingLinkMatches = unionStrings(dst.TrendingLinkMatches, src.TrendingLinkMatches)

	dst.FavouritesCount = maxInt(dst.FavouritesCount, src.FavouritesCount)
	dst.RepliesCount = maxInt(dst.RepliesCount, src.RepliesCount)
	dst.ReblogsCount = maxInt(dst.ReblogsCount, src.ReblogsCount)
	dst.NumTimesShown = maxInt(dst.NumTimesShown, src.NumTimesShown)
	dst.AttachmentCount = maxInt(dst.AttachmentCount, src.AttachmentCount)

	dst.Muted = dst.Muted || src.Muted
	dst.Favourited = dst.Favourited || src.Favourited
	dst.Bookmarked = dst.Bookmarked || src.Bookmarked

	if dst.CompletedAt == nil && src.CompletedAt != nil {
		t := *src.CompletedAt
		dst.CompletedAt = &t
	}
}

// Clone deep-copies a slice of items. The copies share no memory with
// the originals, so one side can be mutated while the other is read.
func Clone(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}

// cloneItem returns a deep copy so Merge never mutates its inputs.
func cloneItem(src *Item) *Item {
	dst := *src

	if src.Sources != nil {
		dst.Sources = make(map[SourceID]struct{}, len(src.Sources))
		for s := range src.Sources {
			dst.Sources[s] = struct{}{}
		}
	}

	dst.Tags = append([]string(nil), src.Tags...)
	dst.RebloggedBy = append([]string(nil), src.RebloggedBy...)
	dst.Mentions = append([]string(nil), src.Mentions...)
	dst.FilterMatches = append([]string(nil), src.FilterMatches...)
	dst.FollowedTagMatches = append([]string(nil), src.FollowedTagMatches...)
	dst.TrendingTagMatches = append([]string(nil), src.TrendingTagMatches...)
	dst.TrendingLinkMatches = append([]string(nil), src.TrendingLinkMatches...)

	if src.ScoreDetail != nil {
		dst.ScoreDetail = make(map[string]ScoreBreakdown, len(src.ScoreDetail))
		for k, v := range src.ScoreDetail {
			dst.ScoreDetail[k] = v
		}
	}

	if src.CompletedAt != nil {
		t := *src.CompletedAt
		dst.CompletedAt = &t
	}

	return &dst
}

// unionStrings merges two string slices, deduplicated and sorted so
// merge output is independent of input order.
func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Truncate drops the oldest items beyond max, preserving order. The
// input must already be ordered newest-first, which is what Merge
// produces.
func Truncate(items []*Item, max int) []*Item {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[:max]
}

// TotalTimesShown sums NumTimesShown across the feed. The background
// persister uses this to detect that seen-state changed since the last
// write.
func TotalTimesShown(items []*Item) int {
	total := 0
	for _, it := range items {
		total += it.NumTimesShown
	}
	return total
}

// HomeOnly returns the sub-feed of items observed by the home timeline.
func HomeOnly(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it.HasSource(SourceHomeTimeline) {
			out = append(out, it)
		}
	}
	return out
}
