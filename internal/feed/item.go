// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package feed

import (
	"time"
)

// SourceID identifies a data source items are fetched from.
type SourceID string

// Recognized data sources.
const (
	SourceHomeTimeline SourceID = "home"
	SourceHashtag      SourceID = "hashtag"
	SourceTrending     SourceID = "trending"
	SourceUserHistory  SourceID = "user-history"
)

// AllSources lists every recognized source in priority order
// (highest priority first). The order doubles as the dedup tie-break
// rank: when two same-URI items share an edit timestamp, the one seen
// by a higher-priority source survives.
var AllSources = []SourceID{
	SourceHomeTimeline,
	SourceHashtag,
	SourceTrending,
	SourceUserHistory,
}

// PriorityRank returns the tie-break rank of a source (lower is higher
// priority). Unknown sources rank last.
func (s SourceID) PriorityRank() int {
	for i, id := range AllSources {
		if id == s {
			return i
		}
	}
	return len(AllSources)
}

// Account is the author metadata carried on each item.
type Account struct {
	ID             string `json:"id"`
	Acct           string `json:"acct"`
	DisplayName    string `json:"display_name,omitempty"`
	FollowersCount int    `json:"followers_count,omitempty"`
	Followed       bool   `json:"followed,omitempty"`
}

// ScoreBreakdown records one scorer's contribution to an item's score.
type ScoreBreakdown struct {
	Raw      float64 `json:"raw"`
	Weighted float64 `json:"weighted"`
	Weight   float64 `json:"weight"`
}

// Item is one post/status in the feed.
//
// URI and ID are immutable identity; everything else may be updated by
// enrichment, scoring, or merging. An item that reblogs another carries
// the original's URI in ReblogOfURI but never owns the original: the
// original is shared and may independently appear in the feed.
type Item struct {
	URI string `json:"uri"`
	ID  string `json:"id"`

	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at,omitempty"`

	Author Account `json:"author"`

	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// Sources labels which data sources have observed this item.
	Sources map[SourceID]struct{} `json:"sources,omitempty"`

	// ReblogOfURI is the URI of the reblogged original, if any.
	ReblogOfURI string `json:"reblog_of_uri,omitempty"`

	// RebloggedBy lists accounts that boosted this item.
	RebloggedBy []string `json:"reblogged_by,omitempty"`

	// Mentions lists accounts mentioned in the post body.
	Mentions []string `json:"mentions,omitempty"`

	// AttachmentCount is the number of media attachments.
	AttachmentCount int `json:"attachment_count,omitempty"`

	// Monotone counters. Independent fetches may observe different
	// values; merging takes the maximum.
	FavouritesCount int `json:"favourites_count,omitempty"`
	RepliesCount    int `json:"replies_count,omitempty"`
	ReblogsCount    int `json:"reblogs_count,omitempty"`
	NumTimesShown   int `json:"num_times_shown,omitempty"`

	Muted      bool `json:"muted,omitempty"`
	Favourited bool `json:"favourited,omitempty"`
	Bookmarked bool `json:"bookmarked,omitempty"`

	// Enrichment matches, unioned on merge.
	FilterMatches       []string `json:"filter_matches,omitempty"`
	FollowedTagMatches  []string `json:"followed_tag_matches,omitempty"`
	TrendingTagMatches  []string `json:"trending_tag_matches,omitempty"`
	TrendingLinkMatches []string `json:"trending_link_matches,omitempty"`

	Score       float64                   `json:"score"`
	ScoreDetail map[string]ScoreBreakdown `json:"score_detail,omitempty"`

	// CompletedAt marks that slow trending enrichment has run.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CanonicalURI returns the URI that identifies this item for dedup
// purposes: the reblogged original's URI if present, else its own.
func (i *Item) CanonicalURI() string {
	if i.ReblogOfURI != "" {
		return i.ReblogOfURI
	}
	return i.URI
}

// IsReblog reports whether the item boosts another post.
func (i *Item) IsReblog() bool {
	return i.ReblogOfURI != ""
}

// AgeHours returns the item's age in hours relative to now.
func (i *Item) AgeHours(now time.Time) float64 {
	age := now.Sub(i.CreatedAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// EffectiveEditedAt returns the edit timestamp used for survivor
// selection during merge: EditedAt when set, else CreatedAt.
func (i *Item) EffectiveEditedAt() time.Time {
	if !i.EditedAt.IsZero() {
		return i.EditedAt
	}
	return i.CreatedAt
}

// Seen reports whether the item has been shown to the user.
func (i *Item) Seen() bool {
	return i.NumTimesShown > 0
}

// IsTrending reports whether trending enrichment matched this item.
func (i *Item) IsTrending() bool {
	return len(i.TrendingTagMatches) > 0 || len(i.TrendingLinkMatches) > 0
}

// AddSource records that a data source observed this item.
func (i *Item) AddSource(s SourceID) {
	if i.Sources == nil {
		i.Sources = make(map[SourceID]struct{}, 1)
	}
	i.Sources[s] = struct{}{}
}

// HasSource reports whether the given source observed this item.
func (i *Item) HasSource(s SourceID) bool {
	_, ok := i.Sources[s]
	return ok
}

// bestSourceRank returns the best (lowest) priority rank across the
// item's sources. Items with no recorded source rank last.
func (i *Item) bestSourceRank() int {
	best := len(AllSources) + 1
	for s := range i.Sources {
		if r := s.PriorityRank(); r < best {
			best = r
		}
	}
	return best
}
