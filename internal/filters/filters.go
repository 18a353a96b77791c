// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package filters implements user-configurable inclusion/exclusion
// predicates over feed items. An item is displayed iff every boolean
// filter AND every numeric filter allows it.
package filters

import (
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
)

// Recognized boolean filter properties.
const (
	PropertySource  = "source"
	PropertyHashtag = "hashtag"
	PropertyAuthor  = "author"
	PropertyType    = "type"
)

// Recognized numeric filter properties.
const (
	PropertyReplies    = "replies"
	PropertyReblogs    = "reblogs"
	PropertyFavourites = "favourites"
	PropertyFollowers  = "followers"
)

// BooleanProperties lists recognized boolean properties in display order.
var BooleanProperties = []string{PropertySource, PropertyHashtag, PropertyAuthor, PropertyType}

// NumericProperties lists recognized numeric properties in display order.
var NumericProperties = []string{PropertyReplies, PropertyReblogs, PropertyFavourites, PropertyFollowers}

// Post type option values for PropertyType.
const (
	TypeOriginal = "original"
	TypeReblog   = "reblog"
	TypeMedia    = "media"
)

// BooleanFilter allows items whose value for Property is in the
// selected option set. With no options selected every item passes.
// Invert flips the result.
type BooleanFilter struct {
	Property string              `json:"property"`
	Selected map[string]struct{} `json:"-"`
	Invert   bool                `json:"invert"`
}

// NewBooleanFilter creates a boolean filter with the given selected options.
func NewBooleanFilter(property string, selected []string, invert bool) *BooleanFilter {
	f := &BooleanFilter{
		Property: property,
		Selected: make(map[string]struct{}, len(selected)),
		Invert:   invert,
	}
	for _, s := range selected {
		f.Selected[s] = struct{}{}
	}
	return f
}

// Options returns the selected option values, in map order.
func (f *BooleanFilter) Options() []string {
	opts := make([]string, 0, len(f.Selected))
	for s := range f.Selected {
		opts = append(opts, s)
	}
	return opts
}

// IsAllowed reports whether the item passes this filter. A filter with
// no selected options allows everything regardless of inversion;
// inversion only flips the match once options exist, otherwise an empty
// inverted filter would blank the whole feed.
func (f *BooleanFilter) IsAllowed(item *feed.Item, logger zerolog.Logger) bool {
	if len(f.Selected) == 0 {
		return true
	}
	values, ok := booleanValues(f.Property, item)
	if !ok {
		// A malformed filter must never drop items from the feed.
		logger.Warn().
			Str("property", f.Property).
			Str("uri", item.URI).
			Msg("unknown boolean filter property, item allowed")
		return true
	}
	allowed := false
	for _, v := range values {
		if _, sel := f.Selected[v]; sel {
			allowed = true
			break
		}
	}
	return allowed != f.Invert
}

// booleanValues extracts the item's values for a boolean property.
func booleanValues(property string, item *feed.Item) ([]string, bool) {
	switch property {
	case PropertySource:
		values := make([]string, 0, len(item.Sources))
		for s := range item.Sources {
			values = append(values, string(s))
		}
		return values, true
	case PropertyHashtag:
		return item.Tags, true
	case PropertyAuthor:
		return []string{item.Author.Acct}, true
	case PropertyType:
		values := []string{TypeOriginal}
		if item.IsReblog() {
			values = []string{TypeReblog}
		}
		if item.AttachmentCount > 0 {
			values = append(values, TypeMedia)
		}
		return values, true
	default:
		return nil, false
	}
}

// NumericFilter allows items whose value for Property is at least
// Threshold. Invert flips the result, except that threshold 0 with
// Invert set always passes: zero cannot act as a maximum.
type NumericFilter struct {
	Property  string `json:"property"`
	Threshold int    `json:"threshold"`
	Invert    bool   `json:"invert"`
}

// NewNumericFilter creates a numeric minimum-threshold filter.
func NewNumericFilter(property string, threshold int, invert bool) *NumericFilter {
	return &NumericFilter{Property: property, Threshold: threshold, Invert: invert}
}

// IsAllowed reports whether the item passes this filter.
func (f *NumericFilter) IsAllowed(item *feed.Item, logger zerolog.Logger) bool {
	if f.Threshold == 0 && f.Invert {
		return true
	}
	value, ok := numericValue(f.Property, item)
	if !ok {
		logger.Warn().
			Str("property", f.Property).
			Str("uri", item.URI).
			Msg("unknown numeric filter property, item allowed")
		return true
	}
	return (value >= f.Threshold) != f.Invert
}

// numericValue extracts the item's value for a numeric property.
func numericValue(property string, item *feed.Item) (int, bool) {
	switch property {
	case PropertyReplies:
		return item.RepliesCount, true
	case PropertyReblogs:
		return item.ReblogsCount, true
	case PropertyFavourites:
		return item.FavouritesCount, true
	case PropertyFollowers:
		return item.Author.FollowersCount, true
	default:
		return 0, false
	}
}

// Settings is the ordered collection of all filters for a session.
// Exactly one filter exists per recognized property.
type Settings struct {
	Boolean []*BooleanFilter
	Numeric []*NumericFilter

	logger zerolog.Logger
}

// NewSettings returns settings with one neutral filter per recognized
// property: boolean filters with nothing selected, numeric filters at
// threshold 0. Neutral settings allow every item.
func NewSettings(logger zerolog.Logger) *Settings {
	s := &Settings{logger: logger}
	for _, p := range BooleanProperties {
		s.Boolean = append(s.Boolean, NewBooleanFilter(p, nil, false))
	}
	for _, p := range NumericProperties {
		s.Numeric = append(s.Numeric, NewNumericFilter(p, 0, false))
	}
	return s
}

// BooleanFilter returns the filter for a property, or nil if unrecognized.
func (s *Settings) BooleanFilter(property string) *BooleanFilter {
	for _, f := range s.Boolean {
		if f.Property == property {
			return f
		}
	}
	return nil
}

// NumericFilter returns the filter for a property, or nil if unrecognized.
func (s *Settings) NumericFilter(property string) *NumericFilter {
	for _, f := range s.Numeric {
		if f.Property == property {
			return f
		}
	}
	return nil
}

// Allows reports whether the item passes every filter.
func (s *Settings) Allows(item *feed.Item) bool {
	for _, f := range s.Boolean {
		if !f.IsAllowed(item, s.logger) {
			return false
		}
	}
	for _, f := range s.Numeric {
		if !f.IsAllowed(item, s.logger) {
			return false
		}
	}
	return true
}

// Apply returns the sub-feed of items that pass every filter.
func (s *Settings) Apply(items []*feed.Item) []*feed.Item {
	out := make([]*feed.Item, 0, len(items))
	for _, it := range items {
		if s.Allows(it) {
			out = append(out, it)
		}
	}
	return out
}
