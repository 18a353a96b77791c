// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package filters

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
)

func testItem() *feed.Item {
	it := &feed.Item{
		URI:       "https://example.social/1",
		ID:        "1",
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Author:    feed.Account{Acct: "alice@example.social", FollowersCount: 120},
		Tags:      []string{"golang", "fediverse"},
	}
	it.AddSource(feed.SourceHomeTimeline)
	it.RepliesCount = 5
	return it
}

func TestBooleanFilter_NoSelectionAllowsAll(t *testing.T) {
	f := NewBooleanFilter(PropertyHashtag, nil, false)
	if !f.IsAllowed(testItem(), zerolog.Nop()) {
		t.Error("filter with no selected options must allow everything")
	}
}

func TestBooleanFilter_Selection(t *testing.T) {
	item := testItem()

	f := NewBooleanFilter(PropertyHashtag, []string{"golang"}, false)
	if !f.IsAllowed(item, zerolog.Nop()) {
		t.Error("item with selected tag should pass")
	}

	f = NewBooleanFilter(PropertyHashtag, []string{"cats"}, false)
	if f.IsAllowed(item, zerolog.Nop()) {
		t.Error("item without selected tag should be excluded")
	}
}

func TestBooleanFilter_Inversion(t *testing.T) {
	item := testItem()

	// Inverted with no options: everything still passes. Inversion only
	// applies once options exist, otherwise it would blank the feed.
	f := NewBooleanFilter(PropertyHashtag, nil, true)
	if !f.IsAllowed(item, zerolog.Nop()) {
		t.Error("inverted filter with no options must pass all items")
	}

	// Selecting an option then excludes items that HAVE it.
	f = NewBooleanFilter(PropertyHashtag, []string{"golang"}, true)
	if f.IsAllowed(item, zerolog.Nop()) {
		t.Error("inverted filter should exclude items matching the selection")
	}

	other := testItem()
	other.Tags = []string{"cats"}
	if !f.IsAllowed(other, zerolog.Nop()) {
		t.Error("inverted filter should allow items lacking the selection")
	}
}

func TestBooleanFilter_UnknownPropertyAllows(t *testing.T) {
	f := NewBooleanFilter("no-such-property", []string{"x"}, false)
	if !f.IsAllowed(testItem(), zerolog.Nop()) {
		t.Error("a malformed filter must never drop items")
	}
}

func TestNumericFilter_Threshold(t *testing.T) {
	item := testItem() // 5 replies

	if !NewNumericFilter(PropertyReplies, 5, false).IsAllowed(item, zerolog.Nop()) {
		t.Error("value == threshold should pass")
	}
	if NewNumericFilter(PropertyReplies, 6, false).IsAllowed(item, zerolog.Nop()) {
		t.Error("value below threshold should be excluded")
	}
}

func TestNumericFilter_Inversion(t *testing.T) {
	item := testItem() // 5 replies

	// Inverted: acts as a maximum (exclude items at/above threshold).
	if NewNumericFilter(PropertyReplies, 3, true).IsAllowed(item, zerolog.Nop()) {
		t.Error("inverted filter should exclude items at/above threshold")
	}
	if !NewNumericFilter(PropertyReplies, 10, true).IsAllowed(item, zerolog.Nop()) {
		t.Error("inverted filter should allow items below threshold")
	}
}

func TestNumericFilter_ZeroThresholdInvertedAlwaysPasses(t *testing.T) {
	// 0 cannot act as a maximum: threshold 0 + invert must never filter.
	f := NewNumericFilter(PropertyReplies, 0, true)
	item := testItem()
	if !f.IsAllowed(item, zerolog.Nop()) {
		t.Error("threshold 0 with inversion must always pass")
	}
	item.RepliesCount = 0
	if !f.IsAllowed(item, zerolog.Nop()) {
		t.Error("threshold 0 with inversion must pass zero-valued items too")
	}
}

func TestSettings_AllFiltersAND(t *testing.T) {
	s := NewSettings(zerolog.Nop())
	item := testItem()

	if !s.Allows(item) {
		t.Fatal("neutral settings must allow everything")
	}

	// Passing the hashtag filter but failing the numeric one must exclude.
	s.BooleanFilter(PropertyHashtag).Selected = map[string]struct{}{"golang": {}}
	s.NumericFilter(PropertyReplies).Threshold = 100
	if s.Allows(item) {
		t.Error("item failing any single filter must be excluded (AND semantics)")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	s := NewSettings(zerolog.Nop())
	s.BooleanFilter(PropertyHashtag).Selected = map[string]struct{}{"golang": {}}
	s.BooleanFilter(PropertyHashtag).Invert = true
	s.NumericFilter(PropertyFavourites).Threshold = 3

	decoded := Decode(s.Encode(), zerolog.Nop())

	f := decoded.BooleanFilter(PropertyHashtag)
	if _, ok := f.Selected["golang"]; !ok || !f.Invert {
		t.Errorf("boolean filter did not round-trip: %+v", f)
	}
	if decoded.NumericFilter(PropertyFavourites).Threshold != 3 {
		t.Error("numeric filter did not round-trip")
	}
}

func TestDecode_SynthesizesMissingFilters(t *testing.T) {
	// Stored args mention only one property; every other recognized
	// property must still come back with a neutral filter.
	args := Args{Numeric: []NumericArgs{{Property: PropertyReplies, Threshold: 2}}}
	s := Decode(args, zerolog.Nop())

	if len(s.Boolean) != len(BooleanProperties) {
		t.Errorf("boolean filters = %d, want %d", len(s.Boolean), len(BooleanProperties))
	}
	if len(s.Numeric) != len(NumericProperties) {
		t.Errorf("numeric filters = %d, want %d", len(s.Numeric), len(NumericProperties))
	}
	if s.NumericFilter(PropertyReblogs).Threshold != 0 {
		t.Error("synthesized filter should carry neutral defaults")
	}
}

func TestDecode_DropsUnrecognizedProperties(t *testing.T) {
	args := Args{Boolean: []BooleanArgs{{Property: "bogus", Selected: []string{"x"}}}}
	s := Decode(args, zerolog.Nop())
	if s.BooleanFilter("bogus") != nil {
		t.Error("unrecognized property should not produce a filter")
	}
}

func TestArgs_Validate(t *testing.T) {
	good := Args{Numeric: []NumericArgs{{Property: PropertyReplies, Threshold: 1}}}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := Args{Boolean: []BooleanArgs{{Property: "bogus"}}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unrecognized property")
	}
	negative := Args{Numeric: []NumericArgs{{Property: PropertyReplies, Threshold: -1}}}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative threshold")
	}
}
