// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scorers

import (
	"context"
	"errors"
	"testing"

	"github.com/rcalloway/fediranker/internal/feed"
)

type fakeProvider struct {
	accounts map[string]struct{}
	tags     map[string]struct{}
	err      error
}

func (p *fakeProvider) FollowedAccounts(ctx context.Context) (map[string]struct{}, error) {
	return p.accounts, p.err
}

func (p *fakeProvider) FollowedTags(ctx context.Context) (map[string]struct{}, error) {
	return p.tags, p.err
}

func TestCountScorers(t *testing.T) {
	item := &feed.Item{
		FavouritesCount: 3,
		RepliesCount:    2,
		ReblogsCount:    5,
		NumTimesShown:   1,
		AttachmentCount: 4,
	}

	cases := []struct {
		name   string
		scorer interface {
			Score(*feed.Item) (float64, error)
		}
		want float64
	}{
		{"favourites", Favourites{}, 3},
		{"replies", Replies{}, 2},
		{"reblogs", Reblogs{}, 5},
		{"already_shown", AlreadyShown{}, 1},
		{"media_attachments", MediaAttachments{}, 4},
	}

	for _, tc := range cases {
		got, err := tc.scorer.Score(item)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFollowedTags(t *testing.T) {
	s := NewFollowedTags(&fakeProvider{tags: map[string]struct{}{"golang": {}, "fediverse": {}}})

	if s.Ready() {
		t.Error("scorer should not be ready before Prepare")
	}
	if err := s.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !s.Ready() {
		t.Error("scorer should be ready after Prepare")
	}

	item := &feed.Item{Tags: []string{"Golang", "cats"}}
	got, err := s.Score(item)
	if err != nil || got != 1 {
		t.Errorf("score = %v err %v, want 1", got, err)
	}
}

func TestFollowedTags_PrepareError(t *testing.T) {
	s := NewFollowedTags(&fakeProvider{err: errors.New("rate limited")})
	if err := s.Prepare(context.Background()); err == nil {
		t.Fatal("expected prepare error")
	}
	if s.Ready() {
		t.Error("failed prepare must leave scorer not ready")
	}
}

func TestMentionsFollowed(t *testing.T) {
	s := NewMentionsFollowed(&fakeProvider{accounts: map[string]struct{}{
		"alice@s": {},
		"bob@s":   {},
	}})
	if err := s.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	item := &feed.Item{
		Author:      feed.Account{Acct: "alice@s"},
		Mentions:    []string{"bob@s", "carol@s"},
		RebloggedBy: []string{"bob@s"},
	}
	got, err := s.Score(item)
	if err != nil || got != 3 {
		t.Errorf("score = %v err %v, want 3 (author + mention + boost)", got, err)
	}
}

func TestTrendingScorers(t *testing.T) {
	item := &feed.Item{
		TrendingTagMatches:  []string{"golang", "rustlang"},
		TrendingLinkMatches: []string{"https://example.com"},
	}

	if got, _ := (TrendingTags{}).Score(item); got != 2 {
		t.Errorf("trending tags = %v, want 2", got)
	}
	if got, _ := (TrendingLinks{}).Score(item); got != 1 {
		t.Errorf("trending links = %v, want 1", got)
	}
	if !(TrendingTags{}).Trending() || !(TrendingLinks{}).Trending() {
		t.Error("trending scorers must report the trending category")
	}
}
