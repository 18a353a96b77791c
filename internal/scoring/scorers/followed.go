// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scorers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/scoring"
)

// FollowedTags scores an item by how many of its tags the user follows.
type FollowedTags struct {
	provider scoring.UserDataProvider

	mu    sync.RWMutex
	tags  map[string]struct{}
	ready bool
}

// NewFollowedTags creates the followed-tags scorer.
func NewFollowedTags(provider scoring.UserDataProvider) *FollowedTags {
	return &FollowedTags{provider: provider}
}

func (s *FollowedTags) Name() string   { return "followed_tags" }
func (s *FollowedTags) Trending() bool { return false }

// Prepare fetches the followed-tag set.
func (s *FollowedTags) Prepare(ctx context.Context) error {
	tags, err := s.provider.FollowedTags(ctx)
	if err != nil {
		return fmt.Errorf("fetch followed tags: %w", err)
	}
	s.mu.Lock()
	s.tags = tags
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *FollowedTags) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *FollowedTags) Score(item *feed.Item) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, t := range item.Tags {
		if _, ok := s.tags[strings.ToLower(t)]; ok {
			count++
		}
	}
	return float64(count), nil
}

// FollowedSet reports whether a tag is in the prepared followed set.
// The diversity scorer uses this to skip penalties for followed tags.
func (s *FollowedTags) FollowedSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags
}

// MentionsFollowed scores an item by how many followed accounts it
// mentions, interacts with, or was authored by.
type MentionsFollowed struct {
	provider scoring.UserDataProvider

	mu       sync.RWMutex
	accounts map[string]struct{}
	ready    bool
}

// NewMentionsFollowed creates the followed-accounts scorer.
func NewMentionsFollowed(provider scoring.UserDataProvider) *MentionsFollowed {
	return &MentionsFollowed{provider: provider}
}

func (s *MentionsFollowed) Name() string   { return "mentions_followed" }
func (s *MentionsFollowed) Trending() bool { return false }

// Prepare fetches the followed-account set.
func (s *MentionsFollowed) Prepare(ctx context.Context) error {
	accounts, err := s.provider.FollowedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("fetch followed accounts: %w", err)
	}
	s.mu.Lock()
	s.accounts = accounts
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *MentionsFollowed) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *MentionsFollowed) Score(item *feed.Item) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	if _, ok := s.accounts[item.Author.Acct]; ok {
		count++
	}
	for _, m := range item.Mentions {
		if _, ok := s.accounts[m]; ok {
			count++
		}
	}
	for _, b := range item.RebloggedBy {
		if _, ok := s.accounts[b]; ok {
			count++
		}
	}
	return float64(count), nil
}

// FollowedSet returns the prepared followed-account set.
func (s *MentionsFollowed) FollowedSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts
}

var (
	_ scoring.Scorer = (*FollowedTags)(nil)
	_ scoring.Scorer = (*MentionsFollowed)(nil)
)
