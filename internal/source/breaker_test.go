// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package source

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
)

type fakeClient struct {
	err   error
	calls int
}

func (f *fakeClient) VerifyCredentials(context.Context) (string, error) {
	f.calls++
	return "me@example.social", f.err
}

func (f *fakeClient) HomeTimeline(context.Context, string, int) (Page, error) {
	f.calls++
	if f.err != nil {
		return Page{}, f.err
	}
	return Page{Items: []*feed.Item{{URI: "a", ID: "1"}}}, nil
}

func (f *fakeClient) TagTimeline(context.Context, string, string, int) (Page, error) {
	return Page{}, f.err
}
func (f *fakeClient) Notifications(context.Context, string, int) (Page, error) {
	return Page{}, f.err
}
func (f *fakeClient) TrendingStatuses(context.Context, int) ([]*feed.Item, error) {
	return nil, f.err
}
func (f *fakeClient) TrendingTags(context.Context) ([]TrendingTag, error)  { return nil, f.err }
func (f *fakeClient) TrendingLinks(context.Context) ([]TrendingLink, error) { return nil, f.err }
func (f *fakeClient) FollowedAccounts(context.Context) (map[string]struct{}, error) {
	return nil, f.err
}
func (f *fakeClient) FollowedTags(context.Context) (map[string]struct{}, error) {
	return nil, f.err
}

func TestBreaker_PassesThroughResults(t *testing.T) {
	b := NewBreakerClient(&fakeClient{}, zerolog.Nop())

	page, err := b.HomeTimeline(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("HomeTimeline: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].URI != "a" {
		t.Errorf("wrong page through breaker: %+v", page)
	}
}

func TestBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &fakeClient{err: errors.New("instance down")}
	b := NewBreakerClient(inner, zerolog.Nop())

	for range 15 {
		_, _ = b.HomeTimeline(context.Background(), "", 0)
	}

	_, err := b.HomeTimeline(context.Background(), "", 0)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("breaker should be open, got %v", err)
	}
	if inner.calls > 15 {
		t.Errorf("open breaker must not reach the inner client (calls=%d)", inner.calls)
	}
}

func TestBreaker_AuthErrorsDoNotTrip(t *testing.T) {
	inner := &fakeClient{err: ErrUnauthorized}
	b := NewBreakerClient(inner, zerolog.Nop())

	for range 20 {
		_, err := b.VerifyCredentials(context.Background())
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("auth error must surface unchanged, got %v", err)
		}
	}
	if inner.calls != 20 {
		t.Errorf("auth errors must not open the breaker (calls=%d)", inner.calls)
	}
}
