// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package source talks to the user's Mastodon-compatible instance. It
// fetches timelines, notifications, trending data, and the user's
// follow graph, translating API payloads into feed items.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/rcalloway/fediranker/internal/feed"
)

// Distinguished API errors. Auth failures must surface to the user
// instead of being swallowed by retry logic.
var (
	// ErrUnauthorized means the access token was rejected (HTTP 401/403).
	// The session cannot continue without re-authentication.
	ErrUnauthorized = errors.New("source: access token rejected")

	// ErrRateLimited means the instance kept returning HTTP 429 after
	// all backoff retries were spent.
	ErrRateLimited = errors.New("source: rate limited by instance")
)

// IsAuthError reports whether err indicates a rejected credential.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// TrendingTag is a hashtag the instance reports as trending.
type TrendingTag struct {
	Name string `json:"name"`
	Uses int    `json:"uses"`
}

// TrendingLink is a link the instance reports as trending.
type TrendingLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Page is a cursor-bounded slice of fetched items. NextMaxID is the
// max_id to pass on the next call to page further back, empty when the
// instance returned the final page.
type Page struct {
	Items     []*feed.Item
	NextMaxID string
}

// Client is the instance API surface the coordinator consumes. The
// FollowedAccounts and FollowedTags methods satisfy the user-data
// provider contract the scoring package defines.
type Client interface {
	// VerifyCredentials confirms the token works and returns the
	// logged-in account's acct handle.
	VerifyCredentials(ctx context.Context) (string, error)

	// HomeTimeline fetches a page of the home timeline, paging back
	// from maxID (empty fetches the newest page).
	HomeTimeline(ctx context.Context, maxID string, limit int) (Page, error)

	// TagTimeline fetches a page of a followed hashtag's timeline.
	TagTimeline(ctx context.Context, tag, maxID string, limit int) (Page, error)

	// Notifications fetches statuses the user recently interacted
	// with, paging back from maxID.
	Notifications(ctx context.Context, maxID string, limit int) (Page, error)

	// TrendingStatuses fetches the instance's trending statuses.
	TrendingStatuses(ctx context.Context, offset int) ([]*feed.Item, error)

	// TrendingTags fetches the instance's trending hashtags.
	TrendingTags(ctx context.Context) ([]TrendingTag, error)

	// TrendingLinks fetches the instance's trending links.
	TrendingLinks(ctx context.Context) ([]TrendingLink, error)

	// FollowedAccounts returns the acct handles the user follows.
	FollowedAccounts(ctx context.Context) (map[string]struct{}, error)

	// FollowedTags returns the lowercased hashtags the user follows.
	FollowedTags(ctx context.Context) (map[string]struct{}, error)
}

// Config configures the instance client.
type Config struct {
	// BaseURL is the instance root, e.g. "https://example.social".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// AccessToken is the OAuth bearer token for the session user.
	AccessToken string `koanf:"access_token" validate:"required"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// PageSize is the default statuses-per-page for timeline fetches.
	PageSize int `koanf:"page_size" validate:"min=1,max=80"`

	// RequestsPerSecond throttles outbound API calls.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`

	// Burst is the rate limiter's burst allowance.
	Burst int `koanf:"burst" validate:"min=1"`
}

// DefaultConfig returns conservative client defaults. Mastodon caps
// timeline pages at 40 statuses and budgets 300 requests per 5 minutes.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		PageSize:          40,
		RequestsPerSecond: 1,
		Burst:             5,
	}
}
