// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/metrics"
)

// API payload shapes. Only the fields the ranker consumes are decoded.
type apiAccount struct {
	ID             string `json:"id"`
	Acct           string `json:"acct"`
	DisplayName    string `json:"display_name"`
	FollowersCount int    `json:"followers_count"`
}

type apiTag struct {
	Name string `json:"name"`
}

type apiMention struct {
	Acct string `json:"acct"`
}

type apiAttachment struct {
	Type string `json:"type"`
}

type apiStatus struct {
	ID               string          `json:"id"`
	URI              string          `json:"uri"`
	CreatedAt        time.Time       `json:"created_at"`
	EditedAt         *time.Time      `json:"edited_at"`
	Content          string          `json:"content"`
	Account          apiAccount      `json:"account"`
	Tags             []apiTag        `json:"tags"`
	Mentions         []apiMention    `json:"mentions"`
	MediaAttachments []apiAttachment `json:"media_attachments"`
	FavouritesCount  int             `json:"favourites_count"`
	RepliesCount     int             `json:"replies_count"`
	ReblogsCount     int             `json:"reblogs_count"`
	Favourited       bool            `json:"favourited"`
	Bookmarked       bool            `json:"bookmarked"`
	Muted            bool            `json:"muted"`
	Reblog           *apiStatus      `json:"reblog"`
}

type apiNotification struct {
	Type   string     `json:"type"`
	Status *apiStatus `json:"status"`
}

type apiFollowedTag struct {
	Name string `json:"name"`
}

// MastodonClient is the HTTP implementation of Client for any
// Mastodon-compatible instance. It rate-limits outbound calls and
// retries HTTP 429 with exponential backoff, honoring Retry-After.
//
// Safe for concurrent use.
type MastodonClient struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	maxRetries     int
	retryBaseDelay time.Duration

	mu        sync.Mutex
	accountID string // resolved lazily via verify_credentials
}

var _ Client = (*MastodonClient)(nil)

// NewMastodonClient creates a client for the configured instance.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMastodonClient(cfg Config, logger zerolog.Logger) *MastodonClient {
	return &MastodonClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:         logger.With().Str("component", "source").Logger(),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// get performs a rate-limited GET with 429 backoff and decodes the JSON
// body into result. The response Link header is returned for paging.
func (c *MastodonClient) get(ctx context.Context, path string, params url.Values, result any) (http.Header, error) {
	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request for %s: %w", path, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", path, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			header := resp.Header
			err := json.NewDecoder(resp.Body).Decode(result)
			_ = resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode %s response: %w", path, err)
			}
			metrics.SourceRequests.WithLabelValues("success").Inc()
			return header, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			_ = resp.Body.Close()
			metrics.SourceRequests.WithLabelValues("auth_error").Inc()
			return nil, fmt.Errorf("%s returned %d: %w", path, resp.StatusCode, ErrUnauthorized)

		case resp.StatusCode == http.StatusTooManyRequests:
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			if attempt == c.maxRetries {
				metrics.SourceRequests.WithLabelValues("rate_limited").Inc()
				return nil, fmt.Errorf("%s after %d retries: %w", path, c.maxRetries, ErrRateLimited)
			}
			c.logger.Warn().Str("path", path).Dur("delay", delay).Msg("rate limited, backing off")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			metrics.SourceRequests.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}

	return nil, ErrRateLimited
}

// VerifyCredentials confirms the token and returns the account handle.
func (c *MastodonClient) VerifyCredentials(ctx context.Context) (string, error) {
	var acct apiAccount
	if _, err := c.get(ctx, "/api/v1/accounts/verify_credentials", nil, &acct); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.accountID = acct.ID
	c.mu.Unlock()
	return acct.Acct, nil
}

func (c *MastodonClient) resolveAccountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.accountID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if _, err := c.VerifyCredentials(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountID, nil
}

// HomeTimeline fetches a page of the home timeline.
func (c *MastodonClient) HomeTimeline(ctx context.Context, maxID string, limit int) (Page, error) {
	return c.statusPage(ctx, "/api/v1/timelines/home", feed.SourceHomeTimeline, maxID, limit)
}

// TagTimeline fetches a page of a hashtag's timeline.
func (c *MastodonClient) TagTimeline(ctx context.Context, tag, maxID string, limit int) (Page, error) {
	return c.statusPage(ctx, "/api/v1/timelines/tag/"+url.PathEscape(tag), feed.SourceHashtag, maxID, limit)
}

func (c *MastodonClient) statusPage(ctx context.Context, path string, src feed.SourceID, maxID string, limit int) (Page, error) {
	params := url.Values{}
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	if limit <= 0 {
		limit = c.cfg.PageSize
	}
	params.Set("limit", strconv.Itoa(limit))

	var statuses []apiStatus
	header, err := c.get(ctx, path, params, &statuses)
	if err != nil {
		return Page{}, err
	}

	items := make([]*feed.Item, 0, len(statuses))
	for i := range statuses {
		items = append(items, statusToItem(&statuses[i], src))
	}
	return Page{Items: items, NextMaxID: nextMaxID(header, statuses)}, nil
}

// Notifications fetches statuses from mention/favourite/reblog
// notifications. Notifications without an attached status are skipped.
func (c *MastodonClient) Notifications(ctx context.Context, maxID string, limit int) (Page, error) {
	params := url.Values{}
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	if limit <= 0 {
		limit = c.cfg.PageSize
	}
	params.Set("limit", strconv.Itoa(limit))

	var notifs []apiNotification
	header, err := c.get(ctx, "/api/v1/notifications", params, &notifs)
	if err != nil {
		return Page{}, err
	}

	var items []*feed.Item
	for i := range notifs {
		if notifs[i].Status == nil {
			continue
		}
		items = append(items, statusToItem(notifs[i].Status, feed.SourceUserHistory))
	}
	return Page{Items: items, NextMaxID: parseLinkNext(header.Get("Link"))}, nil
}

// TrendingStatuses fetches the instance's trending statuses.
func (c *MastodonClient) TrendingStatuses(ctx context.Context, offset int) ([]*feed.Item, error) {
	params := url.Values{}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var statuses []apiStatus
	if _, err := c.get(ctx, "/api/v1/trends/statuses", params, &statuses); err != nil {
		return nil, err
	}

	items := make([]*feed.Item, 0, len(statuses))
	for i := range statuses {
		items = append(items, statusToItem(&statuses[i], feed.SourceTrending))
	}
	return items, nil
}

// TrendingTags fetches the instance's trending hashtags.
func (c *MastodonClient) TrendingTags(ctx context.Context) ([]TrendingTag, error) {
	var raw []struct {
		Name    string `json:"name"`
		History []struct {
			Uses string `json:"uses"`
		} `json:"history"`
	}
	if _, err := c.get(ctx, "/api/v1/trends/tags", nil, &raw); err != nil {
		return nil, err
	}

	tags := make([]TrendingTag, 0, len(raw))
	for _, t := range raw {
		uses := 0
		if len(t.History) > 0 {
			uses, _ = strconv.Atoi(t.History[0].Uses)
		}
		tags = append(tags, TrendingTag{Name: strings.ToLower(t.Name), Uses: uses})
	}
	return tags, nil
}

// TrendingLinks fetches the instance's trending links.
func (c *MastodonClient) TrendingLinks(ctx context.Context) ([]TrendingLink, error) {
	var raw []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if _, err := c.get(ctx, "/api/v1/trends/links", nil, &raw); err != nil {
		return nil, err
	}

	links := make([]TrendingLink, 0, len(raw))
	for _, l := range raw {
		links = append(links, TrendingLink{URL: l.URL, Title: l.Title})
	}
	return links, nil
}

// FollowedAccounts returns the acct handles the user follows, paging
// through the full following list.
func (c *MastodonClient) FollowedAccounts(ctx context.Context) (map[string]struct{}, error) {
	id, err := c.resolveAccountID(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make(map[string]struct{})
	maxID := ""
	for {
		params := url.Values{"limit": []string{"80"}}
		if maxID != "" {
			params.Set("max_id", maxID)
		}

		var page []apiAccount
		header, err := c.get(ctx, "/api/v1/accounts/"+id+"/following", params, &page)
		if err != nil {
			return nil, err
		}
		for _, a := range page {
			accounts[a.Acct] = struct{}{}
		}

		maxID = parseLinkNext(header.Get("Link"))
		if maxID == "" || len(page) == 0 {
			return accounts, nil
		}
	}
}

// FollowedTags returns the lowercased hashtags the user follows.
func (c *MastodonClient) FollowedTags(ctx context.Context) (map[string]struct{}, error) {
	tags := make(map[string]struct{})
	maxID := ""
	for {
		params := url.Values{"limit": []string{"100"}}
		if maxID != "" {
			params.Set("max_id", maxID)
		}

		var page []apiFollowedTag
		header, err := c.get(ctx, "/api/v1/followed_tags", params, &page)
		if err != nil {
			return nil, err
		}
		for _, t := range page {
			tags[strings.ToLower(t.Name)] = struct{}{}
		}

		maxID = parseLinkNext(header.Get("Link"))
		if maxID == "" || len(page) == 0 {
			return tags, nil
		}
	}
}

// statusToItem translates an API status into a feed item. A boost keeps
// its own URI and ID but carries the original's content, author, and
// counters, with the canonical link recorded in ReblogOfURI.
func statusToItem(s *apiStatus, src feed.SourceID) *feed.Item {
	body := s
	item := &feed.Item{
		URI:       s.URI,
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
	}
	if s.Reblog != nil {
		body = s.Reblog
		item.ReblogOfURI = s.Reblog.URI
		item.RebloggedBy = []string{s.Account.Acct}
	}

	if body.EditedAt != nil {
		item.EditedAt = *body.EditedAt
	}
	item.Author = feed.Account{
		ID:             body.Account.ID,
		Acct:           body.Account.Acct,
		DisplayName:    body.Account.DisplayName,
		FollowersCount: body.Account.FollowersCount,
	}
	item.Content = body.Content
	for _, t := range body.Tags {
		item.Tags = append(item.Tags, strings.ToLower(t.Name))
	}
	for _, m := range body.Mentions {
		item.Mentions = append(item.Mentions, m.Acct)
	}
	item.AttachmentCount = len(body.MediaAttachments)
	item.FavouritesCount = body.FavouritesCount
	item.RepliesCount = body.RepliesCount
	item.ReblogsCount = body.ReblogsCount
	item.Favourited = body.Favourited
	item.Bookmarked = body.Bookmarked
	item.Muted = body.Muted
	item.AddSource(src)

	return item
}

// nextMaxID derives the next paging cursor: the Link header's rel="next"
// max_id when present, else the last status ID on the page.
func nextMaxID(header http.Header, statuses []apiStatus) string {
	if next := parseLinkNext(header.Get("Link")); next != "" {
		return next
	}
	if len(statuses) > 0 {
		return statuses[len(statuses)-1].ID
	}
	return ""
}

// parseLinkNext extracts the max_id parameter from a Link header's
// rel="next" entry, returning "" when there is no next page.
func parseLinkNext(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			return ""
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			return ""
		}
		return u.Query().Get("max_id")
	}
	return ""
}
