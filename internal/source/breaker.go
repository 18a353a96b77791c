// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/metrics"
)

// BreakerClient wraps a Client with a circuit breaker so a down or
// misbehaving instance stops consuming the rate budget. Auth failures
// do not count toward tripping the breaker: they are a credential
// problem, not an availability one, and must always surface.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[any]
}

var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps inner with a circuit breaker. The breaker
// opens after a 60% failure rate over at least 10 requests, and probes
// recovery after 2 minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerClient(inner Client, logger zerolog.Logger) *BreakerClient {
	log := logger.With().Str("component", "source-breaker").Logger()

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "instance-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Rejected tokens are not instance failures.
			return err == nil || errors.Is(err, ErrUnauthorized)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.SourceBreakerState.Set(breakerStateValue(to))
		},
	})

	return &BreakerClient{inner: inner, cb: cb}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// castResult type-casts a breaker result, surfacing the breaker's own
// rejection errors unchanged.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerClient) VerifyCredentials(ctx context.Context) (string, error) {
	return castResult[string](b.execute(func() (any, error) {
		return b.inner.VerifyCredentials(ctx)
	}))
}

func (b *BreakerClient) HomeTimeline(ctx context.Context, maxID string, limit int) (Page, error) {
	return castResult[Page](b.execute(func() (any, error) {
		return b.inner.HomeTimeline(ctx, maxID, limit)
	}))
}

func (b *BreakerClient) TagTimeline(ctx context.Context, tag, maxID string, limit int) (Page, error) {
	return castResult[Page](b.execute(func() (any, error) {
		return b.inner.TagTimeline(ctx, tag, maxID, limit)
	}))
}

func (b *BreakerClient) Notifications(ctx context.Context, maxID string, limit int) (Page, error) {
	return castResult[Page](b.execute(func() (any, error) {
		return b.inner.Notifications(ctx, maxID, limit)
	}))
}

func (b *BreakerClient) TrendingStatuses(ctx context.Context, offset int) ([]*feed.Item, error) {
	return castResult[[]*feed.Item](b.execute(func() (any, error) {
		return b.inner.TrendingStatuses(ctx, offset)
	}))
}

func (b *BreakerClient) TrendingTags(ctx context.Context) ([]TrendingTag, error) {
	return castResult[[]TrendingTag](b.execute(func() (any, error) {
		return b.inner.TrendingTags(ctx)
	}))
}

func (b *BreakerClient) TrendingLinks(ctx context.Context) ([]TrendingLink, error) {
	return castResult[[]TrendingLink](b.execute(func() (any, error) {
		return b.inner.TrendingLinks(ctx)
	}))
}

func (b *BreakerClient) FollowedAccounts(ctx context.Context) (map[string]struct{}, error) {
	return castResult[map[string]struct{}](b.execute(func() (any, error) {
		return b.inner.FollowedAccounts(ctx)
	}))
}

func (b *BreakerClient) FollowedTags(ctx context.Context) (map[string]struct{}, error) {
	return castResult[map[string]struct{}](b.execute(func() (any, error) {
		return b.inner.FollowedTags(ctx)
	}))
}
