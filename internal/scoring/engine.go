// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/feed"
)

// Config holds the scoring engine's fixed configuration constants.
type Config struct {
	// TimeDecayExponent is the exponent applied to item age (in hours)
	// inside the decay formula. Fixed at configuration time, not a user
	// weight.
	TimeDecayExponent float64

	// BatchSize bounds how many items are scored between yield points.
	BatchSize int

	// BatchYield is the pause between batches so a long scoring pass
	// does not starve other scheduled work.
	BatchYield time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TimeDecayExponent: 1.2,
		BatchSize:         150,
		BatchYield:        10 * time.Millisecond,
	}
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	if c.TimeDecayExponent <= 0 {
		return fmt.Errorf("time decay exponent must be > 0, got %v", c.TimeDecayExponent)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, got %d", c.BatchSize)
	}
	return nil
}

// Engine aggregates raw scores from a registry of scorers into one
// weighted score per item. It is safe for concurrent use.
type Engine struct {
	config Config
	logger zerolog.Logger

	scorersMu sync.RWMutex
	scorers   []Scorer

	weightsMu sync.RWMutex
	weights   Weights
}

// NewEngine creates a scoring engine with the given configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		config:  cfg,
		logger:  logger.With().Str("component", "scoring").Logger(),
		weights: DefaultWeights(nil),
	}, nil
}

// Register adds a scorer to the registry and gives it a default weight
// if none is set yet. Registration order is preserved.
func (e *Engine) Register(s Scorer) {
	e.scorersMu.Lock()
	e.scorers = append(e.scorers, s)
	e.scorersMu.Unlock()

	e.weightsMu.Lock()
	if _, ok := e.weights.Scorers[s.Name()]; !ok {
		if e.weights.Scorers == nil {
			e.weights.Scorers = make(map[string]float64)
		}
		e.weights.Scorers[s.Name()] = 1.0
	}
	e.weightsMu.Unlock()

	e.logger.Info().
		Str("scorer", s.Name()).
		Bool("trending", s.Trending()).
		Msg("registered scorer")
}

// ScorerNames returns the registered scorer names in registration order.
func (e *Engine) ScorerNames() []string {
	e.scorersMu.RLock()
	defer e.scorersMu.RUnlock()
	names := make([]string, len(e.scorers))
	for i, s := range e.scorers {
		names[i] = s.Name()
	}
	return names
}

// Weights returns a copy of the current weights.
func (e *Engine) Weights() Weights {
	e.weightsMu.RLock()
	defer e.weightsMu.RUnlock()
	return e.weights.Clone()
}

// SetWeights validates and installs new weights. The caller is expected
// to trigger a re-score afterwards; scoring is idempotent so the new
// weights simply apply on the next pass.
func (e *Engine) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	w.FillMissing(e.ScorerNames())
	e.weightsMu.Lock()
	e.weights = w.Clone()
	e.weightsMu.Unlock()
	e.logger.Debug().Msg("weights updated")
	return nil
}

// getScorers returns a snapshot of the registry.
func (e *Engine) getScorers() []Scorer {
	e.scorersMu.RLock()
	defer e.scorersMu.RUnlock()
	return e.scorers
}

// ScoreFeed recomputes the score of every item in the feed. Items are
// mutated in place (Score and ScoreDetail).
//
// The pass is cooperative: it processes bounded batches with a small
// inter-batch yield and stops at the next batch boundary when ctx is
// cancelled. A cancelled pass returns ctx.Err(); partial work is simply
// discarded by the next pass since scoring is idempotent.
func (e *Engine) ScoreFeed(ctx context.Context, items []*feed.Item, now time.Time) error {
	scorers := e.getScorers()
	weights := e.Weights()

	// Prepare background data once per pass. A scorer whose prepare
	// fails is simply not ready; scoring falls back per item.
	for _, s := range scorers {
		if err := s.Prepare(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn().Str("scorer", s.Name()).Err(err).Msg("scorer prepare failed")
		}
	}

	// Feed scorers extract their score table from the whole feed first.
	for _, s := range scorers {
		if fs, ok := s.(FeedScorer); ok {
			fs.PrepareFeed(items)
		}
	}

	for start := 0; start < len(items); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			// Cancellation is expected under lock contention and is
			// silent at trace level only.
			e.logger.Trace().Int("scored", start).Msg("scoring pass cancelled")
			return err
		}

		end := start + e.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		for _, item := range items[start:end] {
			e.scoreItem(item, scorers, weights, now)
		}

		if end < len(items) && e.config.BatchYield > 0 {
			select {
			case <-ctx.Done():
				e.logger.Trace().Int("scored", end).Msg("scoring pass cancelled")
				return ctx.Err()
			case <-time.After(e.config.BatchYield):
			}
		}
	}

	return nil
}

// scoreItem computes one item's weighted score:
//
//  1. weighted = raw * weight, times the trending multiplier for
//     trending-category scorers
//  2. outlier dampening: sign(x) * |x|^(1/dampener)
//  3. sum + 1 (the +1 keeps a zero total from collapsing the decay
//     multiplier into the final score)
//  4. decay = (timeDecay/10 + 1) ^ (-age^exponent)
//  5. score = total * decay
func (e *Engine) scoreItem(item *feed.Item, scorers []Scorer, weights Weights, now time.Time) {
	detail := make(map[string]feed.ScoreBreakdown, len(scorers))
	total := 0.0

	for _, s := range scorers {
		weight := weights.Scorers[s.Name()]
		raw := e.rawScore(s, item)

		weighted := raw * weight
		if s.Trending() {
			weighted *= weights.TrendingMultiplier
		}
		weighted = dampen(weighted, weights.OutlierDampener)

		detail[s.Name()] = feed.ScoreBreakdown{Raw: raw, Weighted: weighted, Weight: weight}
		total += weighted
	}

	total++

	decay := timeDecay(weights.TimeDecay, item.AgeHours(now), e.config.TimeDecayExponent)
	item.Score = total * decay
	item.ScoreDetail = detail
}

// rawScore obtains a scorer's raw score for an item, never blocking:
// a scorer that is not ready falls back to the item's previously stored
// contribution (zero if none), and a data error scores zero so one bad
// item cannot stop the rest of the feed.
func (e *Engine) rawScore(s Scorer, item *feed.Item) float64 {
	if !s.Ready() {
		if prev, ok := item.ScoreDetail[s.Name()]; ok {
			return prev.Raw
		}
		return 0
	}

	raw, err := s.Score(item)
	if err != nil {
		e.logger.Warn().
			Str("scorer", s.Name()).
			Str("uri", item.URI).
			Err(err).
			Msg("scoring failed for item, defaulting to 0")
		return 0
	}
	return raw
}

// dampen applies the outlier dampener: |x|^(1/d) with the sign of x
// preserved. d == 1 is a no-op.
func dampen(x, d float64) float64 {
	if d == 1 || x == 0 {
		return x
	}
	damped := math.Pow(math.Abs(x), 1/d)
	if x < 0 {
		return -damped
	}
	return damped
}

// timeDecay computes (w/10 + 1)^(-age^exponent). A weight of 0 yields
// exactly 1 regardless of age, since 1 raised to anything is 1.
func timeDecay(weight, ageHours, exponent float64) float64 {
	base := weight/10 + 1
	return math.Pow(base, -math.Pow(ageHours, exponent))
}
