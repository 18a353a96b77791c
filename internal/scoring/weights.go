// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package scoring

import (
	"fmt"
	"math"
)

// Non-score weight names. These tune the aggregation itself rather than
// any single scorer and must always be present.
const (
	WeightTimeDecay          = "time_decay"
	WeightOutlierDampener    = "outlier_dampener"
	WeightTrendingMultiplier = "trending_multiplier"
)

// Weights maps scorer names to user weights, plus the three non-score
// weights that shape aggregation.
type Weights struct {
	// Scorers maps scorer name to its user weight. Negative weights are
	// allowed (e.g. to penalize already-shown items or diversity).
	Scorers map[string]float64 `json:"scorers"`

	// TimeDecay controls how fast scores decay with item age. 0 disables
	// decay entirely.
	TimeDecay float64 `json:"time_decay"`

	// OutlierDampener compresses outliers: each weighted sub-score is
	// raised to the power 1/dampener (sign preserved). 1 is a no-op,
	// 2 takes the square root, 3 the cube root. Must be > 0.
	OutlierDampener float64 `json:"outlier_dampener"`

	// TrendingMultiplier is an extra factor applied to scorers in the
	// trending category.
	TrendingMultiplier float64 `json:"trending_multiplier"`
}

// DefaultWeights returns weights of 1.0 for every named scorer and
// neutral non-score weights.
func DefaultWeights(scorerNames []string) Weights {
	w := Weights{
		Scorers:            make(map[string]float64, len(scorerNames)),
		TimeDecay:          3.0,
		OutlierDampener:    1.0,
		TrendingMultiplier: 1.0,
	}
	for _, name := range scorerNames {
		w.Scorers[name] = 1.0
	}
	return w
}

// Validate checks that every weight is finite and that the non-score
// weights satisfy their constraints: dampener > 0, time decay >= 0.
func (w Weights) Validate() error {
	for name, v := range w.Scorers {
		if !isFinite(v) {
			return fmt.Errorf("scorer weight %q: must be finite, got %v", name, v)
		}
	}
	if !isFinite(w.TimeDecay) || w.TimeDecay < 0 {
		return fmt.Errorf("time decay weight must be finite and >= 0, got %v", w.TimeDecay)
	}
	if !isFinite(w.OutlierDampener) || w.OutlierDampener <= 0 {
		return fmt.Errorf("outlier dampener must be finite and > 0, got %v", w.OutlierDampener)
	}
	if !isFinite(w.TrendingMultiplier) {
		return fmt.Errorf("trending multiplier must be finite, got %v", w.TrendingMultiplier)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without racing the engine.
func (w Weights) Clone() Weights {
	c := w
	c.Scorers = make(map[string]float64, len(w.Scorers))
	for k, v := range w.Scorers {
		c.Scorers[k] = v
	}
	return c
}

// FillMissing adds a weight of 1.0 for any named scorer absent from the
// map, so newly registered scorers get a sane default after loading
// weights persisted by an older version.
func (w *Weights) FillMissing(scorerNames []string) {
	if w.Scorers == nil {
		w.Scorers = make(map[string]float64, len(scorerNames))
	}
	for _, name := range scorerNames {
		if _, ok := w.Scorers[name]; !ok {
			w.Scorers[name] = 1.0
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
