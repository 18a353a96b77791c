// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package config loads and validates the Fediranker configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rcalloway/fediranker/internal/api"
	"github.com/rcalloway/fediranker/internal/coordinator"
	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/logging"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/scoring/scorers"
	"github.com/rcalloway/fediranker/internal/source"
	"github.com/rcalloway/fediranker/internal/supervisor"
	"github.com/rcalloway/fediranker/internal/timeline"
)

// Config is the root configuration for the whole process.
type Config struct {
	Source  SourceConfig          `koanf:"source"`
	Server  api.Config            `koanf:"server"`
	Store   StoreConfig           `koanf:"store"`
	Feed    FeedConfig            `koanf:"feed"`
	Tree    supervisor.TreeConfig `koanf:"supervisor"`
	Logging LoggingConfig         `koanf:"logging"`
}

// SourceConfig configures the Mastodon API client. It mirrors
// source.Config but keeps secrets out of that package's defaults.
type SourceConfig struct {
	// BaseURL is the instance root, e.g. "https://example.social".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// AccessToken is the OAuth bearer token for the session user.
	AccessToken string `koanf:"access_token" validate:"required"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// PageSize is the statuses-per-page for timeline fetches.
	PageSize int `koanf:"page_size" validate:"min=1,max=80"`

	// RequestsPerSecond throttles outbound API calls.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`

	// Burst is the rate limiter's burst allowance.
	Burst int `koanf:"burst" validate:"min=1"`
}

// Client converts to the source package's config type.
func (c SourceConfig) Client() source.Config {
	return source.Config{
		BaseURL:           c.BaseURL,
		AccessToken:       c.AccessToken,
		Timeout:           c.Timeout,
		PageSize:          c.PageSize,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// StoreConfig configures badger persistence.
type StoreConfig struct {
	// Path is the badger database directory. Empty runs in-memory,
	// which loses all state on restart.
	Path string `koanf:"path"`
}

// FeedConfig groups the pipeline, scheduling, and scoring settings.
type FeedConfig struct {
	Pipeline  coordinator.Config        `koanf:"pipeline"`
	Services  coordinator.ServiceConfig `koanf:"services"`
	Scoring   ScoringConfig             `koanf:"scoring"`
	Staleness StalenessConfig           `koanf:"staleness"`
	Diversity DiversityConfig           `koanf:"diversity"`
}

// ScoringConfig configures the scoring engine's fixed parameters.
// User-tunable weights live in the store, not here.
type ScoringConfig struct {
	// TimeDecayExponent is the exponent applied to item age inside the
	// decay formula.
	TimeDecayExponent float64 `koanf:"time_decay_exponent" validate:"gt=0"`

	// BatchSize bounds how many items are scored between yield points.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// BatchYield is the pause between scoring batches.
	BatchYield time.Duration `koanf:"batch_yield" validate:"min=0"`
}

// Engine converts to the scoring package's config type.
func (c ScoringConfig) Engine() scoring.Config {
	return scoring.Config{
		TimeDecayExponent: c.TimeDecayExponent,
		BatchSize:         c.BatchSize,
		BatchYield:        c.BatchYield,
	}
}

// StalenessConfig sets per-source freshness windows in minutes.
type StalenessConfig struct {
	// DefaultMinutes applies to any source without an override.
	DefaultMinutes int `koanf:"default_minutes" validate:"min=1"`

	// TrendingMinutes overrides the window for trending statuses,
	// tags, and links.
	TrendingMinutes int `koanf:"trending_minutes" validate:"min=1"`

	// UserHistoryMinutes overrides the window for the user's own
	// interaction history.
	UserHistoryMinutes int `koanf:"user_history_minutes" validate:"min=1"`
}

// Tracker converts to the timeline package's config type.
func (c StalenessConfig) Tracker() timeline.StalenessConfig {
	return timeline.StalenessConfig{
		DefaultMinutes: c.DefaultMinutes,
		Overrides: map[feed.SourceID]int{
			feed.SourceTrending:    c.TrendingMinutes,
			feed.SourceUserHistory: c.UserHistoryMinutes,
		},
	}
}

// DiversityConfig configures the feed-level diversity scorer.
type DiversityConfig struct {
	// MinTagHits is how many occurrences of a trending tag are
	// penalized before further penalties for that tag stop.
	MinTagHits int `koanf:"min_tag_hits" validate:"min=1"`

	// ReblogMultiplier is the extra penalty factor for boosted items.
	ReblogMultiplier float64 `koanf:"reblog_multiplier" validate:"gt=0"`
}

// Scorer converts to the scorers package's config type.
func (c DiversityConfig) Scorer() scorers.DiversityConfig {
	return scorers.DiversityConfig{
		MinTagHits:       c.MinTagHits,
		ReblogMultiplier: c.ReblogMultiplier,
	}
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line in each event.
	Caller bool `koanf:"caller"`
}

// Logging converts to the logging package's config type.
func (c LoggingConfig) Logging() logging.Config {
	return logging.Config{
		Level:  c.Level,
		Format: c.Format,
		Caller: c.Caller,
	}
}

// Validate checks the whole configuration tree against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config field %s failed rule %q", first.Namespace(), first.Tag())
		}
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
