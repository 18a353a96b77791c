// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rcalloway/fediranker/internal/api"
	"github.com/rcalloway/fediranker/internal/coordinator"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/scoring/scorers"
	"github.com/rcalloway/fediranker/internal/supervisor"
	"github.com/rcalloway/fediranker/internal/timeline"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fediranker/config.yaml",
	"/etc/fediranker/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "FEDIRANKER_CONFIG"

// defaultConfig returns a Config with every default filled in. Defaults
// are applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	engineDefaults := scoring.DefaultConfig()
	stalenessDefaults := timeline.DefaultStalenessConfig()
	diversityDefaults := scorers.DefaultDiversityConfig()
	sourceDefaults := DefaultSourceConfig()

	return &Config{
		Source: sourceDefaults,
		Server: api.DefaultConfig(),
		Store: StoreConfig{
			Path: "/data/fediranker",
		},
		Feed: FeedConfig{
			Pipeline: coordinator.DefaultConfig(),
			Services: coordinator.DefaultServiceConfig(),
			Scoring: ScoringConfig{
				TimeDecayExponent: engineDefaults.TimeDecayExponent,
				BatchSize:         engineDefaults.BatchSize,
				BatchYield:        engineDefaults.BatchYield,
			},
			Staleness: StalenessConfig{
				DefaultMinutes:     stalenessDefaults.DefaultMinutes,
				TrendingMinutes:    60,
				UserHistoryMinutes: 720,
			},
			Diversity: DiversityConfig{
				MinTagHits:       diversityDefaults.MinTagHits,
				ReblogMultiplier: diversityDefaults.ReblogMultiplier,
			},
		},
		Tree: supervisor.DefaultTreeConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// DefaultSourceConfig returns conservative client defaults. Mastodon
// caps timeline pages at 40 statuses and budgets 300 requests per 5
// minutes; the limiter stays well under that.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Timeout:           30 * time.Second,
		PageSize:          40,
		RequestsPerSecond: 1,
		Burst:             5,
	}
}

// Load reads configuration using Koanf v2 with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config
// paths. Unmapped variables are skipped so random environment noise
// cannot pollute the configuration.
//
// Examples:
//   - MASTODON_BASE_URL -> source.base_url
//   - MASTODON_ACCESS_TOKEN -> source.access_token
//   - HTTP_ADDR -> server.addr
//   - BADGER_PATH -> store.path
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Mastodon instance mappings
		"mastodon_base_url":     "source.base_url",
		"mastodon_access_token": "source.access_token",
		"mastodon_timeout":      "source.timeout",
		"mastodon_page_size":    "source.page_size",
		"mastodon_rps":          "source.requests_per_second",
		"mastodon_burst":        "source.burst",

		// Server mappings
		"http_addr":           "server.addr",
		"http_read_timeout":   "server.read_timeout",
		"http_write_timeout":  "server.write_timeout",
		"http_shutdown_grace": "server.shutdown_grace",

		// Store mappings
		"badger_path": "store.path",

		// Pipeline mappings
		"feed_max_length":        "feed.pipeline.max_feed_length",
		"feed_backfill_pages":    "feed.pipeline.backfill_pages",
		"feed_max_backfill_tags": "feed.pipeline.max_backfill_tags",

		// Service cadence mappings
		"refresh_interval":   "feed.services.refresh_interval",
		"persist_interval":   "feed.services.persist_interval",
		"user_data_interval": "feed.services.user_data_interval",

		// Scoring mappings
		"scoring_time_decay_exponent": "feed.scoring.time_decay_exponent",
		"scoring_batch_size":          "feed.scoring.batch_size",
		"scoring_batch_yield":         "feed.scoring.batch_yield",

		// Staleness mappings
		"staleness_default_minutes":      "feed.staleness.default_minutes",
		"staleness_trending_minutes":     "feed.staleness.trending_minutes",
		"staleness_user_history_minutes": "feed.staleness.user_history_minutes",

		// Diversity mappings
		"diversity_min_tag_hits":      "feed.diversity.min_tag_hits",
		"diversity_reblog_multiplier": "feed.diversity.reblog_multiplier",

		// Supervisor mappings
		"supervisor_failure_threshold": "supervisor.failure_threshold",
		"supervisor_failure_decay":     "supervisor.failure_decay",
		"supervisor_failure_backoff":   "supervisor.failure_backoff",
		"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
