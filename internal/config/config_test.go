// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcalloway/fediranker/internal/feed"
)

// setCredentials satisfies the required source fields so Load can get
// past validation.
func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("MASTODON_BASE_URL", "https://example.social")
	t.Setenv("MASTODON_ACCESS_TOKEN", "test-token")
}

func TestLoad_RequiresCredentials(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without instance credentials")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default server addr = %q", cfg.Server.Addr)
	}
	if cfg.Source.PageSize != 40 {
		t.Errorf("default page size = %d", cfg.Source.PageSize)
	}
	if cfg.Feed.Pipeline.MaxFeedLength != 3000 {
		t.Errorf("default max feed length = %d", cfg.Feed.Pipeline.MaxFeedLength)
	}
	if cfg.Feed.Services.RefreshInterval != 10*time.Minute {
		t.Errorf("default refresh interval = %v", cfg.Feed.Services.RefreshInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("FEED_MAX_LENGTH", "500")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFRESH_INTERVAL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9999" {
		t.Errorf("server addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Feed.Pipeline.MaxFeedLength != 500 {
		t.Errorf("max feed length = %d, want 500", cfg.Feed.Pipeline.MaxFeedLength)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Feed.Services.RefreshInterval != 5*time.Minute {
		t.Errorf("refresh interval = %v, want 5m", cfg.Feed.Services.RefreshInterval)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
source:
  base_url: https://file.example
  access_token: file-token
  page_size: 20
server:
  addr: ":7070"
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.BaseURL != "https://file.example" {
		t.Errorf("base url = %q", cfg.Source.BaseURL)
	}
	if cfg.Source.PageSize != 20 {
		t.Errorf("page size = %d, want 20", cfg.Source.PageSize)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("log format = %q", cfg.Logging.Format)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
source:
  base_url: https://file.example
  access_token: file-token
server:
  addr: ":7070"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_ADDR", ":6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":6060" {
		t.Errorf("server addr = %q, env must beat file", cfg.Server.Addr)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Source.BaseURL = "" }},
		{"non-url base url", func(c *Config) { c.Source.BaseURL = "not a url" }},
		{"missing token", func(c *Config) { c.Source.AccessToken = "" }},
		{"page size over cap", func(c *Config) { c.Source.PageSize = 200 }},
		{"zero decay exponent", func(c *Config) { c.Feed.Scoring.TimeDecayExponent = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Source.BaseURL = "https://example.social"
			cfg.Source.AccessToken = "token"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate must reject this configuration")
			}
		})
	}
}

func TestStalenessConfig_Tracker(t *testing.T) {
	c := StalenessConfig{DefaultMinutes: 5, TrendingMinutes: 30, UserHistoryMinutes: 600}
	got := c.Tracker()

	if got.DefaultMinutes != 5 {
		t.Errorf("default minutes = %d", got.DefaultMinutes)
	}
	if got.Overrides[feed.SourceTrending] != 30 {
		t.Errorf("trending override = %d", got.Overrides[feed.SourceTrending])
	}
	if got.Overrides[feed.SourceUserHistory] != 600 {
		t.Errorf("user history override = %d", got.Overrides[feed.SourceUserHistory])
	}
}

func TestScoringConfig_Engine(t *testing.T) {
	c := ScoringConfig{TimeDecayExponent: 1.5, BatchSize: 100, BatchYield: time.Millisecond}
	got := c.Engine()
	if got.TimeDecayExponent != 1.5 || got.BatchSize != 100 || got.BatchYield != time.Millisecond {
		t.Errorf("engine config = %+v", got)
	}
}
