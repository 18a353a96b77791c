// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestSlogAdapter_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := slog.New(NewSlogHandler())
	slogger.Info("service started", "name", "refresh", "restarts", int64(2))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["message"] != "service started" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["name"] != "refresh" {
		t.Errorf("name attr = %v", entry["name"])
	}
	if entry["restarts"] != float64(2) {
		t.Errorf("restarts attr = %v", entry["restarts"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := slog.New(NewSlogHandler())
	slogger.Debug("too quiet")
	slogger.Warn("loud enough")

	out := buf.String()
	if strings.Contains(out, "too quiet") {
		t.Error("debug record must be filtered at warn level")
	}
	if !strings.Contains(out, "loud enough") {
		t.Error("warn record must pass at warn level")
	}
}

func TestSlogAdapter_GroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := slog.New(NewSlogHandler()).WithGroup("supervisor")
	slogger.Info("restarting", "service", "persist")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["supervisor.service"] != "persist" {
		t.Errorf("grouped key missing, entry = %v", entry)
	}
}
