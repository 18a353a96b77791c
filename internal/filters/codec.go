// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package filters

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Filters persist as argument lists rather than struct dumps, so the
// stored schema stays decoupled from the in-memory representation.
// These encode/decode functions are the single source of truth for it.

// BooleanArgs is the persisted form of one boolean filter.
type BooleanArgs struct {
	Property string   `json:"property"`
	Selected []string `json:"selected,omitempty"`
	Invert   bool     `json:"invert,omitempty"`
}

// NumericArgs is the persisted form of one numeric filter.
type NumericArgs struct {
	Property  string `json:"property"`
	Threshold int    `json:"threshold"`
	Invert    bool   `json:"invert,omitempty"`
}

// Args is the persisted form of a full filter settings collection.
type Args struct {
	Boolean []BooleanArgs `json:"boolean"`
	Numeric []NumericArgs `json:"numeric"`
}

// Encode converts settings to their persisted argument-list form.
func (s *Settings) Encode() Args {
	args := Args{}
	for _, f := range s.Boolean {
		selected := f.Options()
		sort.Strings(selected)
		args.Boolean = append(args.Boolean, BooleanArgs{
			Property: f.Property,
			Selected: selected,
			Invert:   f.Invert,
		})
	}
	for _, f := range s.Numeric {
		args.Numeric = append(args.Numeric, NumericArgs{
			Property:  f.Property,
			Threshold: f.Threshold,
			Invert:    f.Invert,
		})
	}
	return args
}

// Decode reconstructs settings from the persisted form. Filters for
// unrecognized properties are dropped with a warning; filters missing
// from the stored args are synthesized with neutral defaults, so the
// invariant of exactly one filter per recognized property always holds.
func Decode(args Args, logger zerolog.Logger) *Settings {
	s := NewSettings(logger)

	for _, a := range args.Boolean {
		f := s.BooleanFilter(a.Property)
		if f == nil {
			logger.Warn().Str("property", a.Property).Msg("dropping stored filter for unrecognized property")
			continue
		}
		f.Selected = make(map[string]struct{}, len(a.Selected))
		for _, v := range a.Selected {
			f.Selected[v] = struct{}{}
		}
		f.Invert = a.Invert
	}

	for _, a := range args.Numeric {
		f := s.NumericFilter(a.Property)
		if f == nil {
			logger.Warn().Str("property", a.Property).Msg("dropping stored filter for unrecognized property")
			continue
		}
		f.Threshold = a.Threshold
		f.Invert = a.Invert
	}

	return s
}

// Validate checks decoded args before they are applied, e.g. from the
// HTTP API. Unknown properties are an error here (unlike on load, where
// they are tolerated) because the caller is asking for them explicitly.
func (a Args) Validate() error {
	for _, b := range a.Boolean {
		if !contains(BooleanProperties, b.Property) {
			return fmt.Errorf("unrecognized boolean filter property %q", b.Property)
		}
	}
	for _, n := range a.Numeric {
		if !contains(NumericProperties, n.Property) {
			return fmt.Errorf("unrecognized numeric filter property %q", n.Property)
		}
		if n.Threshold < 0 {
			return fmt.Errorf("numeric filter %q: threshold must be >= 0", n.Property)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
