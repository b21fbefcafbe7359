// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package suggest wraps an external generative model as an optional
// candidate source. The engine treats the whole capability as
// best-effort: any error, timeout, malformed response or under-count
// leaves the caller on the local selector path, never on an error
// screen. Absence of configuration is a normal state, reported through
// Available, not an error.
package suggest

import (
	"context"
	"errors"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/recommend"
)

// ErrUnavailable is returned by every call on an unconfigured suggester.
var ErrUnavailable = errors.New("suggestion adapter not configured")

// Suggestion is one raw record from the generative source: a title to
// join against the catalog plus free-text reasoning for the viewer.
type Suggestion struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Enriched is a suggestion joined back to its full catalog item.
type Enriched struct {
	catalog.Item
	Reason string `json:"reason,omitempty"`
}

// Suggester is the opaque generative capability. Implementations may
// return fewer records than asked for or fail outright; callers must
// treat both the same way and fall back locally.
type Suggester interface {
	// Available reports whether the capability is configured. Callers
	// check it before every attempt so an unconfigured deployment never
	// pays a call or a log line.
	Available() bool

	// SuggestPair asks for two candidates matching the taste profile,
	// avoiding titles already seen or excluded.
	SuggestPair(ctx context.Context, taste recommend.Profile, historyTitles, excludedTitles []string) ([]Suggestion, error)

	// SuggestFinal asks for k closing recommendations based on the full
	// choice history.
	SuggestFinal(ctx context.Context, historyTitles, excludedTitles []string, k int) ([]Suggestion, error)
}

// Disabled is the no-op suggester used when no API key is configured.
type Disabled struct{}

// Available always reports false.
func (Disabled) Available() bool { return false }

// SuggestPair always returns ErrUnavailable.
func (Disabled) SuggestPair(context.Context, recommend.Profile, []string, []string) ([]Suggestion, error) {
	return nil, ErrUnavailable
}

// SuggestFinal always returns ErrUnavailable.
func (Disabled) SuggestFinal(context.Context, []string, []string, int) ([]Suggestion, error) {
	return nil, ErrUnavailable
}

// Enrich joins raw suggestions against the catalog by exact title,
// carrying each record's reason onto the matched item. Titles with no
// catalog match are dropped; deciding whether the survivors are enough
// is the caller's business.
func Enrich(cat *catalog.Catalog, suggestions []Suggestion) []Enriched {
	var out []Enriched
	for _, s := range suggestions {
		item, ok := cat.FindByTitle(s.Title)
		if !ok {
			continue
		}
		out = append(out, Enriched{Item: item, Reason: s.Reason})
	}
	return out
}
