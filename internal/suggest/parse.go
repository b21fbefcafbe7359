// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package suggest

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

var errNoSuggestions = errors.New("response contained no usable suggestions")

// suggestionEnvelope covers the object shapes models wrap lists in even
// when asked for a bare array.
type suggestionEnvelope struct {
	Movies      []Suggestion `json:"movies"`
	Suggestions []Suggestion `json:"suggestions"`
}

// parseSuggestions extracts suggestion records from model output. The
// model is asked for a bare JSON array but in practice also produces
// fenced code blocks and wrapper objects, so all three shapes are
// accepted. Records with an empty title are discarded.
func parseSuggestions(text string) ([]Suggestion, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, errNoSuggestions
	}

	var list []Suggestion
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		var env suggestionEnvelope
		if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
			return nil, err
		}
		list = env.Movies
		if len(list) == 0 {
			list = env.Suggestions
		}
	}

	out := list[:0]
	for _, s := range list {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errNoSuggestions
	}
	return out, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language tag, and trims whitespace.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
