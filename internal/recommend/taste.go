// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package recommend implements the taste aggregation, candidate scoring
// and pair selection that drive an elicitation session. All functions
// are pure over their inputs; the only state is the seeded random source
// inside Selector, so a fixed seed reproduces a full session.
package recommend

import "github.com/moviemind/moviemind/internal/catalog"

// castDepth bounds how many billing positions contribute to the taste
// profile and to candidate scoring. Deep cast lists add noise, the top
// billed names carry the signal.
const castDepth = 3

// Profile holds weighted tag-preference counters built from a choice
// history. Each counter maps a tag value to the number of chosen items
// carrying that tag. Counters are independent; an empty map means the
// dimension has no signal yet.
type Profile struct {
	Genres    map[string]int `json:"genres"`
	Moods     map[string]int `json:"moods"`
	Themes    map[string]int `json:"themes"`
	Directors map[string]int `json:"directors"`
	Cast      map[string]int `json:"cast"`
}

// NewProfile returns an empty profile with all counters allocated.
func NewProfile() Profile {
	return Profile{
		Genres:    make(map[string]int),
		Moods:     make(map[string]int),
		Themes:    make(map[string]int),
		Directors: make(map[string]int),
		Cast:      make(map[string]int),
	}
}

// IsEmpty reports whether the profile carries no signal on any dimension.
func (p Profile) IsEmpty() bool {
	return len(p.Genres) == 0 && len(p.Moods) == 0 && len(p.Themes) == 0 &&
		len(p.Directors) == 0 && len(p.Cast) == 0
}

// ComputeTaste folds a choice history into a fresh profile. The profile
// is rebuilt from the full history on every call rather than mutated
// incrementally, so it can never drift from the history it describes.
//
// Each chosen item contributes 1 per genre, mood and theme tag, 1 for
// its director, and 1 per cast entry within the top castDepth billing
// positions. Items that never matched the metadata source contribute
// nothing.
func ComputeTaste(history []catalog.Item) Profile {
	p := NewProfile()
	for _, it := range history {
		if !it.HasMetadata {
			continue
		}
		for _, g := range it.Genres {
			p.Genres[g]++
		}
		for _, m := range it.Moods {
			p.Moods[m]++
		}
		for _, t := range it.Themes {
			p.Themes[t]++
		}
		if it.Director != "" {
			p.Directors[it.Director]++
		}
		for i, a := range it.Cast {
			if i >= castDepth {
				break
			}
			p.Cast[a]++
		}
	}
	return p
}
