// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package recommend

import (
	"sort"

	"github.com/moviemind/moviemind/internal/catalog"
)

// Scoring weights per tag dimension. Director carries the strongest
// signal since it is a single high-precision tag, genres and top-billed
// cast are next, moods and themes trail as softer descriptors.
const (
	genreWeight    = 2.0
	moodWeight     = 1.5
	themeWeight    = 1.0
	directorWeight = 3.0
	castWeight     = 2.0

	// exclusionPenalty demotes excluded items below any realistic
	// positive score instead of filtering them out. Keeping excluded
	// items in the ranking keeps the total order well defined and lets
	// callers degrade to them when the pool runs dry.
	exclusionPenalty = -1000.0
)

// Score ranks a single candidate against a taste profile. Unknown tags
// contribute zero. Items that never matched the metadata source score
// exactly zero from every term even though they carry the display
// default genre; only the exclusion penalty can move them.
func Score(item catalog.Item, taste Profile, excluded map[string]bool) float64 {
	var s float64
	if item.HasMetadata {
		for _, g := range item.Genres {
			s += genreWeight * float64(taste.Genres[g])
		}
		for _, m := range item.Moods {
			s += moodWeight * float64(taste.Moods[m])
		}
		for _, t := range item.Themes {
			s += themeWeight * float64(taste.Themes[t])
		}
		s += directorWeight * float64(taste.Directors[item.Director])
		for i, a := range item.Cast {
			if i >= castDepth {
				break
			}
			s += castWeight * float64(taste.Cast[a])
		}
	}
	if excluded[item.ID] {
		s += exclusionPenalty
	}
	return s
}

// scored pairs an item with its score for sorting.
type scored struct {
	item  catalog.Item
	score float64
}

// rank scores every candidate and returns them in descending score
// order. The sort is stable over the input order, so equal scores keep
// catalog order and rankings are reproducible.
func rank(candidates []catalog.Item, taste Profile, excluded map[string]bool) []scored {
	out := make([]scored, len(candidates))
	for i, it := range candidates {
		out[i] = scored{item: it, score: Score(it, taste, excluded)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}
