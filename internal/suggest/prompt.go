// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package suggest

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/moviemind/moviemind/internal/recommend"
)

// buildPairPrompt asks the model for exactly two titles drawn from the
// allowed list. The taste profile goes in as plain JSON counters; the
// model only needs relative weights, not an explanation of the scoring
// rule.
func buildPairPrompt(taste recommend.Profile, historyTitles, excludedTitles, allowedTitles []string) string {
	tasteJSON, _ := json.Marshal(taste)

	var b strings.Builder
	b.WriteString("You are helping a movie taste discovery session pick the next pair of candidates.\n\n")
	fmt.Fprintf(&b, "The viewer's taste profile so far (tag -> times chosen):\n%s\n\n", tasteJSON)
	fmt.Fprintf(&b, "Movies already chosen, in order: %s\n", joinOrNone(historyTitles))
	fmt.Fprintf(&b, "Movies to avoid (already shown or rejected): %s\n\n", joinOrNone(excludedTitles))
	b.WriteString("Pick exactly 2 movies from this list that best match the taste profile ")
	b.WriteString("and would make an interesting head-to-head choice:\n")
	fmt.Fprintf(&b, "%s\n\n", strings.Join(allowedTitles, "; "))
	b.WriteString("Respond with only a JSON array of exactly 2 objects, each with keys ")
	b.WriteString(`"title" (copied verbatim from the list) and "reason" (one short sentence addressed to the viewer).`)
	return b.String()
}

// buildFinalPrompt asks for the closing recommendation set.
func buildFinalPrompt(historyTitles, excludedTitles, allowedTitles []string, k int) string {
	var b strings.Builder
	b.WriteString("A movie taste discovery session has finished. ")
	fmt.Fprintf(&b, "The viewer chose these movies, in order: %s\n", joinOrNone(historyTitles))
	fmt.Fprintf(&b, "Do not recommend: %s\n\n", joinOrNone(excludedTitles))
	fmt.Fprintf(&b, "Recommend the %d movies from this list the viewer is most likely to love next:\n", k)
	fmt.Fprintf(&b, "%s\n\n", strings.Join(allowedTitles, "; "))
	fmt.Fprintf(&b, "Respond with only a JSON array of exactly %d objects, each with keys ", k)
	b.WriteString(`"title" (copied verbatim from the list) and "reason" (one enthusiastic sentence addressed to the viewer).`)
	return b.String()
}

func joinOrNone(titles []string) string {
	if len(titles) == 0 {
		return "(none)"
	}
	return strings.Join(titles, "; ")
}
