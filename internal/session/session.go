// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package session drives the phased elicitation flow: two warm-up
// picks, eight taste-guided rounds, then a ranked result set, lead
// capture and submission. The Manager holds every live session in
// memory and serializes all actions on a session behind its lock; the
// only suspension point is the external suggestion call, marked by a
// busy flag so concurrent actions fail fast instead of queueing behind
// a slow upstream.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/recommend"
	"github.com/moviemind/moviemind/internal/suggest"
)

// Phase names the current position in the session flow. Values appear
// verbatim in API responses.
type Phase string

const (
	PhaseIntro         Phase = "intro"
	PhaseInitialRandom Phase = "initial_random"
	PhaseByGenre       Phase = "by_genre"
	PhaseSmart         Phase = "smart"
	PhaseResults       Phase = "results"
	PhaseLeadCapture   Phase = "lead_capture"
	PhaseThanks        Phase = "thanks"
)

// picking reports whether the phase accepts choose and skip actions.
func (p Phase) picking() bool {
	return p == PhaseInitialRandom || p == PhaseByGenre || p == PhaseSmart
}

// Selection strategy labels, exported through View and metrics.
const (
	StrategyRandom  = "random"
	StrategyGenre   = "genre"
	StrategyTaste   = "taste"
	StrategyAdapter = "adapter"
)

// Action errors mapped to API error codes by the handlers.
var (
	ErrNotFound      = errors.New("session not found")
	ErrBusy          = errors.New("session is processing another action")
	ErrInvalidPhase  = errors.New("action not valid in current phase")
	ErrItemNotInPair = errors.New("item is not part of the current pair")
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	ErrUnknownTitle  = errors.New("title is not among the recommendations")
)

// maxRating is the top of the star scale.
const maxRating = 5

// Session is the full mutable state of one elicitation run. All fields
// below mu are guarded by it; the Manager is the only writer.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	busy       bool
	lastActive time.Time

	phase    Phase
	selected []catalog.Item

	// pair is the currently offered pair; pairReasons carries adapter
	// reasoning keyed by item id when the pair came from the adapter.
	pair         []catalog.Item
	pairReasons  map[string]string
	pairStrategy string

	genre string
	round int

	// excluded holds ids the selector must avoid: every chosen item
	// plus every rejected one (and, under strict bookkeeping, every id
	// ever shown). rejectedPairs holds pair signatures the random
	// selector must not immediately re-offer.
	excluded      map[string]bool
	rejectedPairs map[string]bool

	recommendations []suggest.Enriched
	recSource       string
	ratings         map[string]int

	email string
	phone string

	selector *recommend.Selector
}

// reset returns the session to a pristine Intro state, keeping its
// identity and its selector so a seeded run stays on one stream.
func (s *Session) reset() {
	s.phase = PhaseIntro
	s.selected = nil
	s.pair = nil
	s.pairReasons = nil
	s.pairStrategy = ""
	s.genre = ""
	s.round = 0
	s.excluded = make(map[string]bool)
	s.rejectedPairs = make(map[string]bool)
	s.recommendations = nil
	s.recSource = ""
	s.ratings = make(map[string]int)
	s.email = ""
	s.phone = ""
}

// PairItem is one half of an offered pair, with adapter reasoning when
// present.
type PairItem struct {
	catalog.Item
	Reason string `json:"reason,omitempty"`
}

// View is the read-only snapshot returned to the API layer.
type View struct {
	ID              string             `json:"id"`
	Phase           Phase              `json:"phase"`
	Round           int                `json:"round,omitempty"`
	Genre           string             `json:"genre,omitempty"`
	PicksMade       int                `json:"picks_made"`
	PicksRequired   int                `json:"picks_required"`
	Strategy        string             `json:"strategy,omitempty"`
	Pair            []PairItem         `json:"pair,omitempty"`
	Recommendations []suggest.Enriched `json:"recommendations,omitempty"`
	RecSource       string             `json:"recommendation_source,omitempty"`
	Ratings         map[string]int     `json:"ratings,omitempty"`
}

// view builds a snapshot. Caller holds s.mu.
func (s *Session) view(picksRequired int) View {
	v := View{
		ID:            s.ID,
		Phase:         s.phase,
		Round:         s.round,
		Genre:         s.genre,
		PicksMade:     len(s.selected),
		PicksRequired: picksRequired,
		Strategy:      s.pairStrategy,
		RecSource:     s.recSource,
	}
	for _, it := range s.pair {
		v.Pair = append(v.Pair, PairItem{Item: it, Reason: s.pairReasons[it.ID]})
	}
	if len(s.recommendations) > 0 {
		v.Recommendations = append(v.Recommendations, s.recommendations...)
	}
	if len(s.ratings) > 0 {
		v.Ratings = make(map[string]int, len(s.ratings))
		for k, r := range s.ratings {
			v.Ratings[k] = r
		}
	}
	return v
}

// historyTitles returns chosen titles in choice order. Caller holds s.mu.
func (s *Session) historyTitles() []string {
	titles := make([]string, len(s.selected))
	for i, it := range s.selected {
		titles[i] = it.Title
	}
	return titles
}
