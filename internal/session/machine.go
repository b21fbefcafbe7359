// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package session

import (
	"context"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/collector"
	"github.com/moviemind/moviemind/internal/logging"
	"github.com/moviemind/moviemind/internal/metrics"
	"github.com/moviemind/moviemind/internal/recommend"
	"github.com/moviemind/moviemind/internal/suggest"
)

// Start moves an Intro session to the first random pair.
func (m *Manager) Start(id string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if s.phase != PhaseIntro {
			return ErrInvalidPhase
		}
		s.phase = PhaseInitialRandom
		m.serveRandomPair(s)
		return nil
	})
}

// Choose records a pick of one item from the current pair and advances
// the machine. The unpicked item is rejected and the pair signature
// recorded so the random selector cannot immediately re-offer it.
func (m *Manager) Choose(ctx context.Context, id, itemID string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if !s.phase.picking() {
			return ErrInvalidPhase
		}
		chosen, other, ok := splitPair(s.pair, itemID)
		if !ok {
			return ErrItemNotInPair
		}

		s.selected = append(s.selected, chosen)
		s.excluded[chosen.ID] = true
		s.excluded[other.ID] = true
		s.rejectedPairs[recommend.PairSignature(chosen, other)] = true

		switch s.phase {
		case PhaseInitialRandom:
			s.phase = PhaseByGenre
			s.genre = chosen.PrimaryGenre()
			m.serveGenrePair(s)
		case PhaseByGenre:
			s.phase = PhaseSmart
			s.round = 1
			m.serveTastePair(s, recommend.ComputeTaste(s.selected))
		case PhaseSmart:
			if s.round >= m.cfg.SmartRounds {
				m.enterResults(ctx, s)
				break
			}
			s.round++
			taste := recommend.ComputeTaste(s.selected)
			if s.round%2 == 1 && m.suggester.Available() {
				m.serveAdapterPair(ctx, s, taste)
			} else {
				m.serveTastePair(s, taste)
			}
		}
		return nil
	})
}

// Skip rejects both items of the current pair and redraws within the
// current phase. Skips never consume a round and never engage the
// adapter.
func (m *Manager) Skip(id string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if !s.phase.picking() {
			return ErrInvalidPhase
		}
		for _, it := range s.pair {
			s.excluded[it.ID] = true
		}
		if len(s.pair) == 2 {
			s.rejectedPairs[recommend.PairSignature(s.pair[0], s.pair[1])] = true
		}

		switch s.phase {
		case PhaseInitialRandom:
			m.serveRandomPair(s)
		case PhaseByGenre:
			m.serveGenrePair(s)
		case PhaseSmart:
			m.serveTastePair(s, recommend.ComputeTaste(s.selected))
		}
		return nil
	})
}

// Rate stores a star rating for one recommendation.
func (m *Manager) Rate(id, title string, rating int) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if s.phase != PhaseResults && s.phase != PhaseLeadCapture {
			return ErrInvalidPhase
		}
		if rating < 0 || rating > maxRating {
			return ErrInvalidRating
		}
		if !s.hasRecommendation(title) {
			return ErrUnknownTitle
		}
		s.ratings[title] = rating
		return nil
	})
}

// Proceed is the explicit "done rating" step from Results to the lead
// form.
func (m *Manager) Proceed(id string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if s.phase != PhaseResults {
			return ErrInvalidPhase
		}
		s.phase = PhaseLeadCapture
		return nil
	})
}

// SubmitLead captures the optional contact fields, dispatches the
// session record to the collector and lands on the terminal phase. The
// dispatch is fire-and-forget; the transition never waits on it.
func (m *Manager) SubmitLead(ctx context.Context, id, email, phone string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		if s.phase != PhaseResults && s.phase != PhaseLeadCapture {
			return ErrInvalidPhase
		}
		s.email = email
		s.phone = phone

		rec := collector.Record{
			Email:          email,
			Phone:          phone,
			SelectedMovies: s.historyTitles(),
			MovieRatings:   make(map[string]int, len(s.ratings)),
		}
		for title, r := range s.ratings {
			rec.MovieRatings[title] = r
		}

		go m.collector.Submit(context.WithoutCancel(ctx), rec) //nolint:errcheck // best-effort delivery

		s.phase = PhaseThanks
		return nil
	})
}

// Restart resets a session to Intro with empty history and exclusions.
func (m *Manager) Restart(id string) (View, error) {
	return m.withSession(id, func(s *Session) error {
		s.reset()
		metrics.SessionsRestarted.Inc()
		return nil
	})
}

// setPair installs a freshly drawn pair. Caller holds s.mu. Under
// strict bookkeeping every shown id joins the exclusion set right
// away, not just once acted on.
func (m *Manager) setPair(s *Session, pair []catalog.Item, strategy string, reasons map[string]string) {
	s.pair = pair
	s.pairReasons = reasons
	s.pairStrategy = strategy
	if m.cfg.StrictExclusions {
		for _, it := range pair {
			s.excluded[it.ID] = true
		}
	}
	metrics.PairsServed.WithLabelValues(strategy).Inc()
}

func (m *Manager) serveRandomPair(s *Session) {
	m.setPair(s, s.selector.RandomPair(s.excluded, s.rejectedPairs), StrategyRandom, nil)
}

func (m *Manager) serveGenrePair(s *Session) {
	m.setPair(s, s.selector.SelectByGenre(s.genre, s.excluded, s.rejectedPairs), StrategyGenre, nil)
}

func (m *Manager) serveTastePair(s *Session, taste recommend.Profile) {
	m.setPair(s, s.selector.SelectPair(taste, s.excluded, s.rejectedPairs), StrategyTaste, nil)
}

// serveAdapterPair attempts the external suggestion source, falling
// back to the local selector with the identical taste and exclusion
// inputs on any failure. The session is marked busy and unlocked for
// the duration of the call so reads stay responsive and competing
// actions fail fast.
func (m *Manager) serveAdapterPair(ctx context.Context, s *Session, taste recommend.Profile) {
	history := s.historyTitles()
	excludedTitles := m.excludedTitles(s)

	s.busy = true
	s.mu.Unlock()
	suggestions, err := m.suggester.SuggestPair(ctx, taste, history, excludedTitles)
	s.mu.Lock()
	s.busy = false

	if err == nil {
		if pair, reasons, ok := m.enrichPair(s, suggestions); ok {
			m.setPair(s, pair, StrategyAdapter, reasons)
			return
		}
		metrics.AdapterFailures.WithLabelValues("pair", "enrichment").Inc()
	}

	metrics.AdapterFallbacks.Inc()
	logging.Debug().
		Str("component", "session").
		Str("session_id", s.ID).
		Int("round", s.round).
		Msg("adapter pair unavailable, using local selector")
	m.serveTastePair(s, taste)
}

// enrichPair joins adapter suggestions to the catalog and keeps the
// first two distinct, unexcluded matches.
func (m *Manager) enrichPair(s *Session, suggestions []suggest.Suggestion) ([]catalog.Item, map[string]string, bool) {
	var pair []catalog.Item
	reasons := make(map[string]string, 2)
	seen := make(map[string]bool, 2)
	for _, e := range suggest.Enrich(m.catalog, suggestions) {
		if s.excluded[e.ID] || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		pair = append(pair, e.Item)
		reasons[e.ID] = e.Reason
		if len(pair) == 2 {
			return pair, reasons, true
		}
	}
	return nil, nil, false
}

// enterResults computes the final recommendation set exactly once. The
// local ranking is always computed; adapter output replaces it only
// when it yields a full set of enriched, unexcluded items.
func (m *Manager) enterResults(ctx context.Context, s *Session) {
	s.phase = PhaseResults
	s.pair = nil
	s.pairReasons = nil
	s.pairStrategy = ""

	taste := recommend.ComputeTaste(s.selected)
	local := s.selector.SelectTopK(taste, s.excluded, m.cfg.FinalK)

	s.recommendations = make([]suggest.Enriched, len(local))
	for i, it := range local {
		s.recommendations[i] = suggest.Enriched{Item: it}
	}
	s.recSource = "local"

	if m.suggester.Available() {
		if final, ok := m.adapterFinal(ctx, s); ok {
			s.recommendations = final
			s.recSource = "adapter"
		} else {
			metrics.AdapterFallbacks.Inc()
		}
	}

	metrics.SessionsCompleted.Inc()
	logging.Info().
		Str("component", "session").
		Str("session_id", s.ID).
		Str("source", s.recSource).
		Int("picks", len(s.selected)).
		Msg("session reached results")
}

// adapterFinal asks the adapter for the closing set, accepting it only
// when enrichment and exclusion filtering leave at least FinalK items.
func (m *Manager) adapterFinal(ctx context.Context, s *Session) ([]suggest.Enriched, bool) {
	history := s.historyTitles()
	excludedTitles := m.excludedTitles(s)

	s.busy = true
	s.mu.Unlock()
	suggestions, err := m.suggester.SuggestFinal(ctx, history, excludedTitles, m.cfg.FinalK)
	s.mu.Lock()
	s.busy = false

	if err != nil {
		return nil, false
	}

	var out []suggest.Enriched
	seen := make(map[string]bool)
	for _, e := range suggest.Enrich(m.catalog, suggestions) {
		if s.excluded[e.ID] || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	if len(out) < m.cfg.FinalK {
		metrics.AdapterFailures.WithLabelValues("final", "enrichment").Inc()
		return nil, false
	}
	return out[:m.cfg.FinalK], true
}

// excludedTitles maps the exclusion id set to catalog titles for
// adapter prompts. Caller holds s.mu.
func (m *Manager) excludedTitles(s *Session) []string {
	var titles []string
	for _, it := range m.catalog.All() {
		if s.excluded[it.ID] {
			titles = append(titles, it.Title)
		}
	}
	return titles
}

func (s *Session) hasRecommendation(title string) bool {
	for _, r := range s.recommendations {
		if r.Title == title {
			return true
		}
	}
	return false
}

// splitPair finds itemID within the pair and returns it with the other
// half.
func splitPair(pair []catalog.Item, itemID string) (chosen, other catalog.Item, ok bool) {
	if len(pair) != 2 {
		return catalog.Item{}, catalog.Item{}, false
	}
	switch itemID {
	case pair[0].ID:
		return pair[0], pair[1], true
	case pair[1].ID:
		return pair[1], pair[0], true
	default:
		return catalog.Item{}, catalog.Item{}, false
	}
}
