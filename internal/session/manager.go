// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/collector"
	"github.com/moviemind/moviemind/internal/logging"
	"github.com/moviemind/moviemind/internal/metrics"
	"github.com/moviemind/moviemind/internal/recommend"
	"github.com/moviemind/moviemind/internal/suggest"
)

// Config tunes the session flow. Zero values fall back to the original
// flow shape: eight smart rounds, three final recommendations.
type Config struct {
	// SmartRounds is the number of taste-guided picks after the two
	// warm-up picks.
	SmartRounds int

	// FinalK is the size of the closing recommendation set.
	FinalK int

	// StrictExclusions switches the bookkeeping from "exclude acted-on
	// items" to "exclude everything ever shown".
	StrictExclusions bool

	// IdleTTL is how long an untouched session survives before the
	// janitor reaps it.
	IdleTTL time.Duration

	// Seed fixes every session's random stream for reproducible runs;
	// zero draws a fresh stream per session.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.SmartRounds <= 0 {
		c.SmartRounds = 8
	}
	if c.FinalK <= 0 {
		c.FinalK = 3
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 45 * time.Minute
	}
	return c
}

// totalPicks is the fixed number of choices that reach the results
// phase: one random, one by genre, then the smart rounds.
func (c Config) totalPicks() int {
	return 2 + c.SmartRounds
}

// Manager owns every live session and all their dependencies. All
// session actions go through it.
type Manager struct {
	catalog   *catalog.Catalog
	suggester suggest.Suggester
	collector *collector.Client
	cfg       Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager over the shared catalog and the optional
// suggestion and collector clients.
func NewManager(cat *catalog.Catalog, sug suggest.Suggester, col *collector.Client, cfg Config) *Manager {
	if sug == nil {
		sug = suggest.Disabled{}
	}
	if col == nil {
		col = collector.New("", 0)
	}
	return &Manager{
		catalog:   cat,
		suggester: sug,
		collector: col,
		cfg:       cfg.withDefaults(),
		sessions:  make(map[string]*Session),
	}
}

// Create registers a fresh session in the Intro phase.
func (m *Manager) Create() View {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastActive: now,
		selector:   recommend.NewSelector(m.catalog, m.cfg.Seed),
	}
	s.reset()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	logging.Debug().
		Str("component", "session").
		Str("session_id", s.ID).
		Msg("session created")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(m.cfg.totalPicks())
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(m.cfg.totalPicks()), nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// withSession runs fn with the session locked and marked active,
// rejecting the call when another action holds the busy flag across
// the adapter suspension point.
func (m *Manager) withSession(id string, fn func(*Session) error) (View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return View{}, ErrBusy
	}
	s.lastActive = time.Now()

	if err := fn(s); err != nil {
		return View{}, err
	}
	return s.view(m.cfg.totalPicks()), nil
}

// RunJanitor reaps idle sessions until ctx is done. Call in its own
// goroutine.
func (m *Manager) RunJanitor(ctx context.Context) {
	interval := m.cfg.IdleTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle(time.Now())
		}
	}
}

func (m *Manager) reapIdle(now time.Time) {
	cutoff := now.Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var reaped int
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := !s.busy && s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			reaped++
		}
	}
	m.mu.Unlock()

	if reaped > 0 {
		metrics.SessionsExpired.Add(float64(reaped))
		metrics.ActiveSessions.Sub(float64(reaped))
		logging.Info().
			Str("component", "session").
			Int("reaped", reaped).
			Msg("idle sessions expired")
	}
}
