// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/recommend"
	"github.com/moviemind/moviemind/internal/suggest"
)

// testCatalog builds 24 items so a full 10-pick run (20 distinct shown
// items) never exhausts the pool.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	genreCycle := [][]string{
		{"Drama"}, {"Crime"}, {"Drama", "Crime"}, {"Thriller"},
		{"Comedy"}, {"Sci-Fi"}, {"Romance", "Drama"}, {"Horror", "Thriller"},
	}
	items := make([]catalog.Item, 24)
	for i := range items {
		items[i] = catalog.Item{
			ID:          fmt.Sprintf("m%02d", i+1),
			Title:       fmt.Sprintf("Movie %02d", i+1),
			HasMetadata: true,
			Genres:      genreCycle[i%len(genreCycle)],
			Director:    fmt.Sprintf("Director %d", i%4),
			Cast:        []string{fmt.Sprintf("Lead %d", i%5), "Support"},
		}
	}
	cat, err := catalog.New(items)
	require.NoError(t, err)
	return cat
}

// fakeSuggester always answers with the first unexcluded catalog
// titles, like a well-behaved upstream.
type fakeSuggester struct {
	titles     []string
	pairCalls  int
	finalCalls int
}

func (f *fakeSuggester) Available() bool { return true }

func (f *fakeSuggester) pick(history, excluded []string, n int) []suggest.Suggestion {
	avoid := make(map[string]bool, len(history)+len(excluded))
	for _, t := range history {
		avoid[t] = true
	}
	for _, t := range excluded {
		avoid[t] = true
	}
	var out []suggest.Suggestion
	for _, title := range f.titles {
		if avoid[title] {
			continue
		}
		out = append(out, suggest.Suggestion{Title: title, Reason: "because your picks say so"})
		if len(out) == n {
			break
		}
	}
	return out
}

func (f *fakeSuggester) SuggestPair(_ context.Context, _ recommend.Profile, history, excluded []string) ([]suggest.Suggestion, error) {
	f.pairCalls++
	return f.pick(history, excluded, 2), nil
}

func (f *fakeSuggester) SuggestFinal(_ context.Context, history, excluded []string, k int) ([]suggest.Suggestion, error) {
	f.finalCalls++
	return f.pick(history, excluded, k), nil
}

// failingSuggester reports available but errors on every call.
type failingSuggester struct{}

func (failingSuggester) Available() bool { return true }

func (failingSuggester) SuggestPair(context.Context, recommend.Profile, []string, []string) ([]suggest.Suggestion, error) {
	return nil, errors.New("upstream down")
}

func (failingSuggester) SuggestFinal(context.Context, []string, []string, int) ([]suggest.Suggestion, error) {
	return nil, errors.New("upstream down")
}

func newTestManager(t *testing.T, sug suggest.Suggester) *Manager {
	t.Helper()
	return NewManager(testCatalog(t), sug, nil, Config{Seed: 42})
}

func newFakeSuggester(t *testing.T) *fakeSuggester {
	t.Helper()
	return &fakeSuggester{titles: testCatalog(t).Titles()}
}

// chooseFirst picks the first item of the current pair.
func chooseFirst(t *testing.T, m *Manager, id string) View {
	t.Helper()
	v, err := m.Get(id)
	require.NoError(t, err)
	require.Len(t, v.Pair, 2, "phase %s should offer a pair", v.Phase)
	v, err = m.Choose(t.Context(), id, v.Pair[0].ID)
	require.NoError(t, err)
	return v
}

func runToResults(t *testing.T, m *Manager, id string) View {
	t.Helper()
	v, err := m.Start(id)
	require.NoError(t, err)
	for v.Phase.picking() {
		v = chooseFirst(t, m, id)
	}
	return v
}

func lastChoice(t *testing.T, m *Manager, id string) string {
	t.Helper()
	s, err := m.lookup(id)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.selected)
	return s.selected[len(s.selected)-1].ID
}

func TestFullFlowWithoutAdapter(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	assert.Equal(t, PhaseIntro, v.Phase)
	assert.Equal(t, 10, v.PicksRequired)

	v, err := m.Start(v.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseInitialRandom, v.Phase)
	assert.Equal(t, StrategyRandom, v.Strategy)
	require.Len(t, v.Pair, 2)

	// Pick 1 moves to the genre phase keyed by the chosen item's
	// primary genre.
	first := v.Pair[0]
	v, err = m.Choose(t.Context(), v.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseByGenre, v.Phase)
	assert.Equal(t, first.PrimaryGenre(), v.Genre)
	assert.Equal(t, 1, v.PicksMade)

	// Pick 2 enters the smart phase at round 1 with a taste-ranked pair.
	v = chooseFirst(t, m, v.ID)
	assert.Equal(t, PhaseSmart, v.Phase)
	assert.Equal(t, 1, v.Round)
	assert.Equal(t, StrategyTaste, v.Strategy)

	for v.Phase == PhaseSmart {
		v = chooseFirst(t, m, v.ID)
		assert.NotEqual(t, StrategyAdapter, v.Strategy)
	}

	assert.Equal(t, PhaseResults, v.Phase)
	assert.Equal(t, 10, v.PicksMade)
	assert.Equal(t, "local", v.RecSource)
	require.Len(t, v.Recommendations, 3)
	assert.Empty(t, v.Pair)
}

func TestExactlyTenPicksDespiteSkips(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	id := v.ID
	_, err := m.Start(id)
	require.NoError(t, err)

	picks := 0
	for {
		v, err = m.Get(id)
		require.NoError(t, err)
		if !v.Phase.picking() {
			break
		}
		// Skip every third action; skips must not count as picks.
		if picks%3 == 2 {
			_, err = m.Skip(id)
			require.NoError(t, err)
		}
		chooseFirst(t, m, id)
		picks++
	}

	assert.Equal(t, PhaseResults, v.Phase)
	assert.Equal(t, 10, picks)
	assert.Equal(t, 10, v.PicksMade)
}

func TestNoDuplicatePresentationOfChosenItems(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	id := v.ID
	_, err := m.Start(id)
	require.NoError(t, err)

	chosen := make(map[string]bool)
	for {
		v, err = m.Get(id)
		require.NoError(t, err)
		if !v.Phase.picking() {
			break
		}
		for _, it := range v.Pair {
			assert.False(t, chosen[it.ID], "chosen item %s offered again", it.ID)
		}
		chooseFirst(t, m, id)
		chosen[lastChoice(t, m, id)] = true
	}
}

func TestAdapterUsedOnOddRounds(t *testing.T) {
	sug := newFakeSuggester(t)
	m := newTestManager(t, sug)
	v := m.Create()
	runToResults(t, m, v.ID)

	// Odd smart rounds 3, 5 and 7 attempt the adapter; the results
	// phase asks once more for the final set.
	assert.Equal(t, 3, sug.pairCalls)
	assert.Equal(t, 1, sug.finalCalls)
}

func TestAdapterPairCarriesReasons(t *testing.T) {
	sug := newFakeSuggester(t)
	m := newTestManager(t, sug)
	v := m.Create()
	id := v.ID
	_, err := m.Start(id)
	require.NoError(t, err)

	sawAdapterPair := false
	for {
		v, err = m.Get(id)
		require.NoError(t, err)
		if !v.Phase.picking() {
			break
		}
		if v.Strategy == StrategyAdapter {
			sawAdapterPair = true
			require.Len(t, v.Pair, 2)
			assert.NotEmpty(t, v.Pair[0].Reason)
			assert.NotEmpty(t, v.Pair[1].Reason)
		}
		chooseFirst(t, m, id)
	}
	assert.True(t, sawAdapterPair, "no adapter-sourced pair appeared in the smart phase")
}

func TestFailingAdapterMatchesDisabledAdapter(t *testing.T) {
	runSequence := func(sug suggest.Suggester) []View {
		m := NewManager(testCatalog(t), sug, nil, Config{Seed: 7})
		v := m.Create()
		id := v.ID
		var out []View
		v, err := m.Start(id)
		require.NoError(t, err)
		out = append(out, v)
		for v.Phase.picking() {
			v = chooseFirst(t, m, id)
			out = append(out, v)
		}
		return out
	}

	withFailing := runSequence(failingSuggester{})
	withDisabled := runSequence(nil)

	require.Equal(t, len(withDisabled), len(withFailing))
	for i := range withDisabled {
		assert.Equal(t, withDisabled[i].Phase, withFailing[i].Phase)
		assert.Equal(t, pairIDs(withDisabled[i]), pairIDs(withFailing[i]))
	}
	// The fallback path must also deliver the same final set.
	last := len(withDisabled) - 1
	assert.Equal(t, withDisabled[last].Recommendations, withFailing[last].Recommendations)
}

func pairIDs(v View) []string {
	ids := make([]string, len(v.Pair))
	for i, it := range v.Pair {
		ids[i] = it.ID
	}
	return ids
}

func TestAdapterFinalAccepted(t *testing.T) {
	sug := newFakeSuggester(t)
	m := newTestManager(t, sug)
	v := m.Create()
	v = runToResults(t, m, v.ID)

	// The fake always finds three unexcluded titles, so the adapter
	// set wins over the local ranking.
	assert.Equal(t, "adapter", v.RecSource)
	require.Len(t, v.Recommendations, 3)
	for _, r := range v.Recommendations {
		assert.NotEmpty(t, r.Reason)
	}
}

func TestAdapterFinalUnderCountFallsBack(t *testing.T) {
	// Only one known title leaves enrichment below the required three.
	sug := &fakeSuggester{titles: []string{"Movie 24"}}
	m := newTestManager(t, sug)
	v := m.Create()
	v = runToResults(t, m, v.ID)

	assert.Equal(t, "local", v.RecSource)
	require.Len(t, v.Recommendations, 3)
}

func TestResultsComputedOnce(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	v = runToResults(t, m, v.ID)
	first := v.Recommendations

	v, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, first, v.Recommendations)
}

func TestRateProceedSubmit(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	id := v.ID
	v = runToResults(t, m, id)
	title := v.Recommendations[0].Title

	v, err := m.Rate(id, title, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Ratings[title])

	_, err = m.Rate(id, title, 9)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = m.Rate(id, "Not A Recommendation", 3)
	assert.ErrorIs(t, err, ErrUnknownTitle)

	v, err = m.Proceed(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseLeadCapture, v.Phase)

	v, err = m.SubmitLead(t.Context(), id, "", "")
	require.NoError(t, err)
	assert.Equal(t, PhaseThanks, v.Phase)
}

func TestInvalidPhaseActions(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	id := v.ID

	_, err := m.Choose(t.Context(), id, "m01")
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = m.Skip(id)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = m.Rate(id, "x", 3)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = m.Proceed(id)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = m.Start(id)
	require.NoError(t, err)
	_, err = m.Start(id)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = m.Choose(t.Context(), id, "not-in-pair")
	assert.ErrorIs(t, err, ErrItemNotInPair)
}

func TestRestartResetsState(t *testing.T) {
	m := newTestManager(t, nil)
	v := m.Create()
	id := v.ID
	runToResults(t, m, id)

	v, err := m.Restart(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseIntro, v.Phase)
	assert.Zero(t, v.PicksMade)
	assert.Empty(t, v.Recommendations)
	assert.Empty(t, v.Ratings)

	// A restarted session runs the full flow again.
	v = runToResults(t, m, id)
	assert.Equal(t, PhaseResults, v.Phase)
	assert.Equal(t, 10, v.PicksMade)
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Start("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// blockingSuggester parks inside the adapter call until released so
// tests can observe the busy window.
type blockingSuggester struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSuggester) Available() bool { return true }

func (b *blockingSuggester) SuggestPair(context.Context, recommend.Profile, []string, []string) ([]suggest.Suggestion, error) {
	close(b.entered)
	<-b.release
	return nil, errors.New("released without data")
}

func (b *blockingSuggester) SuggestFinal(context.Context, []string, []string, int) ([]suggest.Suggestion, error) {
	return nil, errors.New("no finals")
}

func TestConcurrentActionDuringAdapterCallConflicts(t *testing.T) {
	sug := &blockingSuggester{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := newTestManager(t, sug)
	v := m.Create()
	id := v.ID
	_, err := m.Start(id)
	require.NoError(t, err)

	// Picks 1 and 2 plus smart rounds 1 and 2; the next pick moves to
	// round 3, which engages the adapter.
	for i := 0; i < 3; i++ {
		chooseFirst(t, m, id)
	}

	v, err = m.Get(id)
	require.NoError(t, err)
	require.Equal(t, 2, v.Round)

	done := make(chan error, 1)
	go func() {
		_, err := m.Choose(context.Background(), id, v.Pair[0].ID)
		done <- err
	}()

	<-sug.entered

	// Reads stay responsive during the suspension point.
	_, err = m.Get(id)
	require.NoError(t, err)

	// Competing actions fail fast instead of queueing.
	_, err = m.Skip(id)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = m.Restart(id)
	assert.ErrorIs(t, err, ErrBusy)

	close(sug.release)
	require.NoError(t, <-done)

	// The failed adapter call fell back locally and the session moved on.
	v, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Round)
	assert.Equal(t, StrategyTaste, v.Strategy)
}

func TestJanitorReapsIdleSessions(t *testing.T) {
	m := NewManager(testCatalog(t), nil, nil, Config{Seed: 1, IdleTTL: time.Minute})
	v := m.Create()
	require.Equal(t, 1, m.Count())

	// Not idle yet.
	m.reapIdle(time.Now())
	assert.Equal(t, 1, m.Count())

	m.reapIdle(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, m.Count())

	_, err := m.Get(v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStrictExclusionsNeverReshow(t *testing.T) {
	m := NewManager(testCatalog(t), nil, nil, Config{Seed: 11, StrictExclusions: true})
	v := m.Create()
	id := v.ID
	_, err := m.Start(id)
	require.NoError(t, err)

	shown := make(map[string]int)
	for {
		v, err = m.Get(id)
		require.NoError(t, err)
		if !v.Phase.picking() {
			break
		}
		for _, it := range v.Pair {
			shown[it.ID]++
			assert.LessOrEqual(t, shown[it.ID], 1, "item %s shown twice under strict bookkeeping", it.ID)
		}
		chooseFirst(t, m, id)
	}
}
