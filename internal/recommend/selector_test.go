// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviemind/moviemind/internal/catalog"
)

func newTestCatalog(t *testing.T, items []catalog.Item) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(items)
	require.NoError(t, err)
	return cat
}

func dramaCrimeTaste() Profile {
	p := NewProfile()
	p.Genres["Drama"] = 2
	p.Genres["Crime"] = 1
	return p
}

func TestScoreWeights(t *testing.T) {
	taste := NewProfile()
	taste.Genres["Crime"] = 1
	taste.Moods["Tense"] = 2
	taste.Themes["Duty"] = 1
	taste.Directors["Mann"] = 1
	taste.Cast["Pacino"] = 2

	item := catalog.Item{
		ID: "1", Title: "Heat", HasMetadata: true,
		Genres:   []string{"Crime"},
		Moods:    []string{"Tense"},
		Themes:   []string{"Duty"},
		Director: "Mann",
		Cast:     []string{"Pacino", "De Niro"},
	}

	// 2*1 + 1.5*2 + 1*1 + 3*1 + 2*2 = 13
	assert.InDelta(t, 13.0, Score(item, taste, nil), 1e-9)
}

func TestScoreUnknownTagsContributeZero(t *testing.T) {
	item := catalog.Item{
		ID: "1", Title: "A", HasMetadata: true,
		Genres: []string{"Western"}, Director: "Leone",
	}
	assert.Zero(t, Score(item, NewProfile(), nil))
}

func TestScoreUnmatchedItemIsZero(t *testing.T) {
	taste := dramaCrimeTaste()
	// Carries the display default genre but never matched metadata.
	item := catalog.Item{ID: "1", Title: "A", Genres: []string{"Drama"}}
	assert.Zero(t, Score(item, taste, nil))
}

func TestScoreCastDepth(t *testing.T) {
	taste := NewProfile()
	taste.Cast["Fourth"] = 5

	item := catalog.Item{
		ID: "1", Title: "A", HasMetadata: true,
		Cast: []string{"First", "Second", "Third", "Fourth"},
	}
	assert.Zero(t, Score(item, taste, nil))
}

func TestScoreExclusionPenalty(t *testing.T) {
	taste := dramaCrimeTaste()
	item := catalog.Item{ID: "d", Title: "D", HasMetadata: true, Genres: []string{"Drama"}}

	excluded := map[string]bool{"d": true}
	assert.InDelta(t, -996.0, Score(item, taste, excluded), 1e-9)
}

func TestSelectPairRanksByScore(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "c", Title: "C", HasMetadata: true, Genres: []string{"Crime"}},
		{ID: "d", Title: "D", HasMetadata: true, Genres: []string{"Drama"}},
	})
	sel := NewSelector(cat, 1)

	pair := sel.SelectPair(dramaCrimeTaste(), nil, nil)
	require.Len(t, pair, 2)
	// D scores 4, C scores 2.
	assert.Equal(t, "d", pair[0].ID)
	assert.Equal(t, "c", pair[1].ID)
}

func TestSelectPairPenaltyDemotesExcluded(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "c", Title: "C", HasMetadata: true, Genres: []string{"Crime"}},
		{ID: "d", Title: "D", HasMetadata: true, Genres: []string{"Drama"}},
		{ID: "e", Title: "E", HasMetadata: true, Genres: []string{"Western"}},
	})
	sel := NewSelector(cat, 1)

	// D would win at 4 but the penalty takes it to -996, below E's 0.
	pair := sel.SelectPair(dramaCrimeTaste(), map[string]bool{"d": true}, nil)
	require.Len(t, pair, 2)
	assert.Equal(t, "c", pair[0].ID)
	assert.Equal(t, "e", pair[1].ID)
}

func TestSelectPairStableTieBreak(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Western"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Western"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Western"}},
	})
	sel := NewSelector(cat, 1)

	// All score zero; catalog order decides.
	pair := sel.SelectPair(NewProfile(), nil, nil)
	require.Len(t, pair, 2)
	assert.Equal(t, "1", pair[0].ID)
	assert.Equal(t, "2", pair[1].ID)
}

func TestSelectPairFallsBackWhenPoolExhausted(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Drama"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Drama"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Drama"}},
	})
	sel := NewSelector(cat, 1)

	// Exclude all but one; the taste path cannot fill a pair and the
	// random path relaxes to the full catalog.
	excluded := map[string]bool{"1": true, "2": true}
	pair := sel.SelectPair(dramaCrimeTaste(), excluded, nil)
	assert.Len(t, pair, 2)
}

func TestSelectTopKExactCount(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Drama"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Crime"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Western"}},
		{ID: "4", Title: "D", HasMetadata: true, Genres: []string{"Drama", "Crime"}},
	})
	sel := NewSelector(cat, 1)

	top := sel.SelectTopK(dramaCrimeTaste(), nil, 3)
	require.Len(t, top, 3)
	// D=6, A=4, B=2.
	assert.Equal(t, "4", top[0].ID)
	assert.Equal(t, "1", top[1].ID)
	assert.Equal(t, "2", top[2].ID)
}

func TestSelectTopKRelaxesFilterToFillK(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Drama"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Crime"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Western"}},
	})
	sel := NewSelector(cat, 1)

	// Two of three excluded leaves a pool of one; the full catalog is
	// rescored without the penalty so three items still come back.
	excluded := map[string]bool{"1": true, "2": true}
	top := sel.SelectTopK(dramaCrimeTaste(), excluded, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "1", top[0].ID)
}

func TestRandomPairDistinctAndUnexcluded(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A"},
		{ID: "2", Title: "B"},
		{ID: "3", Title: "C"},
		{ID: "4", Title: "D"},
	})
	sel := NewSelector(cat, 42)

	excluded := map[string]bool{"1": true}
	for i := 0; i < 50; i++ {
		pair := sel.RandomPair(excluded, nil)
		require.Len(t, pair, 2)
		assert.NotEqual(t, pair[0].ID, pair[1].ID)
		assert.NotEqual(t, "1", pair[0].ID)
		assert.NotEqual(t, "1", pair[1].ID)
	}
}

func TestRandomPairAvoidsRejectedSignature(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A"},
		{ID: "2", Title: "B"},
		{ID: "3", Title: "C"},
	})
	sel := NewSelector(cat, 7)

	rejected := map[string]bool{PairSignature(catalog.Item{ID: "1"}, catalog.Item{ID: "2"}): true}
	for i := 0; i < 50; i++ {
		pair := sel.RandomPair(nil, rejected)
		require.Len(t, pair, 2)
		assert.False(t, rejected[PairSignature(pair[0], pair[1])])
	}
}

func TestRandomPairTerminatesWhenAllRejected(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A"},
		{ID: "2", Title: "B"},
	})
	sel := NewSelector(cat, 7)

	// The only possible pair is rejected; a bounded redraw returns it
	// anyway instead of looping.
	rejected := map[string]bool{PairSignature(catalog.Item{ID: "1"}, catalog.Item{ID: "2"}): true}
	pair := sel.RandomPair(nil, rejected)
	assert.Len(t, pair, 2)
}

func TestRandomPairDegradedPool(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A"},
		{ID: "2", Title: "B"},
	})
	sel := NewSelector(cat, 7)

	// Everything excluded: the unfiltered catalog is used rather than
	// returning fewer than two items.
	pair := sel.RandomPair(map[string]bool{"1": true, "2": true}, nil)
	assert.Len(t, pair, 2)
}

func TestPairSignatureOrderIndependent(t *testing.T) {
	a := catalog.Item{ID: "9"}
	b := catalog.Item{ID: "12"}
	assert.Equal(t, PairSignature(a, b), PairSignature(b, a))
	assert.Equal(t, "12-9", PairSignature(a, b))
}

func TestSelectByGenre(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Sci-Fi"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Sci-Fi", "Action"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Romance"}},
	})
	sel := NewSelector(cat, 3)

	// Substring match: "sci" hits both Sci-Fi entries.
	pair := sel.SelectByGenre("sci", nil, nil)
	require.Len(t, pair, 2)
	ids := map[string]bool{pair[0].ID: true, pair[1].ID: true}
	assert.True(t, ids["1"] && ids["2"])
}

func TestSelectByGenreFallsBackToRandom(t *testing.T) {
	cat := newTestCatalog(t, []catalog.Item{
		{ID: "1", Title: "A", HasMetadata: true, Genres: []string{"Sci-Fi"}},
		{ID: "2", Title: "B", HasMetadata: true, Genres: []string{"Romance"}},
		{ID: "3", Title: "C", HasMetadata: true, Genres: []string{"Romance"}},
	})
	sel := NewSelector(cat, 3)

	// Only one Sci-Fi item exists, so the genre pool cannot fill a pair.
	pair := sel.SelectByGenre("Sci-Fi", nil, nil)
	assert.Len(t, pair, 2)
}

func TestSelectorSeedReproducible(t *testing.T) {
	items := []catalog.Item{
		{ID: "1", Title: "A"}, {ID: "2", Title: "B"},
		{ID: "3", Title: "C"}, {ID: "4", Title: "D"},
	}
	a := NewSelector(newTestCatalog(t, items), 99)
	b := NewSelector(newTestCatalog(t, items), 99)

	for i := 0; i < 20; i++ {
		pa := a.RandomPair(nil, nil)
		pb := b.RandomPair(nil, nil)
		require.Equal(t, pa, pb)
	}
}
