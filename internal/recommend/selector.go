// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package recommend

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/moviemind/moviemind/internal/catalog"
)

// randomPairAttempts bounds the redraw loop that avoids re-offering a
// previously rejected pair. With a catalog of any realistic size the
// loop exits in one or two draws; the bound only matters when nearly
// every pair has already been rejected, where degrading to a repeat
// beats spinning.
const randomPairAttempts = 16

// Selector draws candidate pairs and final rankings from the catalog.
// It owns a seeded random source and is not safe for concurrent use;
// each session holds its own Selector behind the session lock.
type Selector struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
}

// NewSelector builds a selector over the given catalog. A zero seed
// selects a time-based seed; any other value makes every draw sequence
// reproducible, which the tests rely on.
func NewSelector(cat *catalog.Catalog, seed int64) *Selector {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Selector{catalog: cat, rng: rand.New(src)}
}

// PairSignature identifies an unordered pair for rejected-pair
// bookkeeping. Sorting the ids makes the signature order-independent.
func PairSignature(a, b catalog.Item) string {
	ids := []string{a.ID, b.ID}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

// available returns the catalog items whose ids are not in the exclusion
// set, preserving catalog order.
func (s *Selector) available(excluded map[string]bool) []catalog.Item {
	var out []catalog.Item
	for _, it := range s.catalog.All() {
		if !excluded[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// SelectPair scores the unexcluded pool against the taste profile and
// returns the top two candidates in descending score order. When the
// pool has fewer than two items it falls back to RandomPair over the
// hard exclusions only, trading personalization for progress.
func (s *Selector) SelectPair(taste Profile, excluded map[string]bool, rejectedPairs map[string]bool) []catalog.Item {
	pool := s.available(excluded)
	if len(pool) < 2 {
		return s.RandomPair(excluded, rejectedPairs)
	}
	ranked := rank(pool, taste, excluded)
	return []catalog.Item{ranked[0].item, ranked[1].item}
}

// SelectTopK returns the k best-scoring unexcluded items. When the
// filtered pool cannot fill k slots the whole catalog is rescored
// instead, permitting previously shown items; a short final ranking is
// worse than a repeated entry.
func (s *Selector) SelectTopK(taste Profile, excluded map[string]bool, k int) []catalog.Item {
	pool := s.available(excluded)
	if len(pool) < k {
		pool = s.catalog.All()
		excluded = nil
	}
	ranked := rank(pool, taste, excluded)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]catalog.Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

// RandomPair draws two distinct items uniformly from the complement of
// excludeIds, redrawing when the pair matches a previously rejected
// signature. The redraw loop is bounded; once exhausted the last draw
// is returned even if rejected, and a pool of fewer than two items
// degrades to the unfiltered catalog before giving up.
func (s *Selector) RandomPair(excludeIds map[string]bool, rejectedPairs map[string]bool) []catalog.Item {
	pool := s.available(excludeIds)
	if len(pool) < 2 {
		pool = s.catalog.All()
	}
	if len(pool) < 2 {
		return append([]catalog.Item(nil), pool...)
	}

	var pair []catalog.Item
	for attempt := 0; attempt < randomPairAttempts; attempt++ {
		i := s.rng.Intn(len(pool))
		j := s.rng.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		pair = []catalog.Item{pool[i], pool[j]}
		if !rejectedPairs[PairSignature(pair[0], pair[1])] {
			return pair
		}
	}
	return pair
}

// SelectByGenre draws a pair from items whose genre tags contain the
// given genre. The genre match is a deliberately loose case-insensitive
// substring test, and only the first matches in catalog order are
// considered, so compound tags like "Drama, Crime" still hit. Falls back to
// RandomPair when fewer than two matching items remain available.
func (s *Selector) SelectByGenre(genre string, excludeIds map[string]bool, rejectedPairs map[string]bool) []catalog.Item {
	matched := s.catalog.ByGenre(genre)
	var pool []catalog.Item
	for _, it := range matched {
		if !excludeIds[it.ID] {
			pool = append(pool, it)
		}
	}
	if len(pool) < 2 {
		return s.RandomPair(excludeIds, rejectedPairs)
	}
	i := s.rng.Intn(len(pool))
	j := s.rng.Intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return []catalog.Item{pool[i], pool[j]}
}
