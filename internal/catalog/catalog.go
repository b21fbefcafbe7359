// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package catalog holds the static in-memory movie collection. The catalog
// is constructed once at startup by joining two data sources and is
// read-only thereafter, so it is safe to share across goroutines without
// locking.
package catalog

import (
	"fmt"
	"strings"
)

// Item is a candidate movie with descriptive metadata. Items are immutable
// once loaded; components reference them by ID or title rather than copying,
// except when enriching externally-sourced suggestions.
type Item struct {
	// ID is the unique stable identifier from the base record set.
	ID string `json:"id"`

	// Title is the unique display key, also used as the join key against
	// the metadata source and adapter suggestions.
	Title string `json:"title"`

	// NativeTitle is the localized title from the base record set.
	NativeTitle string `json:"native_title,omitempty"`

	// Year is the release year.
	Year int `json:"year,omitempty"`

	// Rating is the aggregate rating string from the base record set.
	Rating string `json:"rating,omitempty"`

	// Description is a short synopsis.
	Description string `json:"description,omitempty"`

	// ImageURL is a synthesized poster URL for portrait display.
	ImageURL string `json:"image_url,omitempty"`

	// Genres, Moods and Themes are descriptive tag lists. Items without a
	// metadata match carry the default genre only.
	Genres []string `json:"genres"`
	Moods  []string `json:"moods,omitempty"`
	Themes []string `json:"themes,omitempty"`

	// Director is the single credited director.
	Director string `json:"director,omitempty"`

	// Cast is ordered by billing; only the first few entries are
	// considered by the taste engine.
	Cast []string `json:"cast,omitempty"`

	// HasMetadata records whether the item matched the metadata source
	// at load time. Items without a match carry the default genre for
	// display and genre browsing but contribute nothing to taste
	// aggregation and score zero in taste-based ranking.
	HasMetadata bool `json:"has_metadata"`
}

// DefaultGenre is assigned to base records with no metadata match. Such
// items still participate in random selection but score near zero in
// taste-based ranking.
const DefaultGenre = "Drama"

// PrimaryGenre returns the item's first genre tag, or DefaultGenre when the
// item carries no genre tags.
func (it Item) PrimaryGenre() string {
	if len(it.Genres) > 0 && it.Genres[0] != "" {
		return it.Genres[0]
	}
	return DefaultGenre
}

// Catalog is the read-only movie collection with a title index built once
// at load time.
type Catalog struct {
	items   []Item
	byTitle map[string]int
	byID    map[string]int
}

// New builds a catalog from already-enriched items. Iteration order follows
// the input slice and is stable for the catalog's lifetime; scoring relies
// on it for reproducible tie-breaks.
func New(items []Item) (*Catalog, error) {
	byTitle := make(map[string]int, len(items))
	byID := make(map[string]int, len(items))
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog item %d (%q) has empty id", i, it.Title)
		}
		if it.Title == "" {
			return nil, fmt.Errorf("catalog item %d (id %s) has empty title", i, it.ID)
		}
		if _, dup := byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %s", it.ID)
		}
		if _, dup := byTitle[it.Title]; dup {
			return nil, fmt.Errorf("duplicate catalog title %q", it.Title)
		}
		byID[it.ID] = i
		byTitle[it.Title] = i
	}
	return &Catalog{items: items, byTitle: byTitle, byID: byID}, nil
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int {
	return len(c.items)
}

// All returns every item in stable load order. The returned slice is shared;
// callers must not modify it.
func (c *Catalog) All() []Item {
	return c.items
}

// FindByTitle looks up an item by its exact title.
func (c *Catalog) FindByTitle(title string) (Item, bool) {
	if i, ok := c.byTitle[title]; ok {
		return c.items[i], true
	}
	return Item{}, false
}

// FindByID looks up an item by its stable identifier.
func (c *Catalog) FindByID(id string) (Item, bool) {
	if i, ok := c.byID[id]; ok {
		return c.items[i], true
	}
	return Item{}, false
}

// Titles returns every catalog title in stable order. Used to constrain
// adapter prompts to titles the catalog can enrich.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.items))
	for i, it := range c.items {
		titles[i] = it.Title
	}
	return titles
}

// genreMatchLimit bounds how many genre-matching entries are examined before
// availability filtering, mirroring the shortlist behavior of the original
// selection flow.
const genreMatchLimit = 20

// ByGenre returns up to limit items whose genre tags match the given genre.
// Matching is a case-insensitive substring test, not an exact comparison:
// "Sci" matches "Sci-Fi" and "crime" matches "Crime". This looseness is
// intentional and load-bearing for genre phase behavior.
func (c *Catalog) ByGenre(genre string) []Item {
	needle := strings.ToLower(genre)
	var matched []Item
	for _, it := range c.items {
		for _, g := range it.Genres {
			if strings.Contains(strings.ToLower(g), needle) {
				matched = append(matched, it)
				break
			}
		}
		if len(matched) >= genreMatchLimit {
			break
		}
	}
	return matched
}
