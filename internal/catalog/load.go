// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/moviemind/moviemind/internal/logging"
)

// baseRecord is a row of the base record set.
type baseRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	NativeTitle string `json:"native_title"`
	Year        int    `json:"year"`
	Rating      string `json:"rating"`
	Description string `json:"description"`
}

// metadataRecord is a row of the tag metadata set, keyed by film title.
type metadataRecord struct {
	Film     string   `json:"film"`
	Genres   []string `json:"genres"`
	Moods    []string `json:"mood"`
	Themes   []string `json:"themes"`
	Director string   `json:"director"`
	Cast     []string `json:"cast"`
}

// Load reads the base record set and the metadata set from disk, joins them
// by exact title via a one-time index, and returns the enriched read-only
// catalog. Base records with no metadata match get the default genre and no
// other tags.
func Load(moviesPath, metadataPath string) (*Catalog, error) {
	base, err := readJSONFile[baseRecord](moviesPath)
	if err != nil {
		return nil, fmt.Errorf("load base records: %w", err)
	}
	meta, err := readJSONFile[metadataRecord](metadataPath)
	if err != nil {
		return nil, fmt.Errorf("load metadata records: %w", err)
	}

	// One-time indexed lookup replaces a per-access linear scan.
	metaByTitle := make(map[string]metadataRecord, len(meta))
	for _, m := range meta {
		metaByTitle[m.Film] = m
	}

	items := make([]Item, 0, len(base))
	unmatched := 0
	for _, b := range base {
		item := Item{
			ID:          b.ID,
			Title:       b.Title,
			NativeTitle: b.NativeTitle,
			Year:        b.Year,
			Rating:      b.Rating,
			Description: b.Description,
			Genres:      []string{DefaultGenre},
		}
		if m, ok := metaByTitle[b.Title]; ok {
			item.HasMetadata = true
			item.Genres = m.Genres
			item.Moods = m.Moods
			item.Themes = m.Themes
			item.Director = m.Director
			item.Cast = m.Cast
			item.ImageURL = fmt.Sprintf("https://picsum.photos/300/450?random=%s", b.ID)
		} else {
			unmatched++
		}
		items = append(items, item)
	}

	cat, err := New(items)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("component", "catalog").
		Int("items", cat.Len()).
		Int("unmatched", unmatched).
		Msg("catalog loaded")

	return cat, nil
}

// readJSONFile decodes a JSON array file into a slice of T.
func readJSONFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
