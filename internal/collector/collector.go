// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package collector delivers completed session records to an external
// endpoint. Delivery is strictly best-effort: failures are logged and
// counted but never surfaced to the session, whose terminal transition
// is unconditional.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/moviemind/moviemind/internal/logging"
	"github.com/moviemind/moviemind/internal/metrics"
)

// Placeholder contact values sent when the viewer leaves the lead form
// empty. The downstream endpoint requires both fields to be present.
const (
	DefaultEmail = "no-email@example.com"
	DefaultPhone = "00000000000"
)

// Record is the payload for one completed session.
type Record struct {
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	SelectedMovies []string       `json:"selected_movies"`
	MovieRatings   map[string]int `json:"movie_ratings"`
}

// Client posts session records to the configured collector URL. An
// empty URL disables delivery entirely.
type Client struct {
	url  string
	http *http.Client
}

// New builds a collector client. url may be empty to disable delivery.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a collector endpoint is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Submit delivers one record, filling placeholder contact values for
// empty fields. The returned error exists for tests and logging only;
// callers are expected to ignore it.
func (c *Client) Submit(ctx context.Context, rec Record) error {
	if !c.Enabled() {
		return nil
	}
	if rec.Email == "" {
		rec.Email = DefaultEmail
	}
	if rec.Phone == "" {
		rec.Phone = DefaultPhone
	}

	err := c.post(ctx, rec)
	if err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		logging.Warn().
			Str("component", "collector").
			Err(err).
			Msg("session record submission failed")
		return err
	}

	metrics.Submissions.WithLabelValues("ok").Inc()
	logging.Debug().
		Str("component", "collector").
		Int("selected", len(rec.SelectedMovies)).
		Int("rated", len(rec.MovieRatings)).
		Msg("session record submitted")
	return nil
}

func (c *Client) post(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
