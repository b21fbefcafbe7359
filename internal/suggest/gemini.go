// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/moviemind/moviemind/internal/logging"
	"github.com/moviemind/moviemind/internal/metrics"
	"github.com/moviemind/moviemind/internal/recommend"
)

// Call kinds, used for logging and metric labels.
const (
	kindPair  = "pair"
	kindFinal = "final"
)

var (
	errRateLimited = errors.New("suggestion rate limit exceeded")
	errUnderCount  = errors.New("suggestion under-count")
)

// GeminiConfig configures the Gemini-backed suggester.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	FailureThreshold  uint32
	OpenTimeout       time.Duration

	// AllowedTitles constrains prompts to titles the catalog can
	// enrich. Suggestions outside the list are dropped at the join.
	AllowedTitles []string
}

// Gemini calls the Gemini API for candidate suggestions. Calls are
// paced by a local rate limiter and guarded by a circuit breaker so a
// struggling upstream degrades the session to the local selector
// instead of stalling every pick on a timeout.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]Suggestion]
	titles  []string
}

// NewGemini builds a Gemini suggester. The context is only used for
// client construction, not for later calls.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	settings := gobreaker.Settings{
		Name:    "suggest-gemini",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("component", "suggest").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		breaker: gobreaker.NewCircuitBreaker[[]Suggestion](settings),
		titles:  cfg.AllowedTitles,
	}, nil
}

// Available reports true; construction fails without an API key, so an
// existing Gemini is always configured.
func (g *Gemini) Available() bool { return true }

// SuggestPair requests two candidates matching the taste profile.
// Fewer than two usable records is reported as an error so the caller
// falls back without inspecting the slice.
func (g *Gemini) SuggestPair(ctx context.Context, taste recommend.Profile, historyTitles, excludedTitles []string) ([]Suggestion, error) {
	prompt := buildPairPrompt(taste, historyTitles, excludedTitles, g.titles)
	out, err := g.generate(ctx, kindPair, prompt)
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		metrics.AdapterFailures.WithLabelValues(kindPair, "under_count").Inc()
		return nil, errUnderCount
	}
	return out[:2], nil
}

// SuggestFinal requests the k closing recommendations.
func (g *Gemini) SuggestFinal(ctx context.Context, historyTitles, excludedTitles []string, k int) ([]Suggestion, error) {
	prompt := buildFinalPrompt(historyTitles, excludedTitles, g.titles, k)
	out, err := g.generate(ctx, kindFinal, prompt)
	if err != nil {
		return nil, err
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// generate runs one model call through the limiter and breaker and
// parses the response. Every failure path is logged at debug level
// only; adapter trouble is expected operation, not an incident.
func (g *Gemini) generate(ctx context.Context, kind, prompt string) ([]Suggestion, error) {
	start := time.Now()
	out, err := g.breaker.Execute(func() ([]Suggestion, error) {
		if !g.limiter.Allow() {
			return nil, errRateLimited
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.7),
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		return parseSuggestions(resp.Text())
	})
	metrics.RecordAdapterCall(kind, time.Since(start))
	if err != nil {
		metrics.AdapterFailures.WithLabelValues(kind, failureReason(err)).Inc()
		logging.Debug().
			Str("component", "suggest").
			Str("kind", kind).
			Err(err).
			Msg("suggestion call failed")
		return nil, err
	}
	return out, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, errNoSuggestions):
		return "parse"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}
