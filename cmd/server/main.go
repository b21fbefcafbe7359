// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package main is the entry point for the MovieMind server.
//
// MovieMind runs interactive taste discovery sessions: a viewer picks
// one of two movies ten times, the engine folds the picks into a taste
// profile, and the session closes with three personalized
// recommendations. Candidate pairs come from a local scoring engine,
// optionally augmented by the Gemini API on alternating rounds.
//
// # Startup order
//
//  1. Configuration: layered load from defaults, config.yaml and
//     environment variables (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Catalog: the two movie data files joined by title
//  4. Suggestion adapter: Gemini client when GEMINI_API_KEY is set,
//     disabled otherwise
//  5. Collector client: optional outbound submission endpoint
//  6. Session manager plus its idle-session janitor
//  7. HTTP server: REST API under /api/v1 plus /healthz and /metrics
//
// # Configuration
//
// Everything is overridable via environment variables, for example:
//
//	export MOVIEMIND_PORT=8094
//	export GEMINI_API_KEY=your-api-key
//	export COLLECTOR_URL=https://collector.example.com/sessions
//	export SESSION_SMART_ROUNDS=8
//	./moviemind
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the listener stops,
// in-flight requests get ten seconds to finish, and the janitor
// goroutine is canceled. Sessions live in memory only and are not
// persisted across restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moviemind/moviemind/internal/api"
	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/collector"
	"github.com/moviemind/moviemind/internal/config"
	"github.com/moviemind/moviemind/internal/logging"
	"github.com/moviemind/moviemind/internal/session"
	"github.com/moviemind/moviemind/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("port", cfg.Server.Port).
		Bool("suggest_enabled", cfg.SuggestEnabled()).
		Bool("collector_enabled", cfg.Collector.URL != "").
		Int("smart_rounds", cfg.Session.SmartRounds).
		Msg("Starting MovieMind")

	cat, err := catalog.Load(cfg.Catalog.MoviesPath, cfg.Catalog.MetadataPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suggester := buildSuggester(ctx, cfg, cat)
	col := collector.New(cfg.Collector.URL, cfg.Collector.Timeout)

	manager := session.NewManager(cat, suggester, col, session.Config{
		SmartRounds:      cfg.Session.SmartRounds,
		FinalK:           cfg.Session.FinalK,
		StrictExclusions: cfg.Session.StrictExclusions,
		IdleTTL:          cfg.Session.IdleTTL,
		Seed:             cfg.Session.Seed,
	})
	go manager.RunJanitor(ctx)

	handlers := api.NewHandlers(manager, cat)
	router := api.NewRouter(handlers, api.RouterConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitReqs,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildSuggester returns the Gemini client when configured, the no-op
// suggester otherwise. Adapter construction failure degrades to the
// local-only flow rather than aborting startup.
func buildSuggester(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) suggest.Suggester {
	if !cfg.SuggestEnabled() {
		logging.Info().Msg("Suggestion adapter disabled (no API key configured)")
		return suggest.Disabled{}
	}

	g, err := suggest.NewGemini(ctx, suggest.GeminiConfig{
		APIKey:            cfg.Suggest.APIKey,
		Model:             cfg.Suggest.Model,
		Timeout:           cfg.Suggest.Timeout,
		RequestsPerMinute: cfg.Suggest.RequestsPerMinute,
		FailureThreshold:  cfg.Suggest.FailureThreshold,
		OpenTimeout:       cfg.Suggest.OpenTimeout,
		AllowedTitles:     cat.Titles(),
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Suggestion adapter unavailable, continuing local-only")
		return suggest.Disabled{}
	}

	logging.Info().Str("model", cfg.Suggest.Model).Msg("Suggestion adapter enabled")
	return g
}
