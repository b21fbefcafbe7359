// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

// Package config loads MovieMind configuration via koanf v2 with layered
// sources (highest priority wins): environment variables, YAML config file,
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/moviemind/config.yaml",
	"/etc/moviemind/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root configuration for the MovieMind server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Suggest   SuggestConfig   `koanf:"suggest"`
	Collector CollectorConfig `koanf:"collector"`
	Session   SessionConfig   `koanf:"session"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// CatalogConfig points at the two catalog data sources joined at load time.
type CatalogConfig struct {
	// MoviesPath is the base record set (id, title, year, rating, description).
	MoviesPath string `koanf:"movies_path"`

	// MetadataPath is the tag metadata set (genres, moods, themes, director, cast),
	// joined against the base records by exact title.
	MetadataPath string `koanf:"metadata_path"`
}

// SuggestConfig configures the optional generative suggestion capability.
// When APIKey is empty the capability is absent; this is a normal,
// non-error state and the engine runs fully on the local selector.
type SuggestConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerMinute paces outbound calls to the generative API.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// Breaker settings: after FailureThreshold consecutive failures the
	// breaker opens for OpenTimeout before allowing a probe call.
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

// CollectorConfig configures the best-effort session submission endpoint.
type CollectorConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SessionConfig holds the session engine knobs.
type SessionConfig struct {
	// SmartRounds is the number of taste-scored rounds after the two
	// warm-up picks. Total picks to reach results = 2 + SmartRounds.
	SmartRounds int `koanf:"smart_rounds"`

	// FinalK is the size of the final recommendation set.
	FinalK int `koanf:"final_k"`

	// StrictExclusions excludes every item ever displayed, not just items
	// chosen against or skipped. Off by default: an item shown but not
	// acted on may reappear in a later round.
	StrictExclusions bool `koanf:"strict_exclusions"`

	// IdleTTL is how long an untouched session is kept before expiry.
	IdleTTL time.Duration `koanf:"idle_ttl"`

	// Seed fixes the selector's random source for reproducible runs.
	// Zero selects a time-based seed.
	Seed int64 `koanf:"seed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8094,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: 1 * time.Minute,
		},
		Catalog: CatalogConfig{
			MoviesPath:   "data/movies.json",
			MetadataPath: "data/movie_info.json",
		},
		Suggest: SuggestConfig{
			APIKey:            "",
			Model:             "gemini-2.0-flash",
			Timeout:           10 * time.Second,
			RequestsPerMinute: 30,
			FailureThreshold:  3,
			OpenTimeout:       60 * time.Second,
		},
		Collector: CollectorConfig{
			URL:     "",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			SmartRounds:      8,
			FinalK:           3,
			StrictExclusions: false,
			IdleTTL:          45 * time.Minute,
			Seed:             0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, and
// environment variables (highest priority), then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// MOVIEMIND_SERVER_PORT -> server.port, GEMINI_API_KEY -> suggest.api_key
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile locates the config file from env override or default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables are dropped so unrelated environment noise cannot
// override configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"moviemind_host":              "server.host",
		"moviemind_port":              "server.port",
		"moviemind_cors_origins":      "server.cors_origins",
		"moviemind_rate_limit_reqs":   "server.rate_limit_reqs",
		"moviemind_rate_limit_window": "server.rate_limit_window",

		// Catalog
		"moviemind_movies_path":   "catalog.movies_path",
		"moviemind_metadata_path": "catalog.metadata_path",

		// Suggestion capability (Gemini)
		"gemini_api_key":              "suggest.api_key",
		"gemini_model":                "suggest.model",
		"suggest_timeout":             "suggest.timeout",
		"suggest_requests_per_minute": "suggest.requests_per_minute",

		// Collector
		"collector_url":     "collector.url",
		"collector_timeout": "collector.timeout",

		// Session engine
		"session_smart_rounds":      "session.smart_rounds",
		"session_final_k":           "session.final_k",
		"session_strict_exclusions": "session.strict_exclusions",
		"session_idle_ttl":          "session.idle_ttl",
		"session_seed":              "session.seed",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in range 1-65535, got %d", c.Server.Port)
	}
	if c.Catalog.MoviesPath == "" {
		return fmt.Errorf("catalog.movies_path must not be empty")
	}
	if c.Catalog.MetadataPath == "" {
		return fmt.Errorf("catalog.metadata_path must not be empty")
	}
	if c.Session.SmartRounds < 1 {
		return fmt.Errorf("session.smart_rounds must be at least 1, got %d", c.Session.SmartRounds)
	}
	if c.Session.FinalK < 1 {
		return fmt.Errorf("session.final_k must be at least 1, got %d", c.Session.FinalK)
	}
	if c.Suggest.Timeout <= 0 {
		return fmt.Errorf("suggest.timeout must be positive, got %s", c.Suggest.Timeout)
	}
	if c.Suggest.RequestsPerMinute < 1 {
		return fmt.Errorf("suggest.requests_per_minute must be at least 1, got %d", c.Suggest.RequestsPerMinute)
	}
	return nil
}

// SuggestEnabled reports whether the generative suggestion capability is
// configured. Absence is a normal state, not an error.
func (c *Config) SuggestEnabled() bool {
	return c.Suggest.APIKey != ""
}

// TotalSelections is the number of accepted picks required to reach results:
// one initial random pick, one genre pick, then the smart rounds.
func (c *Config) TotalSelections() int {
	return 2 + c.Session.SmartRounds
}
