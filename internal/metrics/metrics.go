// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the elicitation service:
// - Session lifecycle (started, completed, restarted, expired)
// - Pair selection strategy mix (random, genre, taste, adapter)
// - Suggestion adapter health (attempts, failures, fallbacks)
// - Submission delivery
// - API endpoint latency and throughput

var (
	// Session Lifecycle Metrics
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemind_sessions_started_total",
			Help: "Total number of elicitation sessions started",
		},
	)

	SessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemind_sessions_completed_total",
			Help: "Total number of sessions that reached the results phase",
		},
	)

	SessionsRestarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemind_sessions_restarted_total",
			Help: "Total number of explicit session restarts",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemind_sessions_expired_total",
			Help: "Total number of sessions reaped after idle expiry",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviemind_active_sessions",
			Help: "Current number of live sessions held in memory",
		},
	)

	// Selection Strategy Metrics
	PairsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemind_pairs_served_total",
			Help: "Total number of candidate pairs served, by selection strategy",
		},
		[]string{"strategy"}, // "random", "genre", "taste", "adapter"
	)

	// Suggestion Adapter Metrics
	AdapterRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemind_adapter_requests_total",
			Help: "Total number of suggestion adapter calls",
		},
		[]string{"kind"}, // "pair", "final"
	)

	AdapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemind_adapter_failures_total",
			Help: "Total number of adapter calls that failed or under-delivered",
		},
		[]string{"kind", "reason"}, // reason: "error", "parse", "under_count", "enrichment"
	)

	AdapterFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemind_adapter_fallbacks_total",
			Help: "Total number of times the local selector replaced adapter output",
		},
	)

	AdapterLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviemind_adapter_latency_seconds",
			Help:    "Suggestion adapter call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Submission Metrics
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemind_submissions_total",
			Help: "Total number of session record submissions",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	// API Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviemind_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemind_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// RecordAdapterCall records one adapter call with its latency.
func RecordAdapterCall(kind string, duration time.Duration) {
	AdapterRequests.WithLabelValues(kind).Inc()
	AdapterLatency.WithLabelValues(kind).Observe(duration.Seconds())
}
