// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package metrics provides Prometheus instrumentation for Vandalwatch:
//   - reconciliation run outcomes and durations
//   - the current estimated rate and published alert level
//   - MediaWiki API request counts and latency
//   - circuit breaker state for the API client
//
// All collectors are registered on the default registry via promauto and
// exposed through the daemon-mode /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vandalwatch_runs_total",
			Help: "Total reconciliation runs by outcome",
		},
		[]string{"result"}, // "changed", "unchanged", "error"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vandalwatch_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120}, // a run walks the whole recent-changes window
		},
	)

	RevertsPerMinute = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vandalwatch_reverts_per_minute",
			Help: "Most recently estimated vandalism revert rate",
		},
	)

	AlertLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vandalwatch_alert_level",
			Help: "Most recently computed alert level (1 severe .. 5 calm)",
		},
	)

	EditsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vandalwatch_edits_submitted_total",
			Help: "Total status page edits submitted",
		},
	)

	RecentChangesPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vandalwatch_recentchanges_pages_total",
			Help: "Total recent-changes result pages fetched across all runs",
		},
	)

	// MediaWiki API client metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vandalwatch_api_requests_total",
			Help: "Total MediaWiki API requests",
		},
		[]string{"action", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vandalwatch_api_request_duration_seconds",
			Help:    "MediaWiki API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"action"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vandalwatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vandalwatch_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vandalwatch_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by outcome",
		},
		[]string{"breaker", "outcome"}, // "success", "failure", "rejected"
	)
)

// ObserveAPIRequest records one MediaWiki API request.
func ObserveAPIRequest(action, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(action, status).Inc()
	APIRequestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordRun records a completed reconciliation run. The rate and level
// gauges are only meaningful for non-error results.
func RecordRun(result string, duration time.Duration) {
	RunsTotal.WithLabelValues(result).Inc()
	RunDuration.Observe(duration.Seconds())
}
