// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package metrics provides Prometheus instrumentation for Deskatlas:
// heartbeat ingest, staleness sweeps, delta fan-out, WebSocket
// connections, and API latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Presence metrics
	HeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskatlas_heartbeats_total",
			Help: "Total number of accepted heartbeats",
		},
	)

	HeartbeatsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskatlas_heartbeats_rejected_total",
			Help: "Total number of rejected heartbeats",
		},
		[]string{"reason"}, // "auth", "rate_limited", "invalid"
	)

	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskatlas_presence_transitions_total",
			Help: "Total number of online/offline transitions",
		},
		[]string{"to"}, // "online", "offline"
	)

	SubjectsOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskatlas_subjects_online",
			Help: "Current number of subjects classified Online",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskatlas_sweep_duration_seconds",
			Help:    "Duration of staleness evaluator sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskatlas_sweep_errors_total",
			Help: "Total number of per-subject errors during staleness sweeps",
		},
	)

	// Notifier metrics
	DeltasPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskatlas_deltas_published_total",
			Help: "Total number of presence deltas published",
		},
		[]string{"status"},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskatlas_websocket_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskatlas_websocket_messages_sent_total",
			Help: "Total number of messages sent to WebSocket clients",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskatlas_websocket_messages_dropped_total",
			Help: "Total number of messages dropped due to slow WebSocket clients",
		},
	)

	// Directory metrics
	DirectoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskatlas_directory_query_duration_seconds",
			Help:    "Duration of directory (DuckDB) queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DirectoryQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskatlas_directory_query_errors_total",
			Help: "Total number of directory query errors",
		},
		[]string{"operation"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskatlas_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskatlas_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveDirectoryQuery records one directory query with its outcome.
func ObserveDirectoryQuery(operation string, duration time.Duration, err error) {
	DirectoryQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DirectoryQueryErrors.WithLabelValues(operation).Inc()
	}
}
