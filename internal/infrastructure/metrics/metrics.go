// Package metrics defines and registers the Prometheus metrics of the
// transcription client. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry on import and exposed by
// the local status server under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcribe"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayRequestsTotal counts calls to the remote service.
// Labels:
//   - operation: gateway method (e.g. "login", "list_jobs")
//   - outcome: "ok", "unauthorized", "server_error", "network_error", "canceled"
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of requests sent to the transcription service.",
	},
	[]string{"operation", "outcome"},
)

// GatewayRequestDuration measures round-trip time per operation.
var GatewayRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Round-trip duration of requests to the transcription service.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionTransitionsTotal counts session state changes by target status.
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions, by target status.",
	},
	[]string{"to"},
)

// ── Job metrics ───────────────────────────────────────────────────────────────

// PollTicksTotal counts poll loop iterations.
// Label:
//   - result: "pending", "terminal", "failed_job", "error"
var PollTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_ticks_total",
		Help:      "Total number of job poll ticks, by result.",
	},
	[]string{"result"},
)

// UploadsTotal counts upload attempts.
// Label:
//   - result: "accepted", "rejected_local", "failed"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of audio upload attempts, by result.",
	},
	[]string{"result"},
)

// ActiveWatches tracks running poll loops.
var ActiveWatches = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_watches",
		Help:      "Number of job poll loops currently running.",
	},
)
