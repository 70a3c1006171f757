// Package metrics defines and registers all custom Prometheus metrics for the
// lending API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default registry on package init through
// promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// ── Lending metrics ───────────────────────────────────────────────────────────

// LendingOperationsTotal counts lending use cases by outcome.
// Labels:
//   - operation: "borrow", "return", "create_book", "edit_book", "delete_book"
//   - result: "ok" or a short failure reason (e.g. "already_borrowed", "limit_exceeded")
var LendingOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lending_operations_total",
		Help:      "Total number of lending operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// PenaltiesCreatedTotal counts penalties issued for late returns.
var PenaltiesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "penalties_created_total",
		Help:      "Total number of penalties created by late returns.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionCacheTotal counts session cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var SessionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_total",
		Help:      "Total number of session cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts circulation events written to the audit trail.
// Labels:
//   - type: "borrowed", "returned" or "penalized"
//   - result: "ok" or "error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of circulation events recorded, by type and result.",
	},
	[]string{"type", "result"},
)

// AuditEventsDroppedTotal counts events discarded because a worker queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of circulation events dropped on a full queue.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of circulation events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures request latency per route.
// Labels:
//   - method: HTTP method
//   - route: the registered echo path (e.g. "/books/:id/borrow")
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
