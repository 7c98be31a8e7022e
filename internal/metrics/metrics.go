// Package metrics defines and registers the Prometheus metrics of the factory
// backend. Metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "factory"

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDecisionsTotal counts evaluator decisions.
// Labels:
//   - module: the requested module (e.g. "dashboard")
//   - action: the requested action (e.g. "read")
//   - result: "allow" or "deny"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization decisions, by module, action and result.",
	},
	[]string{"module", "action", "result"},
)

// AuthorizationErrorsTotal counts evaluations that failed to load the caller's grants.
var AuthorizationErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_errors_total",
		Help:      "Total number of authorization evaluations aborted by a store error.",
	},
)

// ── RBAC mutation metrics ─────────────────────────────────────────────────────

// RBACMutationsTotal counts committed access-control changes.
// Label:
//   - type: the event type (e.g. "role.permissions_replaced")
var RBACMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rbac_mutations_total",
		Help:      "Total number of committed access-control mutations, by type.",
	},
	[]string{"type"},
)

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "inactive" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - route: the matched route template (e.g. "/api/v1/roles/:id")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// WebSocketClients tracks connected RBAC event stream clients.
var WebSocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Current number of connected RBAC event stream clients.",
	},
)
