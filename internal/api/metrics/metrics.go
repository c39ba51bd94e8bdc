// Package metrics defines every custom Prometheus metric exported by the
// gateway and the auth service. Metrics are registered with the default
// registry at package init and served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hospital"

// ── Access metrics ────────────────────────────────────────────────────────────

// AccessDecisionsTotal counts policy decisions.
// Labels:
//   - operation: the evaluated operation (e.g. "patients.read")
//   - decision: "allow", "unauthenticated" or "forbidden"
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of access policy decisions.",
	},
	[]string{"operation", "decision"},
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// ForwardedRequestsTotal counts requests relayed to a backend.
// Labels:
//   - route: binding name (e.g. "patient-service")
//   - code: status code returned to the caller
var ForwardedRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_forwarded_requests_total",
		Help:      "Total number of requests forwarded to backends.",
	},
	[]string{"route", "code"},
)

// UpstreamDuration measures backend round-trip time.
var UpstreamDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_upstream_duration_seconds",
		Help:      "Duration of forwarded requests, from dispatch to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route"},
)

// UpstreamErrorsTotal counts forwards that produced no backend response.
// Label:
//   - kind: "timeout", "unreachable" or "canceled"
var UpstreamErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_upstream_errors_total",
		Help:      "Total number of forwards that failed before a backend response.",
	},
	[]string{"route", "kind"},
)

// UnroutedRequestsTotal counts authorized requests whose path matched no route.
var UnroutedRequestsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_unrouted_requests_total",
		Help:      "Total number of requests with no matching route.",
	},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login outcomes.
// Label:
//   - result: "success", "invalid_credentials", "throttled" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_login_attempts_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks events waiting in each audit worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts audit events discarded because a worker
// channel was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped on a full queue.",
	},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures handler latency per matched echo route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)

// Middleware records HTTPRequestDuration for every request.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
