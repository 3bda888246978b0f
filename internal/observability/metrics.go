// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the GestãoPro server.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestaopro_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gestaopro_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// GatewayOperationsTotal counts table gateway operations by outcome.
	GatewayOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestaopro_gateway_operations_total",
			Help: "Table gateway operations",
		},
		[]string{"table", "operation", "outcome"},
	)

	// AuthFailuresTotal counts rejected authentications by reason.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestaopro_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"reason"},
	)

	// EventsPublishedTotal counts change events handed to the broker.
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestaopro_events_published_total",
			Help: "Change events published",
		},
		[]string{"outcome"},
	)
)

// Gateway operation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Auth failure reasons
const (
	ReasonMissingToken   = "missing_token"
	ReasonInvalidToken   = "invalid_token"
	ReasonUnknownUser    = "unknown_user"
	ReasonNoCompany      = "no_company"
	ReasonForbiddenRole  = "forbidden_role"
	ReasonBadCredentials = "bad_credentials"
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GatewayOperationsTotal,
		AuthFailuresTotal,
		EventsPublishedTotal,
	)
}
