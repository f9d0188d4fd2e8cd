package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// EntityOperations counts CRUD operations per collection and outcome (ok|invalid|not_found|error).
	EntityOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "entity_operations_total", Help: "CRUD operations by collection, operation and outcome."},
		[]string{"entity", "operation", "outcome"},
	)
	ContactNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "contact_notifications_total", Help: "Contact e-mail notifications by outcome."},
		[]string{"outcome"},
	)
	SnapshotRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "snapshot_runs_total", Help: "Store snapshot save/restore runs by outcome."},
		[]string{"operation", "outcome"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "portfolio", Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(EntityOperations)
	reg.MustRegister(ContactNotifications)
	reg.MustRegister(SnapshotRuns)
	reg.MustRegister(RequestDuration)
}
