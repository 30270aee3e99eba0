package metrics

import (
	"sync" // One-time registration

	"github.com/prometheus/client_golang/prometheus"          // Prometheus client
	"github.com/prometheus/client_golang/prometheus/promhttp" // Exposition handler
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yamdb_http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Auth flow
	SignupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yamdb_signups_total",
			Help: "Confirmation codes sent",
		},
	)
	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yamdb_tokens_issued_total",
			Help: "Access tokens issued",
		},
	)

	// Content writes
	EntityWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_entity_writes_total",
			Help: "Successful writes per entity",
		},
		[]string{"entity", "op"}, // op: create|update|delete
	)

	registerOnce sync.Once
)

// Handler serves the /metrics endpoint
var Handler = promhttp.Handler

// Register adds the collectors to the default registry; safe to call more than once
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestLatency, SignupsTotal, TokensIssued, EntityWrites)
	})
}
