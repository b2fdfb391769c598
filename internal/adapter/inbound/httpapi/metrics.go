// Package httpapi provides the HTTP transport adapter for the fulfilment engine.
package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
// Pass to components that need to record metrics.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsDeleted   prometheus.Counter
	StepsCompleted    *prometheus.CounterVec
	TransitionsDenied prometheus.Counter
	TypeMismatches    prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SessionsCreated: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fulfild",
				Name:      "sessions_created_total",
				Help:      "Total number of fulfilment sessions created",
			},
		),
		SessionsDeleted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fulfild",
				Name:      "sessions_deleted_total",
				Help:      "Total number of fulfilment sessions explicitly deleted",
			},
		),
		StepsCompleted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fulfild",
				Name:      "steps_completed_total",
				Help:      "Total completed steps by entity kind",
			},
			[]string{"kind"},
		),
		TransitionsDenied: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fulfild",
				Name:      "transitions_denied_total",
				Help:      "Total forward navigations rejected on an incomplete step",
			},
		),
		TypeMismatches: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fulfild",
				Name:      "type_mismatches_total",
				Help:      "Total step handler calls against the wrong current entity",
			},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fulfild",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}
