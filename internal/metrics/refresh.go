package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshDecisions tracks the 2/3-threshold rotate-vs-reuse decision.
	RefreshDecisions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "decisions_total",
			Help:      "Total number of refresh decisions by outcome",
		},
		[]string{"decision"}, // reuse, rotate
	)

	// RefreshFailures tracks refresh attempts rejected outright.
	RefreshFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "failures_total",
			Help:      "Total number of rejected refresh attempts",
		},
		[]string{"reason"}, // expired, invalid_signature, not_found
	)

	// ActiveSessions estimates currently active sessions by counting
	// refresh cookies accepted without yet expiring or being revoked.
	ActiveSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "active_sessions",
			Help:      "Approximate number of active sessions",
		},
	)

	// RefreshDuration tracks refresh-handling latency.
	RefreshDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Refresh request handling duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
	)
)
