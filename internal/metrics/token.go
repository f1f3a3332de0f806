package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued tracks opaque-token issuance by token type.
	TokensIssued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Total number of opaque tokens issued",
		},
		[]string{"type"}, // access, refresh, prehash
	)

	// TokensValidated tracks token validation outcomes.
	TokensValidated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "validated_total",
			Help:      "Total number of token validation attempts",
		},
		[]string{"type", "status"}, // status: valid, expired, corrupted, malformed
	)

	// TokenOperationDuration tracks issue/validate latency.
	TokenOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operation_duration_seconds",
			Help:      "Token issue/validate duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to 163ms
		},
		[]string{"operation", "type"}, // operation: issue, validate
	)
)
