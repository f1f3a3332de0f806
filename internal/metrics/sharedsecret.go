package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SharedSecretsCreated tracks shared-secret creation by role.
	SharedSecretsCreated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "created_total",
			Help:      "Total number of shared secrets created",
		},
		[]string{"status"}, // success, failure
	)

	// SharedSecretsRead tracks read attempts against a shared secret.
	SharedSecretsRead = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "read_total",
			Help:      "Total number of shared-secret reads",
		},
		[]string{"status"}, // success, expired, not_found
	)

	// OTPValidations tracks one-time-password validation outcomes.
	OTPValidations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "otp_validations_total",
			Help:      "Total number of OTP validation attempts",
		},
		[]string{"status"}, // valid, invalid
	)

	// PendingReadsRemaining observes the pending_reads counter left after
	// a successful decrement, as a distribution rather than a single gauge
	// since many independent tracking rows exist concurrently.
	PendingReadsRemaining = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "pending_reads_remaining",
			Help:      "pending_reads value observed immediately after a successful decrement",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		},
	)

	// CleanupSweepDuration tracks the background expiry sweep.
	CleanupSweepDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "cleanup_sweep_duration_seconds",
			Help:      "Duration of the background expired-row cleanup sweep",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 4s
		},
	)
)
