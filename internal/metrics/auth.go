package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MagicLinksIssued tracks magic-link issuance requests.
	MagicLinksIssued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "magic_links_issued_total",
			Help:      "Total number of magic links issued",
		},
		[]string{"status"}, // success, failure
	)

	// MagicLinksConsumed tracks magic-link redemption attempts.
	MagicLinksConsumed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "magic_links_consumed_total",
			Help:      "Total number of magic-link redemption attempts",
		},
		[]string{"status"}, // success, expired, not_found, invalid
	)

	// LoginDuration tracks the duration of login-flow stages.
	LoginDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_duration_seconds",
			Help:      "Login stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"stage"}, // issue, consume
	)

	// ChannelViolations tracks requests that presented both a bearer token
	// and a refresh cookie, which spec invariant I3 forbids.
	ChannelViolations = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "channel_violations_total",
			Help:      "Total number of requests rejected for mixing bearer and cookie auth channels",
		},
	)
)
