package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SRPLoginAttempts tracks SRP login attempts by outcome.
	SRPLoginAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "srp",
			Name:      "login_attempts_total",
			Help:      "Total number of SRP login attempts by outcome",
		},
		[]string{"outcome"}, // success, wrong_password, server_impersonation, two_factor_required, transport_error, error
	)

	// SRPLoginDuration tracks end-to-end SRP login duration.
	SRPLoginDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "srp",
			Name:      "login_duration_seconds",
			Help:      "SRP three-round login duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)
