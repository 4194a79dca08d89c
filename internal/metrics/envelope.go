package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnvelopeOperations tracks MessageEnvelope encrypt/decrypt calls.
	EnvelopeOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "operations_total",
			Help:      "Total number of envelope encrypt/decrypt operations",
		},
		[]string{"operation", "status"}, // encrypt/decrypt, success/failure
	)

	// EnvelopeRejections tracks decrypt rejections by reason.
	EnvelopeRejections = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "rejections_total",
			Help:      "Total number of envelope decrypt rejections by reason",
		},
		[]string{"reason"}, // bad_signature, tampered, stale
	)

	// EnvelopeOperationDuration tracks envelope operation durations.
	EnvelopeOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "operation_duration_seconds",
			Help:      "Envelope operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15),
		},
		[]string{"operation"},
	)
)
