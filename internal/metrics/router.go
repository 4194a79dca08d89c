package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestRouterLatency tracks API-over-E2EE request/response latency.
	RequestRouterLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "request_duration_seconds",
			Help:      "RequestRouter request/response round-trip duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"status"}, // success, transport_error, api_error
	)

	// BroadcastRecipients tracks how many connected peers a broadcast
	// actually reached versus were skipped as disconnected.
	BroadcastRecipients = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "broadcast_recipients_total",
			Help:      "Total broadcast recipients by disposition",
		},
		[]string{"disposition"}, // sent, skipped_disconnected
	)
)
