package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SocketState tracks the current SocketSession state as a gauge per
	// named state (1 for the active state, 0 otherwise), mirroring the
	// state machine in the session design.
	SocketState = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "state",
			Help:      "Current SocketSession state (1 = active)",
		},
		[]string{"state"}, // disconnected, connecting, transport_up, authenticating, ready, closed
	)

	// SocketReconnects counts reconnection attempts.
	SocketReconnects = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "reconnects_total",
			Help:      "Total number of socket reconnect attempts",
		},
		[]string{"initiator"}, // server, client
	)

	// SocketFramesDispatched counts inbound frames dispatched by event name.
	SocketFramesDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "frames_dispatched_total",
			Help:      "Total number of inbound socket frames dispatched by event",
		},
		[]string{"event"},
	)
)
