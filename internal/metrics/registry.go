// Package metrics exposes Prometheus metrics for the gateway client core:
// envelope crypto operations, SRP login outcomes, socket session lifecycle,
// and request-router round-trip latency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gladys_gateway_client"

// Registry is the dedicated Prometheus registry every metric in this
// package is registered against, so embedding applications can mount it
// on their own /metrics endpoint without pulling in the global default
// registry's other collectors.
var Registry = prometheus.NewRegistry()
