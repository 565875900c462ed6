// Package monitoring provides Prometheus metrics for the marketplace
// backend: HTTP request metrics, model task counters and durations,
// registry state gauges, and WebSocket connection tracking.
//
// Metrics are exposed on /metrics via promhttp.
package monitoring
