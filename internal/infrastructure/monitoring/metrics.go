package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the marketplace backend.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Model task metrics (installed scan, search update, resolve, refresh)
	TasksTotal   *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec

	// Registry state metrics
	ExtensionsKnown     prometheus.Gauge
	ExtensionsInstalled prometheus.Gauge
	SearchResults       prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		TasksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_marketplace_tasks_total",
				Help: "Total number of marketplace model tasks",
			},
			[]string{"task", "status"},
		),
		TaskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_marketplace_task_duration_seconds",
				Help:    "Marketplace model task duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"task"},
		),

		ExtensionsKnown: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_marketplace_extensions_known",
				Help: "Number of extensions known to this session",
			},
		),
		ExtensionsInstalled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_marketplace_extensions_installed",
				Help: "Number of extensions currently reported installed",
			},
		),
		SearchResults: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_marketplace_search_results",
				Help: "Size of the most recent search result set",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTask records one completed model task.
func (m *Metrics) RecordTask(task, status string, duration time.Duration) {
	m.TasksTotal.WithLabelValues(task, status).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// SetRegistryState updates the registry gauges.
func (m *Metrics) SetRegistryState(known, installed, searchResults int) {
	m.ExtensionsKnown.Set(float64(known))
	m.ExtensionsInstalled.Set(float64(installed))
	m.SearchResults.Set(float64(searchResults))
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
