// ABOUTME: Prometheus metrics for the drum export service
// ABOUTME: Exports, failures by stage, preview decodes, sessions and HTTP traffic
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the export service
type Metrics struct {
	registry *prometheus.Registry

	// Export metrics
	Exports        prometheus.Counter
	ExportFailures *prometheus.CounterVec
	ExportDuration prometheus.Histogram
	ExportSize     prometheus.Histogram
	ExportSamples  prometheus.Histogram

	// Preview metrics
	PreviewDecodes  *prometheus.CounterVec
	PreviewDuration prometheus.Histogram
	StalePreviews   prometheus.Counter

	// Session metrics
	ActiveSessions prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Exports: f.NewCounter(prometheus.CounterOpts{
			Name: "op1drum_exports_total",
			Help: "Total number of drum kits exported",
		}),
		ExportFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "op1drum_export_failures_total",
			Help: "Total number of failed exports by pipeline stage",
		}, []string{"stage"}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "op1drum_export_duration_seconds",
			Help:    "Duration of export pipelines",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}),
		ExportSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "op1drum_export_size_bytes",
			Help:    "Size of exported drum files",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~2MB
		}),
		ExportSamples: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "op1drum_export_samples",
			Help:    "Number of samples per exported kit",
			Buckets: prometheus.LinearBuckets(1, 1, 24),
		}),

		PreviewDecodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "op1drum_preview_decodes_total",
			Help: "Total number of slot preview decodes by result",
		}, []string{"result"}),
		PreviewDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "op1drum_preview_duration_seconds",
			Help:    "Time spent decoding slot previews",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		StalePreviews: f.NewCounter(prometheus.CounterOpts{
			Name: "op1drum_stale_previews_total",
			Help: "Previews dropped because their slot was replaced",
		}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "op1drum_active_sessions",
			Help: "Current number of editor sessions",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "op1drum_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "op1drum_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordExport records a successful export
func (m *Metrics) RecordExport(samples, bytes int, durationSeconds float64) {
	m.Exports.Inc()
	m.ExportSamples.Observe(float64(samples))
	m.ExportSize.Observe(float64(bytes))
	m.ExportDuration.Observe(durationSeconds)
}

// RecordExportFailure records a failed export at stage
func (m *Metrics) RecordExportFailure(stage string, durationSeconds float64) {
	m.ExportFailures.WithLabelValues(stage).Inc()
	m.ExportDuration.Observe(durationSeconds)
}

// RecordPreview records a finished slot preview decode
func (m *Metrics) RecordPreview(ok bool, durationSeconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.PreviewDecodes.WithLabelValues(result).Inc()
	m.PreviewDuration.Observe(durationSeconds)
}

// RecordStalePreview records a preview dropped for an outdated slot
func (m *Metrics) RecordStalePreview() {
	m.StalePreviews.Inc()
}

// SetActiveSessions sets the current number of sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
