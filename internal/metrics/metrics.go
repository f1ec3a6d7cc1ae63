// Package metrics provides Prometheus metrics for the inspection server.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Outcome labels for MessagesBuilt.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus metric collectors for the server.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	MessagesBuilt *prometheus.CounterVec
	UploadsTotal  *prometheus.CounterVec
	UploadBytes   prometheus.Counter
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shape_message_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shape_message_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shape_message_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		MessagesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shape_message_server_requests_built_total",
			Help: "Server request values assembled from inbound requests, by outcome.",
		}, []string{"outcome"}),

		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shape_message_uploads_total",
			Help: "Uploaded files seen, by upload error code and whether they were moved.",
		}, []string{"error_code", "moved"}),

		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shape_message_upload_bytes_total",
			Help: "Bytes of uploaded files moved into the upload directory.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.MessagesBuilt,
		m.UploadsTotal,
		m.UploadBytes,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other".
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/inspect", "/healthz", "/status", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
