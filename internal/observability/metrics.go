// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Launch pipeline stages, used as metric labels.
const (
	StageMetadata = "metadata"
	StageBuild    = "build"
	StageSubmit   = "submit"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Launch metrics
	LaunchesTotal   *prometheus.CounterVec
	LaunchDuration  prometheus.Histogram
	LaunchesRunning prometheus.Gauge

	// Stage metrics
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	// Network metrics
	RPCCallLatency       *prometheus.HistogramVec
	ConfirmationDuration prometheus.Histogram

	// Health metrics
	LastSuccessfulLaunch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_launcher"
	}

	return &Metrics{
		LaunchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "total",
			Help:      "Total number of launch attempts by final status",
		}, []string{"status"}),
		LaunchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "duration_seconds",
			Help:      "End-to-end launch duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		LaunchesRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "in_flight",
			Help:      "Number of launches currently in progress",
		}),

		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		StageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "errors_total",
			Help:      "Total number of stage failures by stage and error kind",
		}, []string{"stage", "kind"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from broadcast to confirmation in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),

		LastSuccessfulLaunch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_launch_timestamp",
			Help:      "Unix timestamp of last successful launch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// LaunchStarted increments the in-flight gauge.
func LaunchStarted() {
	DefaultMetrics.LaunchesRunning.Inc()
}

// RecordLaunch records a finished launch.
func RecordLaunch(status string, seconds float64, finishedAtUnix int64) {
	DefaultMetrics.LaunchesRunning.Dec()
	DefaultMetrics.LaunchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.LaunchDuration.Observe(seconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulLaunch.Set(float64(finishedAtUnix))
	}
}

// RecordStage records a stage duration and, when kind is non-empty, a stage failure.
func RecordStage(stage string, seconds float64, kind string) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
	if kind != "" {
		DefaultMetrics.StageErrors.WithLabelValues(stage, kind).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordConfirmation records the broadcast-to-confirmation latency.
func RecordConfirmation(seconds float64) {
	DefaultMetrics.ConfirmationDuration.Observe(seconds)
}
