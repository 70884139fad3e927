// Package middleware provides cross-cutting concerns for the verification
// pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veridoc/veridoc/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of detector traffic,
// verification outcomes, and score distributions.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	scoreHistogram   *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veridoc_operation_duration_seconds",
				Help:    "Execution time of verification operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "provider", "status"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veridoc_operations_total",
				Help: "Total number of verification operations by outcome.",
			},
			[]string{"operation", "provider", "status"},
		),
		scoreHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veridoc_score_distribution",
				Help:    "Distribution of detection scores on the 0-100 scale.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"metric", "provider"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "veridoc_system_state",
				Help: "Current system state values for the verification pipeline.",
			},
			[]string{"metric", "provider"},
		),
	}
}

// label returns labels[key], falling back when the caller did not set it.
func label(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(
		operation,
		label(labels, "provider", "pipeline"),
		label(labels, "status", "ok"),
	).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	pm.operationCounter.WithLabelValues(
		metric,
		label(labels, "provider", "pipeline"),
		label(labels, "status", "ok"),
	).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(
		metric,
		label(labels, "provider", "pipeline"),
	).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// score values in the 0-100 distribution histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.scoreHistogram.WithLabelValues(
		metric,
		label(labels, "provider", "pipeline"),
	).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
