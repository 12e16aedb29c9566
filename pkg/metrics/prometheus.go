package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"MacroPulse/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal        prometheus.Counter
	runDuration      prometheus.Histogram
	anomalousPeriods prometheus.Gauge
	detectorDuration *prometheus.HistogramVec
	detectorFailures *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "macropulse_runs_total",
				Help: "Total number of consolidation runs",
			},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "macropulse_run_duration_seconds",
				Help:    "Duration of consolidation runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		anomalousPeriods: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "macropulse_anomalous_periods",
				Help: "Number of anomalous periods in the latest run",
			},
		),
		detectorDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropulse_detector_duration_seconds",
				Help:    "Per-detector evaluation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"detector"},
		),
		detectorFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_detector_failures_total",
				Help: "Total number of detector failures",
			},
			[]string{"detector"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRun records a completed consolidation run.
func (r *Recorder) RecordRun(seconds float64, anomalous int) {
	r.runsTotal.Inc()
	r.runDuration.Observe(seconds)
	r.anomalousPeriods.Set(float64(anomalous))
}

// RecordDetectorDuration records a detector's evaluation latency.
func (r *Recorder) RecordDetectorDuration(id models.DetectorID, seconds float64) {
	r.detectorDuration.WithLabelValues(string(id)).Observe(seconds)
}

// RecordDetectorFailure records a detector failure.
func (r *Recorder) RecordDetectorFailure(id models.DetectorID) {
	r.detectorFailures.WithLabelValues(string(id)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
