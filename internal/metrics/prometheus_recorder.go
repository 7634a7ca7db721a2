package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of Recorder. It owns its registry,
// which the HTTP server exposes on /metrics.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	objectsWritten     *prometheus.CounterVec
	objectsSelected    *prometheus.CounterVec
	rowsAppended       *prometheus.CounterVec
}

// NewPrometheusRecorder creates a PrometheusRecorder with Go runtime and process
// collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecastpipe_run_duration_seconds",
			Help:    "Duration of fetch and ingestion runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"run", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecastpipe_runs_total",
			Help: "Total number of runs by status.",
		}, []string{"run", "status"}),
		objectsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecastpipe_objects_written_total",
			Help: "Total forecast objects written by grain.",
		}, []string{"grain"}),
		objectsSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecastpipe_objects_selected_total",
			Help: "Total objects selected for ingestion by grain.",
		}, []string{"grain"}),
		rowsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecastpipe_rows_appended_total",
			Help: "Total committed rows appended by grain.",
		}, []string{"grain"}),
	}

	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.objectsWritten)
	registry.MustRegister(r.objectsSelected)
	registry.MustRegister(r.rowsAppended)

	return r
}

// Registry returns the Prometheus registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRun implements Recorder.
func (r *PrometheusRecorder) RecordRun(_ context.Context, run, status string, duration time.Duration) {
	r.runStatusCounter.WithLabelValues(run, status).Inc()
	r.runDurationSeconds.WithLabelValues(run, status).Observe(duration.Seconds())
	logger.Debugf("Metrics: run '%s' finished with %s in %.3fs", run, status, duration.Seconds())
}

// RecordObjectsWritten implements Recorder.
func (r *PrometheusRecorder) RecordObjectsWritten(_ context.Context, grain string, count int) {
	r.objectsWritten.WithLabelValues(grain).Add(float64(count))
}

// RecordObjectsSelected implements Recorder.
func (r *PrometheusRecorder) RecordObjectsSelected(_ context.Context, grain string, count int) {
	r.objectsSelected.WithLabelValues(grain).Add(float64(count))
}

// RecordRowsAppended implements Recorder.
func (r *PrometheusRecorder) RecordRowsAppended(_ context.Context, grain string, count int64) {
	r.rowsAppended.WithLabelValues(grain).Add(float64(count))
}

var _ Recorder = (*PrometheusRecorder)(nil)
