// Package jobmetrics instruments the asynq tasks that render queued report
// exports.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts export task runs by outcome, times each render and counts
// exports given up after their last retry.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	abandoned *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the export task collectors on registerer, or once on
// the default registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times one attempt at an export task.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts timing an attempt at the given task type. A nil Metrics
// yields a tracker that records nothing.
func (m *Metrics) Track(task string) *Tracker {
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End records the attempt's outcome and render time and returns err as is,
// so handlers can write `return tracker.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.task == "" {
		return err
	}
	outcome := "ready"
	if err != nil {
		outcome = "retry"
		t.metrics.failures.WithLabelValues(t.task).Inc()
	}
	t.metrics.runs.WithLabelValues(t.task, outcome).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	return err
}

// Abandoned counts an export marked failed after its final attempt.
func (m *Metrics) Abandoned(task string) {
	if m == nil || task == "" {
		return
	}
	m.abandoned.WithLabelValues(task).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_export_tasks_total",
		Help: "Export task attempts by task type and outcome.",
	}, []string{"task", "outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_export_task_failures_total",
		Help: "Export task attempts that returned an error.",
	}, []string{"task"})
	abandoned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_exports_abandoned_total",
		Help: "Exports marked failed after exhausting their retries.",
	}, []string{"task"})
	// Workbooks for large ledgers take tens of seconds to reconcile.
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_export_task_duration_seconds",
		Help:    "Time spent building the workbook for one export attempt.",
		Buckets: []float64{0.25, 1, 2.5, 5, 10, 30, 60, 180},
	}, []string{"task"})
	registerer.MustRegister(runs, failures, abandoned, duration)
	return &Metrics{runs: runs, failures: failures, abandoned: abandoned, duration: duration}
}
