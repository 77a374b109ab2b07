// Package metrics records scheduling runs in Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for schedule_runs_total.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the collectors for scheduling runs. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	tasks    prometheus.Histogram
	critical prometheus.Gauge
}

// NewRecorder registers the scheduling collectors on reg. A nil registerer
// defaults to the global Prometheus registerer; collectors already registered
// under the same name are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total number of scheduling runs by result",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_compute_seconds",
		Help:    "Time spent computing baseline and forecast passes",
		Buckets: prometheus.DefBuckets,
	})
	tasks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_tasks",
		Help:    "Number of tasks per scheduling run",
		Buckets: prometheus.ExponentialBuckets(8, 2, 10),
	})
	critical := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_critical_tasks",
		Help: "Number of critical tasks in the most recent forecast",
	})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if tasks, err = register(reg, tasks); err != nil {
		return nil, err
	}
	if critical, err = register(reg, critical); err != nil {
		return nil, err
	}
	return &Recorder{runs: runs, duration: duration, tasks: tasks, critical: critical}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRun records a successful run.
func (r *Recorder) ObserveRun(elapsed time.Duration, taskCount, criticalCount int) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(ResultOK).Inc()
	r.duration.Observe(elapsed.Seconds())
	r.tasks.Observe(float64(taskCount))
	r.critical.Set(float64(criticalCount))
}

// ObserveFailure records a failed run.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(ResultError).Inc()
	r.duration.Observe(elapsed.Seconds())
}
