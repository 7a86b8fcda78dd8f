// Package metrics exports task and progress metrics for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"termbot/internal/eventbus"
	"termbot/internal/task/engine"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	TaskRuns     *prometheus.CounterVec
	TaskAttempts *prometheus.CounterVec
	TaskRetries  *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	LastSuccess  *prometheus.GaugeVec
	Ticks        prometheus.Counter
	Progress     prometheus.Gauge
	Remaining    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		TaskRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbot_task_runs_total",
				Help: "Total number of dispatched runs by outcome",
			},
			[]string{"task", "outcome"},
		),
		TaskAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbot_task_attempts_total",
				Help: "Total number of task attempts, retries included",
			},
			[]string{"task"},
		),
		TaskRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbot_task_retries_total",
				Help: "Total number of retry delays entered",
			},
			[]string{"task"},
		),
		TaskDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termbot_task_duration_seconds",
				Help:    "Wall time of a run including retry delays",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 300, 600, 900, 1800},
			},
			[]string{"task", "outcome"},
		),
		LastSuccess: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "termbot_task_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
			[]string{"task"},
		),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "termbot_scheduler_ticks_total",
			Help: "Total number of scheduler polls",
		}),
		Progress: f.NewGauge(prometheus.GaugeOpts{
			Name: "termbot_progress_percent",
			Help: "Term progress computed by the most recent attempt",
		}),
		Remaining: f.NewGauge(prometheus.GaugeOpts{
			Name: "termbot_progress_remaining_units",
			Help: "Whole units remaining in the term at the most recent attempt",
		}),
	}
}

// Subscribe records engine lifecycle events from bus.
func (m *Metrics) Subscribe(bus eventbus.Bus) (unsubscribe func()) {
	return bus.Subscribe(m.observe)
}

func (m *Metrics) observe(e eventbus.Event) {
	ev, ok := e.Data.(engine.TaskEvent)
	if !ok {
		return
	}
	switch e.Type {
	case eventbus.TaskRetry:
		m.TaskRetries.WithLabelValues(ev.Name).Inc()
	case eventbus.TaskFinished, eventbus.TaskExhausted, eventbus.TaskCanceled:
		m.TaskRuns.WithLabelValues(ev.Name, ev.Outcome).Inc()
		m.TaskAttempts.WithLabelValues(ev.Name).Add(float64(ev.Attempt))
		m.TaskDuration.WithLabelValues(ev.Name, ev.Outcome).Observe(ev.Duration.Seconds())
		if e.Type == eventbus.TaskFinished {
			at := e.Time
			if at.IsZero() {
				at = time.Now()
			}
			m.LastSuccess.WithLabelValues(ev.Name).Set(float64(at.Unix()))
		}
	}
}

func (m *Metrics) RecordTick() { m.Ticks.Inc() }

func (m *Metrics) RecordProgress(percentage float64, remaining int) {
	m.Progress.Set(percentage)
	m.Remaining.Set(float64(remaining))
}
