// Package metrics provides Prometheus metrics for aeco-patch-configurator.
//
// All series describe the single background generation task: how often it
// was started or rejected, how it finished, and how long it took.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for patchcfg_tasks_finished_total.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultLost    = "lost"
)

// Collector owns the task metrics. Each Collector carries its own metric
// instances, so several can coexist on separate registries.
type Collector struct {
	tasksStarted  prometheus.Counter
	tasksRejected prometheus.Counter
	tasksFinished *prometheus.CounterVec
	taskRunning   prometheus.Gauge
	taskDuration  prometheus.Histogram
}

// NewCollectorWithRegistry creates a collector registered on registry.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	c := &Collector{
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchcfg_tasks_started_total",
			Help: "Generation tasks started",
		}),
		tasksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchcfg_tasks_rejected_total",
			Help: "Start requests dropped because a task was already running",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchcfg_tasks_finished_total",
			Help: "Generation tasks drained by the poller, by result",
		}, []string{"result"}),
		taskRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchcfg_task_running",
			Help: "1 while a generation task is outstanding",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patchcfg_task_duration_seconds",
			Help:    "Wall time of finished generation tasks",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
	}

	registry.MustRegister(
		c.tasksStarted,
		c.tasksRejected,
		c.tasksFinished,
		c.taskRunning,
		c.taskDuration,
	)

	// Pre-create result series so dashboards see zeros.
	for _, r := range []string{ResultSuccess, ResultFailure, ResultLost} {
		c.tasksFinished.WithLabelValues(r)
	}

	return c
}

// TaskStarted records a task launch.
func (c *Collector) TaskStarted() {
	c.tasksStarted.Inc()
	c.taskRunning.Set(1)
}

// TaskRejected records a start request that was dropped.
func (c *Collector) TaskRejected() {
	c.tasksRejected.Inc()
}

// TaskFinished records a drained outcome. Lost tasks have no meaningful
// duration and are not observed in the histogram.
func (c *Collector) TaskFinished(result string, d time.Duration) {
	c.tasksFinished.WithLabelValues(result).Inc()
	c.taskRunning.Set(0)
	if result != ResultLost {
		c.taskDuration.Observe(d.Seconds())
	}
}
