package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_runs_total",
		Help: "Total number of runs submitted",
	})

	TasksSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_tasks_succeeded_total",
		Help: "Total number of tasks that reached the succeeded state",
	})

	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_tasks_failed_total",
		Help: "Total number of tasks that reached the failed state",
	})

	TasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_tasks_skipped_total",
		Help: "Total number of tasks skipped under fail-fast or cancellation",
	})

	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_retry_attempts_total",
		Help: "Total number of transport retry attempts",
	})

	BytesTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchmill_bytes_transferred_total",
		Help: "Total bytes received from remote origins",
	})

	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fetchmill_task_duration_seconds",
		Help:    "Task duration from admission to terminal state in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
