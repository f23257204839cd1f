package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Background tasks handled, labeled by task type and outcome",
	}, []string{"task_type", "outcome"})

	jobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Background task processing time",
		Buckets: prometheus.DefBuckets,
	}, []string{"task_type"})

	jobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "Background tasks submitted, labeled by task type and result",
	}, []string{"task_type", "result"})
)

// RecordJob counts one processed task; outcome is ok, error or dropped.
func RecordJob(taskType, outcome string, took time.Duration) {
	jobsProcessedTotal.WithLabelValues(taskType, outcome).Inc()
	jobDurationSeconds.WithLabelValues(taskType).Observe(took.Seconds())
}

// RecordJobEnqueue counts a task submission.
func RecordJobEnqueue(taskType string, ok bool) {
	jobsEnqueuedTotal.WithLabelValues(taskType, outcome(ok, "ok", "error")).Inc()
}
