package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobRunsTotal,
		jobDurationSeconds,
	)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Periodic job runs, labeled by job name and outcome.",
		},
		[]string{"job", "outcome"}, // 'ok', 'error'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Periodic job run duration distribution.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func ObserveJobRun(job string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	jobRunsTotal.WithLabelValues(norm(job), outcome).Inc()
	jobDurationSeconds.WithLabelValues(norm(job)).Observe(d.Seconds())
}
