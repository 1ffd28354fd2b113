// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	QueryTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_turns_total",
			Help: "Conversational turns answered, by effective intent",
		},
		[]string{"intent"},
	)

	QueryOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_outcomes_total",
			Help: "Turns answered with a non-success outcome, by error code",
		},
		[]string{"error_code"},
	)

	QueryTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_turn_duration_seconds",
			Help:    "Time spent answering one turn",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"intent"},
	)

	QueryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	QuerySessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_sessions_active",
			Help: "Conversation sessions currently held in memory",
		},
	)
)
