package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emi_evaluations_total",
			Help: "Completed evaluations by outcome",
		},
		[]string{"outcome"},
	)

	EvaluationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emi_evaluation_failures_total",
			Help: "Evaluations aborted by a failed model call, by stage",
		},
		[]string{"stage"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emi_evaluation_duration_seconds",
			Help:    "End-to-end evaluation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emi_model_inference_duration_seconds",
			Help:    "Scoring server round trip per model",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "status"},
	)

	MaxEMIAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emi_max_amount",
			Help:    "Maximum EMI returned to eligible applicants",
			Buckets: []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000},
		},
	)

	ModelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emi_model_cache_lookups_total",
			Help: "Model resolution cache lookups by result",
		},
		[]string{"result"},
	)

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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
