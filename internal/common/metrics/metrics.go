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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_queries_total",
			Help: "Natural-language queries by outcome",
		},
		[]string{"outcome"},
	)

	ProviderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_provider_operations_total",
			Help: "Provider gateway operations by platform, operation and status",
		},
		[]string{"platform", "operation", "status"},
	)

	ProviderOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudwise_provider_operation_duration_seconds",
			Help:    "Provider gateway operation latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"platform", "operation"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_llm_requests_total",
			Help: "Language model completions by purpose and status",
		},
		[]string{"purpose", "status"},
	)

	ParseDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_parse_degradations_total",
			Help: "Model responses that could only be partially parsed",
		},
		[]string{"parser"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_cache_lookups_total",
			Help: "Gateway cache lookups by result",
		},
		[]string{"operation", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudwise_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
