package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "convscore"

// Pipeline Prometheus metrics.
var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Validation cycles by terminal state",
		},
		[]string{"state"}, // idle, finalized, aborted
	)

	WindowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Conversation windows processed by outcome",
		},
		[]string{"outcome"}, // rewarded, no_response
	)

	WorkerSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_submissions_total",
			Help:      "Window submissions to workers by outcome",
		},
		[]string{"outcome"}, // ok, error, timeout
	)

	WorkerSubmissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_submission_duration_seconds",
			Help:      "Worker submission latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	WorkerReward = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_reward",
			Help:      "Distribution of per-window worker rewards",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	TaggingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tagging_requests_total",
			Help:      "Total number of tagging engine requests",
		},
		[]string{"provider", "model", "status"},
	)

	TaggingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tagging_request_duration_seconds",
			Help:      "Tagging engine request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	TaggingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tagging_tokens_total",
			Help:      "Total tagging engine tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Tag embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers all package collectors with the default registry.
// Must be called once from main; repeated calls are no-ops.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CyclesTotal,
			WindowsTotal,
			WorkerSubmissionsTotal,
			WorkerSubmissionDuration,
			WorkerReward,
			TaggingRequestsTotal,
			TaggingRequestDuration,
			TaggingTokensTotal,
			EmbeddingCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
