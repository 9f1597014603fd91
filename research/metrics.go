package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_runs_total",
			Help: "Total number of research runs by outcome",
		},
		[]string{"status"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepresearch_stage_duration_seconds",
			Help:    "Workflow stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Search metrics
	providerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_provider_failures_total",
			Help: "Search provider calls converted into a degenerate result",
		},
	)

	droppedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_dropped_records_total",
			Help: "Raw search records discarded during normalization",
		},
	)
)

const (
	runStatusSuccess  = "success"
	runStatusDegraded = "degraded"
	runStatusFailed   = "failed"
)
