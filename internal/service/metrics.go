package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pipelineTotal counts publish pipeline operations by outcome
	pipelineTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articles",
			Name:      "pipeline_operations_total",
			Help:      "Total number of publish pipeline operations",
		},
		[]string{"operation", "result"},
	)

	// pipelineDuration measures publish pipeline operations
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "articles",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of publish pipeline operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// rollbacksTotal counts compensating actions run after a failed confirm
	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articles",
			Name:      "rollback_actions_total",
			Help:      "Total number of compensating actions executed",
		},
		[]string{"action", "result"},
	)

	// sweepRemovedTotal counts artifacts and rows cleaned up by the sweeper
	sweepRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articles",
			Name:      "sweep_removed_total",
			Help:      "Total number of expired artifacts and stale rows handled by the sweeper",
		},
		[]string{"target"},
	)
)

func recordOperation(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = string(AsError(err).Kind)
	}
	pipelineTotal.WithLabelValues(operation, result).Inc()
	pipelineDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
