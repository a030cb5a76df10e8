// Package metrics provides Prometheus collectors for claimdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "claimdesk"

var (
	// HTTPRequestsTotal counts requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds is request latency by route.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "route"},
	)

	// EvaluationsTotal counts pipeline runs by decision and whether they were persisted.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of claim evaluations by decision and mode.",
		},
		[]string{"decision", "mode"},
	)

	// EvaluationDurationSeconds is decision pipeline latency.
	EvaluationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Decision pipeline duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2.5, 10),
		},
	)

	// AssessmentsTotal counts applied damage assessments by severity and outcome.
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Total number of damage assessments applied by severity and decision.",
		},
		[]string{"severity", "decision"},
	)

	// AssessmentFailuresTotal counts damage model calls that fell back to unknown severity.
	AssessmentFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_failures_total",
			Help:      "Total number of damage model calls that failed.",
		},
	)

	// SnapshotCacheHitsTotal counts rule snapshot cache hits.
	SnapshotCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_hits_total",
			Help:      "Total number of rule snapshot cache hits.",
		},
	)

	// SnapshotCacheMissesTotal counts rule snapshot cache misses.
	SnapshotCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_misses_total",
			Help:      "Total number of rule snapshot cache misses.",
		},
	)

	// CacheRequestsTotal counts cache lookups by backend and result (hit, miss, error).
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Total number of cache lookups by backend and result.",
		},
		[]string{"backend", "result"},
	)

	// BusMessagesTotal counts event bus publishes by backend and topic.
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_published_total",
			Help:      "Total number of messages published to the event bus.",
		},
		[]string{"backend", "topic"},
	)

	// WorkerMessagesTotal counts bus messages handled by the worker by topic and result.
	WorkerMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_messages_total",
			Help:      "Total number of bus messages processed by the worker.",
		},
		[]string{"topic", "result"},
	)
)
