package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "callmanager"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Ingestion metrics
	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sync_records_total",
			Help: "Records processed by the ingestion pipeline, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	SyncBatchSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_sync_batch_seconds",
			Help:    "Wall time of one ingestion batch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
		[]string{"kind"},
	)

	SyncCommitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sync_commit_failures_total",
			Help: "Ingestion batches whose commit failed and were rolled back",
		},
		[]string{"kind"},
	)

	// Access guard metrics
	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_access_denied_total",
			Help: "Requests rejected by the tenant access guard, by reason",
		},
		[]string{"reason"},
	)

	// Analytics cache
	AnalyticsCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_analytics_cache_total",
			Help: "Analytics report cache lookups",
		},
		[]string{"result"},
	)
)

// Record outcomes used as the "outcome" label.
const (
	OutcomeSaved     = "saved"
	OutcomeMerged    = "merged"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)
