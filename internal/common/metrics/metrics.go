// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker runtime.
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
)

// Generation pipeline.
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimate_generations_total",
			Help: "Estimate generations by source (retrieval or placeholder-fallback) and result",
		},
		[]string{"source", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimate_generation_duration_seconds",
			Help:    "End-to-end generation time",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"source"},
	)

	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "estimate_confidence_score",
			Help:    "Confidence score assigned to generated estimates",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	RetrievalOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_outcomes_total",
			Help: "Similarity retrieval outcomes: ok, empty, timeout, error",
		},
		[]string{"outcome"},
	)

	MatchTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_tier_total",
			Help: "Draft items classified per matching tier",
		},
		[]string{"tier"},
	)

	PostFilterDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_post_filter_dropped_total",
			Help: "Items dropped by post-filter",
		},
		[]string{"filter"},
	)
)

// Estimate lifecycle.
var (
	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimate_transitions_total",
			Help: "Applied estimate status transitions",
		},
		[]string{"from", "to"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimate_submissions_total",
			Help: "Submit-to-expert calls by result (submitted, already_submitted)",
		},
		[]string{"result"},
	)

	HookFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimate_hook_failures_total",
			Help: "Post-commit hook failures",
		},
		[]string{"hook"},
	)
)

// Session bus.
var (
	BusEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_bus_events_published_total",
			Help: "Events published to the session bus",
		},
	)

	BusEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_bus_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)

	BusBacklogEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_bus_backlog_evicted_total",
			Help: "Backlog entries evicted by reason (capacity, ttl)",
		},
		[]string{"reason"},
	)

	BusSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_bus_subscribers",
			Help: "Live session bus subscribers",
		},
	)
)
