// Package metrics provides Prometheus metrics for the Beacon alert engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks alert runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of alert runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks how long a full alert run takes
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "beacon",
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Duration of alert runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// CandidatesEvaluated counts buyers evaluated across all runs
	CandidatesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "engine",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of candidate buyers evaluated",
		},
	)

	// AccessDeniedTotal counts tier-gated denials by alert class
	AccessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "engine",
			Name:      "access_denied_total",
			Help:      "Total number of subscription tier denials",
		},
		[]string{"alert_class"},
	)

	// MatchScores observes the normalized match score distribution
	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "beacon",
			Subsystem: "matching",
			Name:      "score",
			Help:      "Distribution of normalized match scores",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 21),
		},
	)

	// AlertsTotal tracks dispatched alerts by status and class
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "dispatch",
			Name:      "alerts_total",
			Help:      "Total number of alert dispatch attempts by status",
		},
		[]string{"status", "alert_class"},
	)

	// AlertsDeduplicated counts sends suppressed by an existing alert record
	AlertsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "dispatch",
			Name:      "alerts_deduplicated_total",
			Help:      "Total number of alert sends suppressed as duplicates",
		},
	)
)
