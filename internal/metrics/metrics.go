// Package metrics exposes Prometheus instrumentation for the recommendation and
// convergence pipelines on a dedicated registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector in this package plus Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Recommendation metrics
	BatchesGenerated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buybox_recommendation_batches_total",
			Help: "Recommendation batches generated, by status",
		},
		[]string{"status"}, // "ok", "no_properties_found"
	)

	RecommendationsReturned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "buybox_recommendations_returned_total",
			Help: "Properties returned across all recommendation batches",
		},
	)

	CandidatePoolSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "buybox_candidate_pool_size",
			Help:    "Number of candidates scored per market run",
			Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Convergence metrics
	ConvergenceRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buybox_convergence_runs_total",
			Help: "Convergence pipeline runs, by result",
		},
		[]string{"result"}, // "success", "error"
	)

	PhaseTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buybox_market_phase_transitions_total",
			Help: "Market phase transitions applied",
		},
		[]string{"from", "to"},
	)

	// Job metrics
	JobDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buybox_job_duration_seconds",
			Help:    "Wall time of weekly and convergence job runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"}, // "weekly", "convergence"
	)

	MarketConfidence = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "buybox_market_confidence",
			Help:    "Convergence confidence computed per market",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}
