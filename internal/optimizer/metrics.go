package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// optimizationDuration tracks the time taken for a full optimization run.
	optimizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_run_duration_seconds",
		Help:    "Time taken for an optimization run by solver",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"solver"})

	// optimizationStatus counts runs by solve status.
	optimizationStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_runs_total",
		Help: "Total number of optimization runs by solver and status",
	}, []string{"solver", "status"})

	// optimizationErrors tracks runs that failed with an error.
	optimizationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_run_errors_total",
		Help: "Total number of optimization errors by stage",
	}, []string{"stage"}) // stage: validate, solve, extract

	// problemItems tracks the distribution of item counts.
	problemItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_problem_items_count",
		Help:    "Number of items in optimization problems",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500},
	})

	// problemRetailers tracks the distribution of retailer counts.
	problemRetailers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_problem_retailers_count",
		Help:    "Number of retailers in optimization problems",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// branchNodes tracks branch-and-bound nodes explored per run.
	branchNodes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_bnb_nodes_count",
		Help:    "Branch-and-bound nodes explored per run by solver",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	}, []string{"solver"})

	// surplusUnits tracks extra units bought to reach free shipping.
	surplusUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_surplus_units",
		Help:    "Units bought beyond desired quantities per run",
		Buckets: []float64{0, 1, 2, 5, 10, 50},
	})
)

// MetricsRecorder provides methods to record optimizer metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordOptimization records the duration and status of a completed run.
func (m *MetricsRecorder) RecordOptimization(solverID, status string, duration time.Duration) {
	optimizationDuration.WithLabelValues(solverID).Observe(duration.Seconds())
	optimizationStatus.WithLabelValues(solverID, status).Inc()
}

// RecordError records a run that failed at the given stage.
func (m *MetricsRecorder) RecordError(stage string) {
	optimizationErrors.WithLabelValues(stage).Inc()
}

// RecordProblemSize records the dimensions of a problem.
func (m *MetricsRecorder) RecordProblemSize(items, retailers int) {
	problemItems.Observe(float64(items))
	problemRetailers.Observe(float64(retailers))
}

// RecordNodes records the branch-and-bound nodes explored by a solve.
func (m *MetricsRecorder) RecordNodes(solverID string, nodes int) {
	branchNodes.WithLabelValues(solverID).Observe(float64(nodes))
}

// RecordSurplus records the total surplus units of a plan.
func (m *MetricsRecorder) RecordSurplus(units float64) {
	surplusUnits.Observe(units)
}
