package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/STEPPE/internal/search"
)

// Metrics holds the Prometheus collectors for one rank's search. Progress
// updates are cumulative, so the counters track the delta since the last
// observation.
type Metrics struct {
	evaluations    prometheus.Counter
	batches        prometheus.Counter
	skippedBatches prometheus.Counter
	bestCost       prometheus.Gauge
	progressRatio  prometheus.Gauge
	batchDuration  prometheus.Histogram

	lastCompleted int
	lastBatches   int
}

// NewMetrics creates and registers the search collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steppe_evaluations_total",
			Help: "Number of objective evaluations completed on this rank.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steppe_batches_total",
			Help: "Number of batches completed on this rank.",
		}),
		skippedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steppe_skipped_batches_total",
			Help: "Number of batches folded in from a previous run instead of evaluated.",
		}),
		bestCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steppe_best_cost",
			Help: "Best (lowest) objective value found so far on this rank.",
		}),
		progressRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steppe_progress_ratio",
			Help: "Fraction of this rank's shard completed, 0 to 1.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "steppe_batch_duration_seconds",
			Help:    "Wall-clock duration of evaluated batches.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	reg.MustRegister(
		m.evaluations,
		m.batches,
		m.skippedBatches,
		m.bestCost,
		m.progressRatio,
		m.batchDuration,
	)
	return m
}

// Observe folds one progress update into the collectors. It must be called
// from a single goroutine, which is how the driver drains the progress
// channel.
func (m *Metrics) Observe(update search.ProgressUpdate) {
	if delta := update.Completed - m.lastCompleted; delta > 0 {
		m.evaluations.Add(float64(delta))
		m.lastCompleted = update.Completed
	}
	if delta := update.Batches - m.lastBatches; delta > 0 {
		m.batches.Add(float64(delta))
		m.lastBatches = update.Batches
	}

	if update.Skipped {
		m.skippedBatches.Inc()
	} else {
		m.batchDuration.Observe(update.BatchSeconds)
	}

	if update.Completed > 0 {
		m.bestCost.Set(update.BestValue)
	}
	if update.Total > 0 {
		m.progressRatio.Set(float64(update.Completed) / float64(update.Total))
	}
}
