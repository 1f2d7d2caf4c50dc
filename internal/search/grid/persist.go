package grid

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/STEPPE/internal/search"
)

// batchRecord is the on-disk form of one completed batch. The layout is the
// engine's own concern: drivers only see files appear in the result
// directory.
type batchRecord struct {
	RunID       string              `json:"run_id"`
	Rank        int                 `json:"rank"`
	WorldSize   int                 `json:"world_size"`
	StartIndex  int                 `json:"start_index"`
	Count       int                 `json:"count"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Evaluations []search.Evaluation `json:"evaluations"`
}

// summaryRecord is the per-rank summary written after a successful run.
type summaryRecord struct {
	RunID          string             `json:"run_id"`
	Rank           int                `json:"rank"`
	WorldSize      int                `json:"world_size"`
	SpaceSize      int                `json:"space_size"`
	ShardStart     int                `json:"shard_start"`
	ShardEnd       int                `json:"shard_end"`
	Evaluations    int                `json:"evaluations"`
	Batches        int                `json:"batches"`
	SkippedBatches int                `json:"skipped_batches"`
	Best           *search.Evaluation `json:"best,omitempty"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Cost           *costStats         `json:"cost,omitempty"`
}

// costStats summarizes the cost distribution seen by one rank.
type costStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

func batchFileName(rank, batch int) string {
	return fmt.Sprintf("results_rank%04d_batch%05d.json", rank, batch)
}

func summaryFileName(rank int) string {
	return fmt.Sprintf("summary_rank%04d.json", rank)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func readBatch(path string) (*batchRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec batchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// computeCostStats returns summary statistics over the observed costs, or
// nil when no cells were evaluated.
func computeCostStats(values []float64) *costStats {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// Sample standard deviation is NaN for a single value, and NaN does not
	// survive JSON encoding.
	stdDev := 0.0
	if len(values) > 1 {
		stdDev = stat.StdDev(values, nil)
	}

	return &costStats{
		Mean:   stat.Mean(values, nil),
		StdDev: stdDev,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}
