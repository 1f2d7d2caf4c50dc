// Package search defines the narrow interface between grid-search drivers
// and grid-search engines: an objective function, a search space, and a
// configuration go in; result files in a result directory come out.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/STEPPE/internal/search/space"
)

// Point is a single cell of the search space: parameter name to value.
type Point map[string]float64

// ObjectiveFunc evaluates one point of the search space.
type ObjectiveFunc func(Point) (Outcome, error)

// Outcome is the result of one objective evaluation: the cost being
// minimized plus named diagnostic metrics.
type Outcome struct {
	Value   float64
	Metrics map[string]float64
}

// Evaluation records the outcome of the objective at one cell index.
type Evaluation struct {
	Index   int                `json:"index"`
	Params  Point              `json:"params"`
	Value   float64            `json:"value"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// ProgressUpdate is a per-batch progress snapshot for one rank.
type ProgressUpdate struct {
	Rank         int
	Completed    int
	Total        int
	Batches      int
	TotalBatches int
	BatchSeconds float64
	BestValue    float64
	BestIndex    int
	// Skipped marks a batch folded in from a previous run instead of
	// being evaluated.
	Skipped bool
}

// Result summarizes a completed run on one rank.
type Result struct {
	RunID          string
	Rank           int
	WorldSize      int
	SpaceSize      int
	ShardStart     int
	ShardEnd       int
	Evaluations    int
	Batches        int
	SkippedBatches int
	Best           *Evaluation
	Elapsed        time.Duration
	ResultDir      string
}

// Config contains configuration for a search engine.
type Config struct {
	// Objective function to evaluate at every cell of the shard.
	Objective ObjectiveFunc

	// Space to search over.
	Space *space.Space

	// Rank of this process and total number of cooperating processes.
	// Both come from the launcher; processes never communicate.
	Rank      int
	WorldSize int

	// BatchSize is the number of cells evaluated between result writes.
	BatchSize int

	// WorkerCount is the number of concurrent evaluation workers.
	// Defaults to the number of CPUs when zero.
	WorkerCount int

	// ResultDir is the directory result files are written to.
	ResultDir string

	// RunID identifies this run across all ranks.
	RunID string

	// Resume folds existing batch files into the run instead of
	// re-evaluating them.
	Resume bool

	// Progress receives per-batch updates when non-nil. Sends never block.
	Progress chan<- ProgressUpdate

	// Logger for engine internals. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Searcher defines the interface for search engines.
type Searcher interface {
	// Run executes the search over this rank's shard of the space.
	Run(ctx context.Context) (*Result, error)

	// Best returns the best evaluation found so far.
	Best() *Evaluation

	// Progress returns the number of completed cells and the shard size.
	Progress() (completed, total int)

	// Stop gracefully stops the search.
	Stop()
}

// ShardRange returns the half-open cell index range [start, end) assigned to
// rank out of world cooperating processes. Shards are contiguous, cover
// [0, total) exactly, and differ in size by at most one cell.
func ShardRange(total, rank, world int) (start, end int) {
	base := total / world
	rem := total % world

	start = rank*base + min(rank, rem)
	end = start + base
	if rank < rem {
		end++
	}
	return start, end
}
