// Package grid implements an exhaustive grid-search engine. Each engine
// evaluates the contiguous shard of the search space assigned to its rank
// and writes batch result files plus a per-rank summary to the result
// directory. Ranks never communicate; result files are merged offline.
package grid

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/STEPPE/internal/search"
)

const defaultBatchSize = 128

// Engine runs an exhaustive search over one rank's shard of the space.
// It implements search.Searcher.
type Engine struct {
	cfg    search.Config
	logger *zap.Logger

	shardStart int
	shardEnd   int

	mu        sync.RWMutex
	best      *search.Evaluation
	completed int
	cancel    context.CancelFunc
}

// New creates a grid-search engine for the given configuration. It validates
// the configuration and applies defaults: batch size 128 and one worker per
// CPU when unset.
func New(cfg search.Config) (*Engine, error) {
	const op = "grid.New"

	if cfg.Objective == nil {
		return nil, search.NewError("objective function is required").WithComponent("grid").WithOperation(op)
	}
	if cfg.Space == nil {
		return nil, search.NewError("search space is required").WithComponent("grid").WithOperation(op)
	}
	if cfg.WorldSize < 1 {
		return nil, search.NewErrorf("world size must be at least 1, got %d", cfg.WorldSize).
			WithComponent("grid").WithOperation(op)
	}
	if cfg.Rank < 0 || cfg.Rank >= cfg.WorldSize {
		return nil, search.NewErrorf("rank %d out of range for world size %d", cfg.Rank, cfg.WorldSize).
			WithComponent("grid").WithOperation(op)
	}
	if cfg.BatchSize < 0 {
		return nil, search.NewErrorf("batch size must not be negative, got %d", cfg.BatchSize).
			WithComponent("grid").WithOperation(op)
	}
	if cfg.ResultDir == "" {
		return nil, search.NewError("result directory is required").WithComponent("grid").WithOperation(op)
	}

	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start, end := search.ShardRange(cfg.Space.Size(), cfg.Rank, cfg.WorldSize)

	return &Engine{
		cfg:        cfg,
		logger:     logger.Named("grid"),
		shardStart: start,
		shardEnd:   end,
	}, nil
}

// Run executes the search over this rank's shard. It evaluates the shard in
// fixed-size batches, writing one result file per batch and a per-rank
// summary after the final batch.
func (e *Engine) Run(ctx context.Context) (*search.Result, error) {
	const op = "Engine.Run"
	runStart := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if err := os.MkdirAll(e.cfg.ResultDir, 0o755); err != nil {
		return nil, search.WrapError(err, "failed to create result directory").
			WithComponent("grid").WithOperation(op)
	}

	shardSize := e.shardEnd - e.shardStart
	totalBatches := (shardSize + e.cfg.BatchSize - 1) / e.cfg.BatchSize

	e.logger.Info("starting shard",
		zap.Int("rank", e.cfg.Rank),
		zap.Int("world_size", e.cfg.WorldSize),
		zap.Int("shard_start", e.shardStart),
		zap.Int("shard_end", e.shardEnd),
		zap.Int("batches", totalBatches),
		zap.Int("workers", e.cfg.WorkerCount),
		zap.Bool("resume", e.cfg.Resume))

	values := make([]float64, 0, shardSize)
	batches := 0
	skipped := 0

	for batch := 0; batch < totalBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return nil, search.WrapError(err, "search aborted").WithComponent("grid").WithOperation(op)
		}

		batchStart := e.shardStart + batch*e.cfg.BatchSize
		count := min(e.cfg.BatchSize, e.shardEnd-batchStart)
		path := filepath.Join(e.cfg.ResultDir, batchFileName(e.cfg.Rank, batch))

		if e.cfg.Resume {
			if evals, ok := e.loadCompletedBatch(path, batchStart, count); ok {
				e.record(evals)
				for _, ev := range evals {
					values = append(values, ev.Value)
				}
				batches++
				skipped++
				e.publishProgress(batches, totalBatches, 0, true)
				e.logger.Debug("batch folded from previous run",
					zap.Int("batch", batch),
					zap.Int("start_index", batchStart))
				continue
			}
		}

		started := time.Now()
		evals, err := e.evaluateBatch(ctx, batchStart, count)
		if err != nil {
			return nil, err
		}

		rec := batchRecord{
			RunID:       e.cfg.RunID,
			Rank:        e.cfg.Rank,
			WorldSize:   e.cfg.WorldSize,
			StartIndex:  batchStart,
			Count:       count,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Evaluations: evals,
		}
		if err := writeJSON(path, rec); err != nil {
			return nil, search.WrapErrorf(err, "failed to write batch file %s", path).
				WithComponent("grid").WithOperation(op)
		}

		e.record(evals)
		for _, ev := range evals {
			values = append(values, ev.Value)
		}
		batches++

		elapsed := time.Since(started)
		e.publishProgress(batches, totalBatches, elapsed.Seconds(), false)
		e.logger.Debug("batch completed",
			zap.Int("batch", batch),
			zap.Int("start_index", batchStart),
			zap.Int("count", count),
			zap.Duration("elapsed", elapsed))
	}

	best := e.Best()
	result := &search.Result{
		RunID:          e.cfg.RunID,
		Rank:           e.cfg.Rank,
		WorldSize:      e.cfg.WorldSize,
		SpaceSize:      e.cfg.Space.Size(),
		ShardStart:     e.shardStart,
		ShardEnd:       e.shardEnd,
		Evaluations:    len(values),
		Batches:        batches,
		SkippedBatches: skipped,
		Best:           best,
		Elapsed:        time.Since(runStart),
		ResultDir:      e.cfg.ResultDir,
	}

	summary := summaryRecord{
		RunID:          result.RunID,
		Rank:           result.Rank,
		WorldSize:      result.WorldSize,
		SpaceSize:      result.SpaceSize,
		ShardStart:     result.ShardStart,
		ShardEnd:       result.ShardEnd,
		Evaluations:    result.Evaluations,
		Batches:        result.Batches,
		SkippedBatches: result.SkippedBatches,
		Best:           best,
		ElapsedSeconds: result.Elapsed.Seconds(),
		Cost:           computeCostStats(values),
	}
	summaryPath := filepath.Join(e.cfg.ResultDir, summaryFileName(e.cfg.Rank))
	if err := writeJSON(summaryPath, summary); err != nil {
		return nil, search.WrapErrorf(err, "failed to write summary file %s", summaryPath).
			WithComponent("grid").WithOperation(op)
	}

	fields := []zap.Field{
		zap.Int("rank", e.cfg.Rank),
		zap.Int("evaluations", result.Evaluations),
		zap.Int("batches", result.Batches),
		zap.Int("skipped_batches", result.SkippedBatches),
		zap.Duration("elapsed", result.Elapsed),
	}
	if best != nil {
		fields = append(fields, zap.Float64("best_value", best.Value), zap.Int("best_index", best.Index))
	}
	e.logger.Info("shard completed", fields...)

	return result, nil
}

// evaluateBatch evaluates count cells starting at the given cell index on a
// bounded worker pool. Workers write to disjoint slice positions, so no
// locking is needed inside the batch.
func (e *Engine) evaluateBatch(ctx context.Context, start, count int) ([]search.Evaluation, error) {
	const op = "Engine.evaluateBatch"

	evals := make([]search.Evaluation, count)
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)

	workers := min(e.cfg.WorkerCount, count)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for offset := range jobs {
				index := start + offset
				params := e.cfg.Space.At(index)
				outcome, err := e.cfg.Objective(params)
				if err != nil {
					return search.WrapErrorf(err, "objective failed at cell %d", index).
						WithComponent("grid").WithOperation(op)
				}
				evals[offset] = search.Evaluation{
					Index:   index,
					Params:  params,
					Value:   outcome.Value,
					Metrics: outcome.Metrics,
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for offset := 0; offset < count; offset++ {
			select {
			case jobs <- offset:
			case <-gctx.Done():
				return search.WrapError(gctx.Err(), "batch aborted").
					WithComponent("grid").WithOperation(op)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

// loadCompletedBatch reads an existing batch file and reports whether it can
// stand in for the batch at the given start index. Unreadable or mismatched
// files are re-evaluated and overwritten.
func (e *Engine) loadCompletedBatch(path string, start, count int) ([]search.Evaluation, bool) {
	rec, err := readBatch(path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("unreadable batch file, re-evaluating",
				zap.String("path", path),
				zap.Error(err))
		}
		return nil, false
	}

	if rec.StartIndex != start || rec.Count != count || rec.WorldSize != e.cfg.WorldSize ||
		len(rec.Evaluations) != count {
		e.logger.Warn("batch file does not match current run, re-evaluating",
			zap.String("path", path),
			zap.Int("file_start_index", rec.StartIndex),
			zap.Int("expected_start_index", start),
			zap.Int("file_world_size", rec.WorldSize),
			zap.Int("expected_world_size", e.cfg.WorldSize))
		return nil, false
	}

	return rec.Evaluations, true
}

// record folds a batch of evaluations into the best/progress snapshot.
func (e *Engine) record(evals []search.Evaluation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range evals {
		if e.best == nil || evals[i].Value < e.best.Value {
			best := evals[i]
			e.best = &best
		}
	}
	e.completed += len(evals)
}

// publishProgress sends a progress update without blocking: a slow or absent
// consumer never stalls the search.
func (e *Engine) publishProgress(batches, totalBatches int, batchSeconds float64, skippedBatch bool) {
	if e.cfg.Progress == nil {
		return
	}

	completed, total := e.Progress()
	update := search.ProgressUpdate{
		Rank:         e.cfg.Rank,
		Completed:    completed,
		Total:        total,
		Batches:      batches,
		TotalBatches: totalBatches,
		BatchSeconds: batchSeconds,
		Skipped:      skippedBatch,
	}
	if best := e.Best(); best != nil {
		update.BestValue = best.Value
		update.BestIndex = best.Index
	}

	select {
	case e.cfg.Progress <- update:
	default:
	}
}

// Best returns a copy of the best evaluation found so far, or nil before the
// first batch completes.
func (e *Engine) Best() *search.Evaluation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.best == nil {
		return nil
	}
	best := *e.best
	return &best
}

// Progress returns the number of completed cells and the shard size.
func (e *Engine) Progress() (completed, total int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.completed, e.shardEnd - e.shardStart
}

// Stop cancels a running search. It is safe to call before Run and from any
// goroutine.
func (e *Engine) Stop() {
	e.mu.RLock()
	cancel := e.cancel
	e.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}
