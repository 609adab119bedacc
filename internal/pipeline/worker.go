package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Worker fans a batch of items out over a bounded pool. Every item sees the
// same snapshot and a failing item never stops the batch.
type Worker struct {
	config WorkerConfig
	runs   RunStore
}

// NewWorker creates a new batch worker. runs may be nil when run tracking is
// not wanted.
func NewWorker(config WorkerConfig, runs RunStore) *Worker {
	return &Worker{config: config, runs: runs}
}

// Name is the run name recorded for this worker's batches.
func (w *Worker) Name() string {
	return w.config.Name
}

// Run processes items with fn and records the run. The returned error is only
// set when tracking could not start or the context was cancelled; per-item
// failures are reported in the result.
func (w *Worker) Run(ctx context.Context, items []domain.InventoryItem, snap engine.Snapshot, fn ItemFunc) (*BatchResult, error) {
	run, err := w.startRun(ctx, snap, len(items))
	if err != nil {
		return nil, fmt.Errorf("failed to create recompute run: %w", err)
	}

	log.Info().
		Str("pipeline", w.config.Name).
		Int64("run_id", run.ID).
		Int("items", len(items)).
		Bool("degraded", snap.Degraded()).
		Msg("starting batch")

	result := w.processParallel(ctx, items, snap, fn)
	result.RunID = run.ID

	now := time.Now()
	run.CompletedAt = &now
	run.SucceededItems = result.Succeeded
	run.FailedItems = result.Failed
	run.Status = StatusCompleted
	if ctxErr := ctx.Err(); ctxErr != nil {
		run.Status = StatusFailed
		run.ErrorMessage = ctxErr.Error()
	}
	w.updateRun(ctx, run)

	log.Info().
		Str("pipeline", w.config.Name).
		Int64("run_id", run.ID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("degraded", result.Degraded).
		Dur("elapsed", now.Sub(run.StartedAt)).
		Msg("batch finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	return result, nil
}

// processParallel processes items using a worker pool
func (w *Worker) processParallel(ctx context.Context, items []domain.InventoryItem, snap engine.Snapshot, fn ItemFunc) *BatchResult {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	var (
		succeeded = atomic.NewInt64(0)
		failed    = atomic.NewInt64(0)
		degraded  = atomic.NewInt64(0)
		mu        sync.Mutex
		failures  = make([]ItemFailure, 0)
	)

	markFailed := func(itemID string, err error) {
		failed.Inc()
		mu.Lock()
		failures = append(failures, ItemFailure{ItemID: itemID, Error: err.Error()})
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(workerCount)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			markFailed(item.ID, err)
			continue
		}

		g.Go(func() error {
			outcome, err := w.processItem(ctx, item, snap, fn)
			if err != nil {
				log.Error().
					Err(err).
					Str("pipeline", w.config.Name).
					Str("item_id", item.ID).
					Msg("item failed")
				markFailed(item.ID, err)
				return nil
			}
			succeeded.Inc()
			if outcome.Degraded {
				degraded.Inc()
			}
			return nil
		})
	}

	// Item errors are collected above, the group never returns one
	_ = g.Wait()

	return &BatchResult{
		Total:     len(items),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Degraded:  int(degraded.Load()),
		Failures:  failures,
	}
}

// processItem runs fn for one item, turning a panic into an item failure
func (w *Worker) processItem(ctx context.Context, item domain.InventoryItem, snap engine.Snapshot, fn ItemFunc) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing item %s: %v", item.ID, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	return fn(ctx, item, snap)
}

func (w *Worker) startRun(ctx context.Context, snap engine.Snapshot, total int) (*RecomputeRun, error) {
	run := &RecomputeRun{
		Name:       w.config.Name,
		Status:     StatusProcessing,
		Degraded:   snap.Degraded(),
		TotalItems: total,
		StartedAt:  time.Now(),
	}
	if snap.Config != nil {
		id := snap.Config.ID
		run.ConfigID = &id
	}

	if w.runs == nil {
		return run, nil
	}
	if err := w.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (w *Worker) updateRun(ctx context.Context, run *RecomputeRun) {
	if w.runs == nil {
		return
	}
	// The batch context may already be cancelled; the final status must still land.
	if err := w.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to update recompute run")
	}
}
