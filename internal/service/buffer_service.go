package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/rs/zerolog/log"
)

const defaultRunLimit = 20

// BufferService evaluates items and recomputes their persisted buffer state.
type BufferService struct {
	items    repository.InventoryRepository
	configs  repository.ConfigRepository
	signals  repository.SignalRepository
	provider *ConfigProvider
	engine   *engine.Engine
	worker   *pipeline.Worker
	runs     pipeline.RunStore
	cache    cache.SummaryCache
}

func NewBufferService(
	items repository.InventoryRepository,
	configs repository.ConfigRepository,
	signals repository.SignalRepository,
	provider *ConfigProvider,
	worker *pipeline.Worker,
	runs pipeline.RunStore,
	cacheImpl cache.SummaryCache,
) *BufferService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	return &BufferService{
		items:    items,
		configs:  configs,
		signals:  signals,
		provider: provider,
		engine:   engine.New(),
		worker:   worker,
		runs:     runs,
		cache:    cacheImpl,
	}
}

// Engine exposes the calculators shared with the order and compliance services.
func (s *BufferService) Engine() *engine.Engine {
	return s.engine
}

// Evaluate computes the current buffer state of one item without persisting it.
func (s *BufferService) Evaluate(ctx context.Context, itemID string) (*engine.Evaluation, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	ev, err := s.evaluate(ctx, *item, s.provider.Snapshot(ctx))
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// EvaluateAll evaluates every matching item against one snapshot. Any failure
// fails the whole call. A priority filter matches the freshly computed
// priority, not the persisted one.
func (s *BufferService) EvaluateAll(ctx context.Context, filter domain.ItemFilter) ([]engine.Evaluation, error) {
	items, err := s.items.ListItems(ctx, domain.ItemFilter{LocationID: filter.LocationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	snap := s.provider.Snapshot(ctx)
	evaluations := make([]engine.Evaluation, 0, len(items))
	for _, item := range items {
		ev, err := s.evaluate(ctx, item, snap)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ID, err)
		}
		if filter.Priority != "" && ev.Health.Priority != filter.Priority {
			continue
		}
		evaluations = append(evaluations, ev)
	}
	return evaluations, nil
}

// RecomputeAll recomputes and persists every matching item. All items share
// one configuration snapshot taken before the first item is processed.
func (s *BufferService) RecomputeAll(ctx context.Context, filter domain.ItemFilter) (*pipeline.BatchResult, error) {
	items, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	snap := s.provider.Snapshot(ctx)
	result, err := s.worker.Run(ctx, items, snap, s.recomputeItem)

	// Invalidate even on cancellation, some items may have been written
	if cacheErr := s.cache.InvalidateAll(context.WithoutCancel(ctx)); cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("buffers: cache invalidate summary failed")
	}
	return result, err
}

func (s *BufferService) recomputeItem(ctx context.Context, item domain.InventoryItem, snap engine.Snapshot) (pipeline.Outcome, error) {
	ev, err := s.evaluate(ctx, item, snap)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	if err := s.items.UpdateComputed(ctx, item.ID, ev.Computed(time.Now().UTC())); err != nil {
		return pipeline.Outcome{}, err
	}
	return pipeline.Outcome{Degraded: ev.Zones.Degraded()}, nil
}

// PrioritySummary counts items per planning priority, cached until the next recompute.
func (s *BufferService) PrioritySummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, error) {
	if summary, ok, err := s.cache.GetSummary(ctx, locationID); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("buffers: cache get summary failed")
	}

	summary, err := s.items.PrioritySummary(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = make([]domain.PrioritySummary, 0)
	}

	if err := s.cache.SetSummary(ctx, locationID, summary); err != nil {
		log.Warn().Err(err).Msg("buffers: cache set summary failed")
	}
	return summary, nil
}

// Runs lists recompute runs only; planning batches share the store.
func (s *BufferService) Runs(ctx context.Context, limit int) ([]pipeline.RecomputeRun, error) {
	return listRuns(ctx, s.runs, s.worker.Name(), limit)
}

func (s *BufferService) Run(ctx context.Context, id int64) (*pipeline.RecomputeRun, error) {
	return getRun(ctx, s.runs, s.worker.Name(), id)
}

func listRuns(ctx context.Context, runs pipeline.RunStore, name string, limit int) ([]pipeline.RecomputeRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	return runs.ListRuns(ctx, name, limit)
}

func getRun(ctx context.Context, runs pipeline.RunStore, name string, id int64) (*pipeline.RecomputeRun, error) {
	run, err := runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Name != name {
		return nil, fmt.Errorf("%s run %d: %w", name, id, domain.ErrNotFound)
	}
	return run, nil
}

func (s *BufferService) evaluate(ctx context.Context, item domain.InventoryItem, snap engine.Snapshot) (engine.Evaluation, error) {
	in, err := s.resolveInput(ctx, item)
	if err != nil {
		return engine.Evaluation{}, err
	}

	ev := s.engine.Evaluate(in, snap)
	if ev.Zones.Degraded() {
		log.Warn().
			Str("item_id", item.ID).
			Str("sku", item.SKU).
			Str("mode", string(ev.Zones.Mode)).
			Msg("zones computed with degraded ratios")
	}
	return ev, nil
}

// resolveInput gathers the profile constraints and supply signals of an item.
// A location without a decoupling point, or a point without a profile, means
// no ordering constraints.
func (s *BufferService) resolveInput(ctx context.Context, item domain.InventoryItem) (engine.Input, error) {
	in := engine.Input{Item: item}

	dp, err := s.configs.GetDecouplingPointByLocation(ctx, item.LocationID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return in, fmt.Errorf("failed to resolve decoupling point: %w", err)
	default:
		profile, err := s.configs.GetBufferProfile(ctx, dp.BufferProfileID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Warn().
				Int64("profile_id", dp.BufferProfileID).
				Str("location_id", item.LocationID).
				Msg("decoupling point references a missing buffer profile")
		case err != nil:
			return in, fmt.Errorf("failed to resolve buffer profile: %w", err)
		default:
			in.Profile = profile
		}
	}

	signals, err := s.signals.GetSupplySignals(ctx, item.ID)
	if err != nil {
		return in, fmt.Errorf("failed to get supply signals: %w", err)
	}
	in.Signals = signals
	return in, nil
}
