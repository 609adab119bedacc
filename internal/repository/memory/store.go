// Package memory keeps every repository in process. It backs the tests and
// the server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.RWMutex

	configs  []domain.BufferFactorConfig
	profiles map[int64]domain.BufferProfile
	points   map[int64]domain.DecouplingPoint
	items    map[string]domain.InventoryItem
	signals  map[string]domain.SupplySignals
	orders   map[string]domain.ReplenishmentOrder
	runs     []pipeline.RecomputeRun

	// failures injects errors, keyed by operation name, for tests.
	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[int64]domain.BufferProfile),
		points:   make(map[int64]domain.DecouplingPoint),
		items:    make(map[string]domain.InventoryItem),
		signals:  make(map[string]domain.SupplySignals),
		orders:   make(map[string]domain.ReplenishmentOrder),
		failures: make(map[string]error),
	}
}

// FailOn makes op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

func (s *Store) PutItem(item domain.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

func (s *Store) PutProfile(p domain.BufferProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *Store) PutDecouplingPoint(dp domain.DecouplingPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[dp.ID] = dp
}

func (s *Store) PutSignals(sig domain.SupplySignals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sig.ItemID] = sig
}

// ConfigRepository

func (s *Store) GetActiveConfig(ctx context.Context) (*domain.BufferFactorConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetActiveConfig"); err != nil {
		return nil, err
	}
	for i := len(s.configs) - 1; i >= 0; i-- {
		if s.configs[i].IsActive {
			cfg := s.configs[i]
			return &cfg, nil
		}
	}
	return nil, fmt.Errorf("active config: %w", domain.ErrNotFound)
}

func (s *Store) ActivateConfig(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ActivateConfig"); err != nil {
		return err
	}
	for i := range s.configs {
		s.configs[i].IsActive = false
	}
	cfg.ID = int64(len(s.configs) + 1)
	cfg.IsActive = true
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	s.configs = append(s.configs, *cfg)
	return nil
}

func (s *Store) ListConfigs(ctx context.Context, limit int) ([]domain.BufferFactorConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BufferFactorConfig, 0, len(s.configs))
	for i := len(s.configs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.configs[i])
	}
	return out, nil
}

func (s *Store) GetBufferProfile(ctx context.Context, id int64) (*domain.BufferProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("buffer profile %d: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetDecouplingPoint(ctx context.Context, id int64) (*domain.DecouplingPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dp, ok := s.points[id]
	if !ok {
		return nil, fmt.Errorf("decoupling point %d: %w", id, domain.ErrNotFound)
	}
	return &dp, nil
}

func (s *Store) GetDecouplingPointByLocation(ctx context.Context, locationID string) (*domain.DecouplingPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, dp := range s.points {
		if dp.LocationID == locationID {
			return &dp, nil
		}
	}
	return nil, fmt.Errorf("decoupling point for %s: %w", locationID, domain.ErrNotFound)
}

// InventoryRepository

func (s *Store) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListItems"); err != nil {
		return nil, err
	}
	out := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if filter.LocationID != "" && item.LocationID != filter.LocationID {
			continue
		}
		if filter.Priority != "" && item.PlanningPriority != filter.Priority {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateComputed(ctx context.Context, id string, f domain.ComputedFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateComputed:" + id); err != nil {
		return err
	}
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	at := f.ComputedAt
	item.BufferZones = f.Zones
	item.NetFlowPosition = f.NetFlowPosition
	item.BufferPenetration = f.Penetration
	item.PlanningPriority = f.Priority
	item.BufferHealth = f.BufferHealth
	item.FillRate = f.FillRate
	item.ComputedAt = &at
	item.UpdatedAt = at
	s.items[id] = item
	return nil
}

func (s *Store) PrioritySummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.Priority]int)
	for _, item := range s.items {
		if item.PlanningPriority == "" {
			continue
		}
		if locationID != "" && item.LocationID != locationID {
			continue
		}
		counts[item.PlanningPriority]++
	}
	out := make([]domain.PrioritySummary, 0, len(counts))
	for _, p := range domain.Priorities {
		if n, ok := counts[p]; ok {
			out = append(out, domain.PrioritySummary{Priority: p, Count: n})
		}
	}
	return out, nil
}

// SignalRepository

func (s *Store) GetSupplySignals(ctx context.Context, itemID string) (*domain.SupplySignals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[itemID]
	if !ok {
		return nil, nil
	}
	return &sig, nil
}

// OrderRepository

func (s *Store) CreateOrder(ctx context.Context, order *domain.ReplenishmentOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateOrder"); err != nil {
		return err
	}
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	for _, o := range s.orders {
		if o.ItemID == order.ItemID && o.Status == domain.OrderStatusDraft {
			return fmt.Errorf("item %s: %w", order.ItemID, domain.ErrDraftExists)
		}
	}
	order.Status = domain.OrderStatusDraft
	s.orders[order.ID] = *order
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.ReplenishmentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.ReplenishmentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReplenishmentOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) HasDraft(ctx context.Context, itemID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ItemID == itemID && o.Status == domain.OrderStatusDraft {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateQuantity(ctx context.Context, id string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != domain.OrderStatusDraft {
		return fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrInvalidTransition)
	}
	o.Quantity = qty
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if !o.Status.CanTransition(status) {
		return fmt.Errorf("order %s %s -> %s: %w", id, o.Status, status, domain.ErrInvalidTransition)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

// pipeline.RunStore

func (s *Store) CreateRun(ctx context.Context, run *pipeline.RecomputeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = int64(len(s.runs) + 1)
	s.runs = append(s.runs, *run)
	return nil
}

func (s *Store) UpdateRun(ctx context.Context, run *pipeline.RecomputeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := int(run.ID) - 1
	if idx < 0 || idx >= len(s.runs) {
		return fmt.Errorf("recompute run %d: %w", run.ID, domain.ErrNotFound)
	}
	s.runs[idx] = *run
	return nil
}

func (s *Store) GetRun(ctx context.Context, id int64) (*pipeline.RecomputeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(s.runs) {
		return nil, fmt.Errorf("recompute run %d: %w", id, domain.ErrNotFound)
	}
	run := s.runs[idx]
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context, name string, limit int) ([]pipeline.RecomputeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.RecomputeRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if name != "" && s.runs[i].Name != name {
			continue
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}
