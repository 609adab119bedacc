package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"
)

// PlanResult summarises a bulk draft generation.
type PlanResult struct {
	Batch   *pipeline.BatchResult `json:"batch"`
	Created int                   `json:"created"`
	Skipped int                   `json:"skipped"`
}

// ReplenishmentService turns decisions into DRAFT orders and runs the
// review workflow on them.
type ReplenishmentService struct {
	orders  repository.OrderRepository
	items   repository.InventoryRepository
	buffers *BufferService
	worker  *pipeline.Worker
	now     func() time.Time
}

func NewReplenishmentService(
	orders repository.OrderRepository,
	items repository.InventoryRepository,
	buffers *BufferService,
	worker *pipeline.Worker,
) *ReplenishmentService {
	return &ReplenishmentService{
		orders:  orders,
		items:   items,
		buffers: buffers,
		worker:  worker,
		now:     time.Now,
	}
}

// Plan creates a DRAFT order for one item when the decision engine says so.
func (s *ReplenishmentService) Plan(ctx context.Context, itemID string) (*domain.ReplenishmentOrder, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	// The store rejects a second draft on create; this only skips the evaluation.
	hasDraft, err := s.orders.HasDraft(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if hasDraft {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrDraftExists)
	}

	ev, err := s.buffers.evaluate(ctx, *item, s.buffers.provider.Snapshot(ctx))
	if err != nil {
		return nil, err
	}
	return s.createDraft(ctx, *item, ev)
}

// PlanAll creates DRAFT orders for every matching item that needs one.
// Items with an open draft are skipped.
func (s *ReplenishmentService) PlanAll(ctx context.Context, filter domain.ItemFilter) (*PlanResult, error) {
	items, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var (
		created = atomic.NewInt64(0)
		skipped = atomic.NewInt64(0)
	)

	snap := s.buffers.provider.Snapshot(ctx)
	batch, err := s.worker.Run(ctx, items, snap, func(ctx context.Context, item domain.InventoryItem, snap engine.Snapshot) (pipeline.Outcome, error) {
		hasDraft, err := s.orders.HasDraft(ctx, item.ID)
		if err != nil {
			return pipeline.Outcome{}, err
		}
		if hasDraft {
			skipped.Inc()
			return pipeline.Outcome{}, nil
		}

		ev, err := s.buffers.evaluate(ctx, item, snap)
		if err != nil {
			return pipeline.Outcome{}, err
		}
		if _, err := s.createDraft(ctx, item, ev); err != nil {
			if isNoOrder(err) || errors.Is(err, domain.ErrDraftExists) {
				skipped.Inc()
				return pipeline.Outcome{Degraded: ev.Zones.Degraded()}, nil
			}
			return pipeline.Outcome{}, err
		}
		created.Inc()
		return pipeline.Outcome{Degraded: ev.Zones.Degraded()}, nil
	})

	return &PlanResult{
		Batch:   batch,
		Created: int(created.Load()),
		Skipped: int(skipped.Load()),
	}, err
}

func (s *ReplenishmentService) createDraft(ctx context.Context, item domain.InventoryItem, ev engine.Evaluation) (*domain.ReplenishmentOrder, error) {
	if !ev.Decision.ShouldOrder || !ev.Quantity.IsPositive() {
		return nil, fmt.Errorf("item %s: %w", item.ID, domain.ErrNoOrderNeeded)
	}

	order := newDraftOrder(item, ev, s.now().UTC())
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order for %s: %w", item.ID, err)
	}

	log.Info().
		Str("order_id", order.ID).
		Str("po_number", order.PONumber).
		Str("item_id", item.ID).
		Str("quantity", order.Quantity.String()).
		Str("urgency", string(order.Urgency)).
		Msg("draft order created")
	return order, nil
}

func newDraftOrder(item domain.InventoryItem, ev engine.Evaluation, now time.Time) *domain.ReplenishmentOrder {
	id := uuid.New()
	orderDate := now.Truncate(24 * time.Hour)

	return &domain.ReplenishmentOrder{
		ID:        id.String(),
		PONumber:  poNumber(orderDate, id),
		ItemID:    item.ID,
		SKU:       item.SKU,
		Quantity:  ev.Quantity,
		Urgency:   ev.Decision.Urgency,
		OrderDate: orderDate,
		DueDate:   orderDate.AddDate(0, 0, leadTimeDays(item)),
		Status:    domain.OrderStatusDraft,
		Reason:    orderReason(ev),
	}
}

// poNumber formats PO-YYYYMMDD-XXXXXXXX from the order date and id.
func poNumber(date time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", date.Format("20060102"), suffix)
}

// leadTimeDays prefers the decoupled lead time.
func leadTimeDays(item domain.InventoryItem) int {
	switch {
	case item.DecoupledLeadTime != nil && *item.DecoupledLeadTime > 0:
		return *item.DecoupledLeadTime
	case item.LeadTimeDays != nil && *item.LeadTimeDays > 0:
		return *item.LeadTimeDays
	}
	return 0
}

func orderReason(ev engine.Evaluation) string {
	reason := fmt.Sprintf("net flow position %.2f below order point %.2f (penetration %.1f%%, priority %s)",
		ev.NetFlow.Position, ev.Zones.Zones.IdealPosition(), ev.Health.Penetration, ev.Health.Priority.Label())
	if ev.Zones.Degraded() {
		reason += "; zones approximated without configuration"
	}
	if ev.Decision.Escalated {
		reason += "; urgency raised by supply signals"
	}
	return reason
}

func isNoOrder(err error) bool {
	return errors.Is(err, domain.ErrNoOrderNeeded)
}

// Runs lists bulk planning runs.
func (s *ReplenishmentService) Runs(ctx context.Context, limit int) ([]pipeline.RecomputeRun, error) {
	return listRuns(ctx, s.buffers.runs, s.worker.Name(), limit)
}

func (s *ReplenishmentService) Run(ctx context.Context, id int64) (*pipeline.RecomputeRun, error) {
	return getRun(ctx, s.buffers.runs, s.worker.Name(), id)
}

func (s *ReplenishmentService) List(ctx context.Context, status domain.OrderStatus) ([]domain.ReplenishmentOrder, error) {
	orders, err := s.orders.ListOrders(ctx, status)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = make([]domain.ReplenishmentOrder, 0)
	}
	return orders, nil
}

func (s *ReplenishmentService) Get(ctx context.Context, id string) (*domain.ReplenishmentOrder, error) {
	return s.orders.GetOrder(ctx, id)
}

// EditQuantity replaces the quantity of a DRAFT order. The new quantity must
// satisfy the item's ordering constraints; it is never adjusted.
func (s *ReplenishmentService) EditQuantity(ctx context.Context, id string, qty decimal.Decimal) (*domain.ReplenishmentOrder, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDraft {
		return nil, fmt.Errorf("order %s is %s: %w", id, order.Status, domain.ErrInvalidTransition)
	}

	item, err := s.items.GetItem(ctx, order.ItemID)
	if err != nil {
		return nil, err
	}
	in, err := s.buffers.resolveInput(ctx, *item)
	if err != nil {
		return nil, err
	}
	if err := s.buffers.engine.Decisions().ValidateOrderEdit(qty, in.Constraints()); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateQuantity(ctx, id, qty); err != nil {
		return nil, err
	}
	return s.orders.GetOrder(ctx, id)
}

func (s *ReplenishmentService) Approve(ctx context.Context, id string) (*domain.ReplenishmentOrder, error) {
	return s.transition(ctx, id, domain.OrderStatusApproved)
}

func (s *ReplenishmentService) Reject(ctx context.Context, id string) (*domain.ReplenishmentOrder, error) {
	return s.transition(ctx, id, domain.OrderStatusRejected)
}

func (s *ReplenishmentService) transition(ctx context.Context, id string, status domain.OrderStatus) (*domain.ReplenishmentOrder, error) {
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	log.Info().Str("order_id", id).Str("status", string(status)).Msg("order reviewed")
	return s.orders.GetOrder(ctx, id)
}
