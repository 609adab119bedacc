package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation   = "23505"
	draftPerItemIndex = "uniq_replenishment_orders_item_draft"
)

type orderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `
	id, po_number, item_id, sku, quantity, urgency, order_date, due_date,
	status, COALESCE(reason, '') AS reason, created_at, updated_at
`

func (r *orderRepository) CreateOrder(ctx context.Context, o *domain.ReplenishmentOrder) error {
	o.Status = domain.OrderStatusDraft
	query := `
		INSERT INTO replenishment_orders (
			id, po_number, item_id, sku, quantity, urgency,
			order_date, due_date, status, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		o.ID, o.PONumber, o.ItemID, o.SKU, o.Quantity, o.Urgency,
		o.OrderDate, o.DueDate, o.Status, o.Reason,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isDraftConflict(err) {
			return fmt.Errorf("item %s: %w", o.ItemID, domain.ErrDraftExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// isDraftConflict reports whether err is the one-draft-per-item index rejecting an insert.
// lib/pq (server) and pgx (CLI) report it with different error types.
func isDraftConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == draftPerItemIndex
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && pgErr.ConstraintName == draftPerItemIndex
	}
	return false
}

func (r *orderRepository) GetOrder(ctx context.Context, id string) (*domain.ReplenishmentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM replenishment_orders WHERE id = $1`

	var o domain.ReplenishmentOrder
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.ReplenishmentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM replenishment_orders`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	var orders []domain.ReplenishmentOrder
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) HasDraft(ctx context.Context, itemID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM replenishment_orders WHERE item_id = $1 AND status = $2)`
	if err := r.db.GetContext(ctx, &exists, query, itemID, domain.OrderStatusDraft); err != nil {
		return false, fmt.Errorf("failed to check draft orders: %w", err)
	}
	return exists, nil
}

func (r *orderRepository) UpdateQuantity(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `
		UPDATE replenishment_orders
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, qty, id, domain.OrderStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to update order quantity: %w", err)
	}
	return r.checkDraftUpdate(ctx, res, id)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !domain.OrderStatusDraft.CanTransition(status) {
		return fmt.Errorf("order %s -> %s: %w", id, status, domain.ErrInvalidTransition)
	}
	query := `
		UPDATE replenishment_orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, status, id, domain.OrderStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return r.checkDraftUpdate(ctx, res, id)
}

// checkDraftUpdate tells a missing order apart from one that left DRAFT.
func (r *orderRepository) checkDraftUpdate(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	existing, err := r.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("order %s is %s: %w", id, existing.Status, domain.ErrInvalidTransition)
}
