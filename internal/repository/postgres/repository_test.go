package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return Wrap(sqlx.NewDb(raw, "sqlmock"), 2), mock
}

func TestConfigRepository_ActivateConfig(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	cfg := &domain.BufferFactorConfig{
		ShortLeadTimeFactor: 0.7, MediumLeadTimeFactor: 0.5, LongLeadTimeFactor: 0.3,
		ShortLeadTimeThreshold: 7, MediumLeadTimeThreshold: 21,
		ReplenishmentTimeFactor: 1, GreenZoneFactor: 0.5, CreatedBy: "planner",
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE buffer_factor_configs SET is_active = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO buffer_factor_configs").
		WithArgs(0.7, 0.5, 0.3, 7, 21, 1.0, 0.5, "planner").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, created))
	mock.ExpectCommit()

	require.NoError(t, NewConfigRepository(db).ActivateConfig(context.Background(), cfg))
	assert.Equal(t, int64(3), cfg.ID)
	assert.True(t, cfg.IsActive)
	assert.Equal(t, created, cfg.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRepository_ActivateConfigRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE buffer_factor_configs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO buffer_factor_configs").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := NewConfigRepository(db).ActivateConfig(context.Background(), &domain.BufferFactorConfig{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_UpdateComputedMissingItem(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE inventory_items").
		WithArgs(8.0, 50.0, 25.0, -5.0, 100.0, domain.PriorityCritical, 0.0, 80.0, at, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewInventoryRepository(db).UpdateComputed(context.Background(), "missing", domain.ComputedFields{
		Zones:           domain.BufferZones{Red: 8, Yellow: 50, Green: 25},
		NetFlowPosition: -5,
		Penetration:     100,
		Priority:        domain.PriorityCritical,
		FillRate:        80,
		ComputedAt:      at,
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_PrioritySummaryOrdersByUrgency(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT planning_priority, COUNT").
		WithArgs("dc-1").
		WillReturnRows(sqlmock.NewRows([]string{"planning_priority", "count"}).
			AddRow("low", 4).
			AddRow("critical", 1).
			AddRow("high", 2))

	summary, err := NewInventoryRepository(db).PrioritySummary(context.Background(), "dc-1")

	require.NoError(t, err)
	assert.Equal(t, []domain.PrioritySummary{
		{Priority: domain.PriorityCritical, Count: 1},
		{Priority: domain.PriorityHigh, Count: 2},
		{Priority: domain.PriorityLow, Count: 4},
	}, summary)
}

func TestOrderRepository_UpdateStatusOnApprovedOrder(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectExec("UPDATE replenishment_orders").
		WithArgs(domain.OrderStatusRejected, "o-1", domain.OrderStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM replenishment_orders WHERE id").
		WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "po_number", "item_id", "sku", "quantity", "urgency", "order_date", "due_date",
			"status", "reason", "created_at", "updated_at",
		}).AddRow("o-1", "PO-1", "i-1", "sku-1", "75", "normal", now, now, "APPROVED", "", now, now))

	err := NewOrderRepository(db).UpdateStatus(context.Background(), "o-1", domain.OrderStatusRejected)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatusRejectsNonDraftTarget(t *testing.T) {
	db, _ := newMockDB(t)

	err := NewOrderRepository(db).UpdateStatus(context.Background(), "o-1", domain.OrderStatusDraft)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOrderRepository_UpdateQuantity(t *testing.T) {
	db, mock := newMockDB(t)
	qty := decimal.NewFromInt(75)

	mock.ExpectExec("UPDATE replenishment_orders").
		WithArgs(qty, "o-1", domain.OrderStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewOrderRepository(db).UpdateQuantity(context.Background(), "o-1", qty))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrderDraftConflict(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		isDraft bool
	}{
		{name: "lib/pq draft index", dbErr: &pq.Error{Code: "23505", Constraint: "uniq_replenishment_orders_item_draft"}, isDraft: true},
		{name: "pgx draft index", dbErr: &pgconn.PgError{Code: "23505", ConstraintName: "uniq_replenishment_orders_item_draft"}, isDraft: true},
		{name: "po number collision", dbErr: &pq.Error{Code: "23505", Constraint: "replenishment_orders_po_number_key"}},
		{name: "connection failure", dbErr: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery("INSERT INTO replenishment_orders").WillReturnError(tt.dbErr)

			err := NewOrderRepository(db).CreateOrder(context.Background(), &domain.ReplenishmentOrder{
				ID: "o-2", PONumber: "PO-2", ItemID: "i-1", Quantity: decimal.NewFromInt(50),
			})

			require.Error(t, err)
			assert.Equal(t, tt.isDraft, errors.Is(err, domain.ErrDraftExists))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSignalRepository_MissingRowIsNil(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT item_id, lead_time_alert").
		WithArgs("i-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "lead_time_alert", "quality_alert", "order_delay_risk"}))

	sig, err := NewSignalRepository(db).GetSupplySignals(context.Background(), "i-1")

	require.NoError(t, err)
	assert.Nil(t, sig)
}
