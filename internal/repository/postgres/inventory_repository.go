package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

const itemColumns = `
	id, sku, COALESCE(name, '') AS name, location_id, adu, lead_time_days,
	variability_factor, seasonality, trend, market_strategy,
	on_hand, on_order, qualified_demand, order_spike_threshold,
	original_lead_time, decoupled_lead_time, eoq,
	red_zone, yellow_zone, green_zone, net_flow_position, buffer_penetration,
	COALESCE(planning_priority, '') AS planning_priority,
	buffer_health, fill_rate, computed_at, updated_at
`

func (r *inventoryRepository) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`

	var item domain.InventoryItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (r *inventoryRepository) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1=1`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", argCounter))
		args = append(args, filter.LocationID)
		argCounter++
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("planning_priority = $%d", argCounter))
		args = append(args, filter.Priority)
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	var items []domain.InventoryItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// UpdateComputed overwrites the derived columns of one item. It is its own
// statement so a batch never holds a multi-item transaction.
func (r *inventoryRepository) UpdateComputed(ctx context.Context, id string, f domain.ComputedFields) error {
	query := `
		UPDATE inventory_items
		SET red_zone = $1, yellow_zone = $2, green_zone = $3,
		    net_flow_position = $4, buffer_penetration = $5, planning_priority = $6,
		    buffer_health = $7, fill_rate = $8, computed_at = $9, updated_at = $9
		WHERE id = $10
	`

	res, err := r.db.ExecContext(ctx, query,
		f.Zones.Red, f.Zones.Yellow, f.Zones.Green,
		f.NetFlowPosition, f.Penetration, f.Priority,
		f.BufferHealth, f.FillRate, f.ComputedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *inventoryRepository) PrioritySummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, error) {
	query := `
		SELECT planning_priority, COUNT(*) AS count
		FROM inventory_items
		WHERE planning_priority IS NOT NULL AND planning_priority <> ''
	`
	var args []interface{}
	if locationID != "" {
		query += " AND location_id = $1"
		args = append(args, locationID)
	}
	query += " GROUP BY planning_priority"

	var rows []domain.PrioritySummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting priority summary: %w", err)
	}

	// Order by urgency rather than alphabetically
	counts := make(map[domain.Priority]int, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	summary := make([]domain.PrioritySummary, 0, len(rows))
	for _, p := range domain.Priorities {
		if n, ok := counts[p]; ok {
			summary = append(summary, domain.PrioritySummary{Priority: p, Count: n})
		}
	}
	return summary, nil
}

type signalRepository struct {
	db *DB
}

func NewSignalRepository(db *DB) *signalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) GetSupplySignals(ctx context.Context, itemID string) (*domain.SupplySignals, error) {
	query := `
		SELECT item_id, lead_time_alert, quality_alert, order_delay_risk
		FROM supply_signals
		WHERE item_id = $1
	`

	var sig domain.SupplySignals
	if err := r.db.GetContext(ctx, &sig, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get supply signals: %w", err)
	}
	return &sig, nil
}
