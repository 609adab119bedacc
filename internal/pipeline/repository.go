package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

// Repository handles database operations for recompute run tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new run repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new recompute run record
func (r *Repository) CreateRun(ctx context.Context, run *RecomputeRun) error {
	query := `
		INSERT INTO recompute_runs (
			name, status, config_id, degraded, total_items,
			succeeded_items, failed_items, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.db.QueryRowContext(
		ctx, query,
		run.Name, run.Status, run.ConfigID, run.Degraded, run.TotalItems,
		run.SucceededItems, run.FailedItems, run.StartedAt,
	).Scan(&run.ID)
}

// UpdateRun updates an existing recompute run
func (r *Repository) UpdateRun(ctx context.Context, run *RecomputeRun) error {
	query := `
		UPDATE recompute_runs
		SET status = $1, succeeded_items = $2, failed_items = $3,
		    completed_at = $4, error_message = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.SucceededItems, run.FailedItems,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)

	return err
}

const runColumns = `
	id, name, status, config_id, degraded, total_items,
	succeeded_items, failed_items, started_at, completed_at, error_message
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RecomputeRun, error) {
	run := &RecomputeRun{}
	err := row.Scan(
		&run.ID, &run.Name, &run.Status, &run.ConfigID, &run.Degraded,
		&run.TotalItems, &run.SucceededItems, &run.FailedItems,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	return run, err
}

// GetRun retrieves a recompute run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*RecomputeRun, error) {
	query := `SELECT ` + runColumns + ` FROM recompute_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recompute run %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, name string, limit int) ([]RecomputeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM recompute_runs
		WHERE ($1 = '' OR name = $1)
		ORDER BY started_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RecomputeRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}
