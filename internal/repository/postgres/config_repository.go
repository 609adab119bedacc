package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

type configRepository struct {
	db *DB
}

func NewConfigRepository(db *DB) *configRepository {
	return &configRepository{db: db}
}

const configColumns = `
	id, short_lead_time_factor, medium_lead_time_factor, long_lead_time_factor,
	short_lead_time_threshold, medium_lead_time_threshold,
	replenishment_time_factor, green_zone_factor, is_active, created_by, created_at
`

func (r *configRepository) GetActiveConfig(ctx context.Context) (*domain.BufferFactorConfig, error) {
	query := `SELECT ` + configColumns + ` FROM buffer_factor_configs WHERE is_active LIMIT 1`

	var cfg domain.BufferFactorConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active config: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active config: %w", err)
	}
	return &cfg, nil
}

func (r *configRepository) ActivateConfig(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Retire the current active row
		if _, err := tx.ExecContext(ctx, `UPDATE buffer_factor_configs SET is_active = FALSE WHERE is_active`); err != nil {
			return fmt.Errorf("failed to deactivate config: %w", err)
		}

		// 2. Append the new active row
		query := `
			INSERT INTO buffer_factor_configs (
				short_lead_time_factor, medium_lead_time_factor, long_lead_time_factor,
				short_lead_time_threshold, medium_lead_time_threshold,
				replenishment_time_factor, green_zone_factor, is_active, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, NOW())
			RETURNING id, created_at
		`
		err := tx.QueryRowContext(ctx, query,
			cfg.ShortLeadTimeFactor, cfg.MediumLeadTimeFactor, cfg.LongLeadTimeFactor,
			cfg.ShortLeadTimeThreshold, cfg.MediumLeadTimeThreshold,
			cfg.ReplenishmentTimeFactor, cfg.GreenZoneFactor, cfg.CreatedBy,
		).Scan(&cfg.ID, &cfg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert config: %w", err)
		}

		cfg.IsActive = true
		return nil
	})
}

func (r *configRepository) ListConfigs(ctx context.Context, limit int) ([]domain.BufferFactorConfig, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + configColumns + ` FROM buffer_factor_configs ORDER BY id DESC LIMIT $1`

	var configs []domain.BufferFactorConfig
	if err := r.db.SelectContext(ctx, &configs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	return configs, nil
}

func (r *configRepository) GetBufferProfile(ctx context.Context, id int64) (*domain.BufferProfile, error) {
	query := `
		SELECT id, name, variability_category, lead_time_category, moq, lot_size_factor,
		       COALESCE(description, '') AS description
		FROM buffer_profiles
		WHERE id = $1
	`

	var p domain.BufferProfile
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("buffer profile %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buffer profile: %w", err)
	}
	return &p, nil
}

func (r *configRepository) GetDecouplingPoint(ctx context.Context, id int64) (*domain.DecouplingPoint, error) {
	return r.getDecouplingPoint(ctx, `WHERE id = $1`, id)
}

func (r *configRepository) GetDecouplingPointByLocation(ctx context.Context, locationID string) (*domain.DecouplingPoint, error) {
	return r.getDecouplingPoint(ctx, `WHERE location_id = $1`, locationID)
}

func (r *configRepository) getDecouplingPoint(ctx context.Context, where string, arg interface{}) (*domain.DecouplingPoint, error) {
	query := `SELECT id, location_id, buffer_profile_id, type FROM decoupling_points ` + where + ` LIMIT 1`

	var dp domain.DecouplingPoint
	if err := r.db.GetContext(ctx, &dp, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("decoupling point %v: %w", arg, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get decoupling point: %w", err)
	}
	return &dp, nil
}
