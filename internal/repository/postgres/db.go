package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentTx = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// DSN builds a lib/pq connection string, preferring an explicit URL.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// NewDB creates a new database connection pool
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Connect("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, cfg.MaxConcurrentTx), nil
}

// Wrap adapts an existing pool, e.g. one opened with the pgx stdlib driver.
func Wrap(db *sqlx.DB, maxConcurrentTx int64) *DB {
	if maxConcurrentTx <= 0 {
		maxConcurrentTx = defaultMaxConcurrentTx
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrentTx),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
