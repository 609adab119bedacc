package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/ddmrp/internal/app"
	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/repository/postgres"
	"github.com/andresuchdata/ddmrp/internal/storage"
	"github.com/andresuchdata/ddmrp/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type contextKey string

const (
	dbKey  contextKey = "db"
	appKey contextKey = "app"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newLocationFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "location",
		Usage: "Only process items at this location",
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(c.String("log-level"))

	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if workers := c.Int("workers"); workers > 0 {
		cfg.Engine.WorkerCount = workers
	}

	redisClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		redisClient = nil
	}

	objects, err := storage.New(c.Context, cfg.Storage)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize report storage: %w", err)
	}

	pg := postgres.Wrap(sqlx.NewDb(db, "pgx"), cfg.Database.MaxConcurrentTx)
	services := app.New(cfg, app.PostgresStores(pg), redisClient, objects)

	c.Context = context.WithValue(c.Context, dbKey, db)
	c.Context = context.WithValue(c.Context, appKey, services)
	return nil
}

func closeApp(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func appFrom(c *cli.Context) (*app.App, error) {
	services, ok := c.Context.Value(appKey).(*app.App)
	if !ok || services == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return services, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	cliApp := &cli.App{
		Name:  "ddmrp",
		Usage: "Buffer recompute, order planning and reporting jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "recompute",
				Usage: "Recompute zones, net flow and health for every item",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newLocationFlag(),
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Number of concurrent workers",
						EnvVars: []string{"ENGINE_WORKER_COUNT"},
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Upload a buffer status CSV after the recompute",
					},
				},
				Before: initApp,
				After:  closeApp,
				Action: runRecompute,
			},
			{
				Name:  "activate-config",
				Usage: "Append a buffer factor configuration and make it active",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Float64Flag{Name: "short-factor", Value: 0.7, Usage: "Lead time factor for short lead times"},
					&cli.Float64Flag{Name: "medium-factor", Value: 0.5, Usage: "Lead time factor for medium lead times"},
					&cli.Float64Flag{Name: "long-factor", Value: 0.3, Usage: "Lead time factor for long lead times"},
					&cli.IntFlag{Name: "short-threshold", Value: 7, Usage: "Upper bound in days of a short lead time"},
					&cli.IntFlag{Name: "medium-threshold", Value: 21, Usage: "Upper bound in days of a medium lead time"},
					&cli.Float64Flag{Name: "replenishment-factor", Value: 1, Usage: "Replenishment time factor for the yellow zone"},
					&cli.Float64Flag{Name: "green-factor", Value: 0.5, Usage: "Green zone factor"},
					&cli.StringFlag{Name: "created-by", Required: true, Usage: "Who is activating the configuration"},
				},
				Before: initApp,
				After:  closeApp,
				Action: runActivateConfig,
			},
			{
				Name:   "plan-orders",
				Usage:  "Create DRAFT orders for every item that needs replenishment",
				Flags:  []cli.Flag{newDBURLFlag(), newLocationFlag()},
				Before: initApp,
				After:  closeApp,
				Action: runPlanOrders,
			},
			{
				Name:   "export",
				Usage:  "Upload the current buffer status CSV to object storage",
				Flags:  []cli.Flag{newDBURLFlag(), newLocationFlag()},
				Before: initApp,
				After:  closeApp,
				Action: runExport,
			},
			{
				Name:  "runs",
				Usage: "List recent recompute runs",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.BoolFlag{Name: "plan-orders", Usage: "List order planning runs instead of recomputes"},
				},
				Before: initApp,
				After:  closeApp,
				Action: runListRuns,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}
