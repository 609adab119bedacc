// Package app wires repositories, caches and services into the objects the
// HTTP server and the CLI share.
package app

import (
	"github.com/andresuchdata/ddmrp/internal/api"
	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/andresuchdata/ddmrp/internal/repository/memory"
	"github.com/andresuchdata/ddmrp/internal/repository/postgres"
	"github.com/andresuchdata/ddmrp/internal/service"
	"github.com/andresuchdata/ddmrp/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Stores groups the persistence ports.
type Stores struct {
	Configs repository.ConfigRepository
	Items   repository.InventoryRepository
	Orders  repository.OrderRepository
	Signals repository.SignalRepository
	Runs    pipeline.RunStore
}

func PostgresStores(db *postgres.DB) Stores {
	return Stores{
		Configs: postgres.NewConfigRepository(db),
		Items:   postgres.NewInventoryRepository(db),
		Orders:  postgres.NewOrderRepository(db),
		Signals: postgres.NewSignalRepository(db),
		Runs:    pipeline.NewRepository(db.DB.DB),
	}
}

func MemoryStores(store *memory.Store) Stores {
	return Stores{
		Configs: store,
		Items:   store,
		Orders:  store,
		Signals: store,
		Runs:    store,
	}
}

type App struct {
	Config        *service.ConfigProvider
	Buffers       *service.BufferService
	Replenishment *service.ReplenishmentService
	Compliance    *service.ComplianceService
	Reports       *service.ReportService
}

// New builds the services. redisClient may be nil to run without caching.
func New(cfg *config.Config, stores Stores, redisClient *redis.Client, objects storage.ObjectStorage) *App {
	params := cfg.Engine.Parameters()

	workerCfg := pipeline.DefaultWorkerConfig("recompute")
	if cfg.Engine.WorkerCount > 0 {
		workerCfg.WorkerCount = cfg.Engine.WorkerCount
	}
	planCfg := workerCfg
	planCfg.Name = "plan-orders"

	provider := service.NewConfigProvider(stores.Configs, cache.NewConfigCache(redisClient, cfg.Cache), params)
	buffers := service.NewBufferService(
		stores.Items,
		stores.Configs,
		stores.Signals,
		provider,
		pipeline.NewWorker(workerCfg, stores.Runs),
		stores.Runs,
		cache.NewSummaryCache(redisClient, cfg.Cache),
	)

	if objects == nil {
		objects = storage.NewMemoryStorage()
	}

	return &App{
		Config:        provider,
		Buffers:       buffers,
		Replenishment: service.NewReplenishmentService(stores.Orders, stores.Items, buffers, pipeline.NewWorker(planCfg, stores.Runs)),
		Compliance:    service.NewComplianceService(buffers),
		Reports:       service.NewReportService(stores.Items, objects, cfg.Storage.Prefix),
	}
}

// APIServices exposes the services to the HTTP router.
func (a *App) APIServices() *api.Services {
	return &api.Services{
		Config:        a.Config,
		Buffers:       a.Buffers,
		Replenishment: a.Replenishment,
		Compliance:    a.Compliance,
		Reports:       a.Reports,
	}
}
