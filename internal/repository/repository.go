// internal/repository/repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/shopspring/decimal"
)

// ConfigRepository stores buffer factor configurations, profiles and
// decoupling points.
type ConfigRepository interface {
	GetActiveConfig(ctx context.Context) (*domain.BufferFactorConfig, error)
	// ActivateConfig appends cfg and makes it the single active row.
	ActivateConfig(ctx context.Context, cfg *domain.BufferFactorConfig) error
	ListConfigs(ctx context.Context, limit int) ([]domain.BufferFactorConfig, error)
	GetBufferProfile(ctx context.Context, id int64) (*domain.BufferProfile, error)
	GetDecouplingPoint(ctx context.Context, id int64) (*domain.DecouplingPoint, error)
	GetDecouplingPointByLocation(ctx context.Context, locationID string) (*domain.DecouplingPoint, error)
}

// InventoryRepository reads items and writes back computed fields.
type InventoryRepository interface {
	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error)
	UpdateComputed(ctx context.Context, id string, fields domain.ComputedFields) error
	PrioritySummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, error)
}

// OrderRepository is the replenishment order sink.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.ReplenishmentOrder) error
	GetOrder(ctx context.Context, id string) (*domain.ReplenishmentOrder, error)
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.ReplenishmentOrder, error)
	// HasDraft reports whether the item already has an order awaiting review.
	HasDraft(ctx context.Context, itemID string) (bool, error)
	// UpdateQuantity only touches DRAFT orders.
	UpdateQuantity(ctx context.Context, id string, qty decimal.Decimal) error
	// UpdateStatus moves a DRAFT order to APPROVED or REJECTED.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// SignalRepository returns optional supply signals. A missing row is (nil, nil).
type SignalRepository interface {
	GetSupplySignals(ctx context.Context, itemID string) (*domain.SupplySignals, error)
}
