package memory

import (
	"context"
	"testing"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.ConfigRepository    = (*Store)(nil)
	_ repository.InventoryRepository = (*Store)(nil)
	_ repository.OrderRepository     = (*Store)(nil)
	_ repository.SignalRepository    = (*Store)(nil)
	_ pipeline.RunStore              = (*Store)(nil)
)

func TestStore_ActivateConfigIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := &domain.BufferFactorConfig{ShortLeadTimeFactor: 0.7, CreatedBy: "planner-a"}
	second := &domain.BufferFactorConfig{ShortLeadTimeFactor: 0.6, CreatedBy: "planner-b"}
	require.NoError(t, s.ActivateConfig(ctx, first))
	require.NoError(t, s.ActivateConfig(ctx, second))

	active, err := s.GetActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	history, err := s.ListConfigs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsActive)
	assert.False(t, history[1].IsActive)
	assert.Equal(t, 0.7, history[1].ShortLeadTimeFactor)
}

func TestStore_NoActiveConfig(t *testing.T) {
	_, err := NewStore().GetActiveConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_OrderTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	order := &domain.ReplenishmentOrder{ID: "o-1", ItemID: "i-1", Quantity: decimal.NewFromInt(50)}
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.Equal(t, domain.OrderStatusDraft, order.Status)

	hasDraft, err := s.HasDraft(ctx, "i-1")
	require.NoError(t, err)
	assert.True(t, hasDraft)

	require.NoError(t, s.UpdateQuantity(ctx, "o-1", decimal.NewFromInt(75)))
	require.NoError(t, s.UpdateStatus(ctx, "o-1", domain.OrderStatusApproved))

	assert.ErrorIs(t, s.UpdateStatus(ctx, "o-1", domain.OrderStatusRejected), domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdateQuantity(ctx, "o-1", decimal.NewFromInt(100)), domain.ErrInvalidTransition)

	got, err := s.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75).Equal(got.Quantity))
	assert.Equal(t, domain.OrderStatusApproved, got.Status)
}

func TestStore_OneDraftPerItem(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateOrder(ctx, &domain.ReplenishmentOrder{ID: "o-1", ItemID: "i-1"}))

	err := s.CreateOrder(ctx, &domain.ReplenishmentOrder{ID: "o-2", ItemID: "i-1"})
	assert.ErrorIs(t, err, domain.ErrDraftExists)

	require.NoError(t, s.UpdateStatus(ctx, "o-1", domain.OrderStatusApproved))
	assert.NoError(t, s.CreateOrder(ctx, &domain.ReplenishmentOrder{ID: "o-2", ItemID: "i-1"}))
}

func TestStore_PrioritySummary(t *testing.T) {
	s := NewStore()
	s.PutItem(domain.InventoryItem{ID: "a", LocationID: "dc-1", PlanningPriority: domain.PriorityCritical})
	s.PutItem(domain.InventoryItem{ID: "b", LocationID: "dc-1", PlanningPriority: domain.PriorityCritical})
	s.PutItem(domain.InventoryItem{ID: "c", LocationID: "dc-2", PlanningPriority: domain.PriorityLow})
	s.PutItem(domain.InventoryItem{ID: "d", LocationID: "dc-2"})

	all, err := s.PrioritySummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []domain.PrioritySummary{
		{Priority: domain.PriorityCritical, Count: 2},
		{Priority: domain.PriorityLow, Count: 1},
	}, all)

	dc2, err := s.PrioritySummary(context.Background(), "dc-2")
	require.NoError(t, err)
	assert.Equal(t, []domain.PrioritySummary{{Priority: domain.PriorityLow, Count: 1}}, dc2)
}
