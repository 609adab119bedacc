package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/repository/memory"
	"github.com/andresuchdata/ddmrp/internal/storage"
	"github.com/andresuchdata/ddmrp/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	store      *memory.Store
	provider   *ConfigProvider
	buffers    *BufferService
	orders     *ReplenishmentService
	compliance *ComplianceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	provider := NewConfigProvider(store, nil, engine.DefaultParameters())
	worker := pipeline.NewWorker(pipeline.DefaultWorkerConfig("recompute"), store)
	buffers := NewBufferService(store, store, store, provider, worker, store, nil)
	orders := NewReplenishmentService(store, store, buffers, pipeline.NewWorker(pipeline.DefaultWorkerConfig("plan-orders"), store))
	orders.now = func() time.Time { return fixedNow }

	return &testEnv{
		store:      store,
		provider:   provider,
		buffers:    buffers,
		orders:     orders,
		compliance: NewComplianceService(buffers),
	}
}

func testConfig() *domain.BufferFactorConfig {
	return &domain.BufferFactorConfig{
		ShortLeadTimeFactor:     0.7,
		MediumLeadTimeFactor:    0.5,
		LongLeadTimeFactor:      0.3,
		ShortLeadTimeThreshold:  7,
		MediumLeadTimeThreshold: 21,
		ReplenishmentTimeFactor: 1,
		GreenZoneFactor:         0.5,
		CreatedBy:               "planner",
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// shortItem lands in the red zone: zones 8/50/25, net flow -5.
func shortItem(id string) domain.InventoryItem {
	return domain.InventoryItem{
		ID:                  id,
		SKU:                 "sku-" + id,
		LocationID:          "dc-1",
		ADU:                 f64(10),
		LeadTimeDays:        intp(5),
		VariabilityFactor:   1.2,
		OnHand:              20,
		OnOrder:             10,
		QualifiedDemand:     40,
		OrderSpikeThreshold: f64(30),
	}
}

// healthyItem sits in the green zone.
func healthyItem(id string) domain.InventoryItem {
	item := shortItem(id)
	item.OnHand = 80
	item.QualifiedDemand = 5
	return item
}

func (e *testEnv) seed(t *testing.T, items ...domain.InventoryItem) {
	t.Helper()
	require.NoError(t, e.provider.Activate(context.Background(), testConfig()))
	e.store.PutProfile(domain.BufferProfile{ID: 1, Name: "purchased", MOQ: f64(25)})
	e.store.PutDecouplingPoint(domain.DecouplingPoint{ID: 1, LocationID: "dc-1", BufferProfileID: 1})
	for _, item := range items {
		e.store.PutItem(item)
	}
}

func TestConfigProvider_DegradedWithoutConfig(t *testing.T) {
	env := newTestEnv(t)

	snap := env.provider.Snapshot(context.Background())

	assert.True(t, snap.Degraded())
}

func TestConfigProvider_DegradedOnRepositoryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.store.FailOn("GetActiveConfig", errors.New("connection reset"))

	assert.True(t, env.provider.Snapshot(context.Background()).Degraded())
}

func TestConfigProvider_LateReaderCannotRestoreOldConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheCfg := config.CacheConfig{Enabled: true, RedisURL: "redis://" + mr.Addr()}
	client, err := cache.NewRedisClient(cacheCfg)
	require.NoError(t, err)
	defer client.Close()

	configCache := cache.NewConfigCache(client, cacheCfg)
	store := memory.NewStore()
	provider := NewConfigProvider(store, configCache, engine.DefaultParameters())
	ctx := context.Background()

	require.NoError(t, provider.Activate(ctx, testConfig()))
	stale, err := store.GetActiveConfig(ctx)
	require.NoError(t, err)

	next := testConfig()
	next.GreenZoneFactor = 0.8
	require.NoError(t, provider.Activate(ctx, next))

	// a reader that loaded the old row before activation finishes its fill
	require.NoError(t, configCache.FillActive(ctx, stale))

	active, err := provider.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, next.ID, active.ID)
	assert.Equal(t, 0.8, active.GreenZoneFactor)
}

func TestConfigProvider_ActivateKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := testConfig()
	require.NoError(t, env.provider.Activate(ctx, first))
	second := testConfig()
	second.GreenZoneFactor = 0.8
	require.NoError(t, env.provider.Activate(ctx, second))

	snap := env.provider.Snapshot(ctx)
	require.False(t, snap.Degraded())
	assert.Equal(t, second.ID, snap.Config.ID)
	assert.Equal(t, 0.8, snap.Config.GreenZoneFactor)

	history, err := env.provider.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsActive)
	assert.False(t, history[1].IsActive)
}

func TestConfigProvider_ActivateRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig()
	cfg.MediumLeadTimeThreshold = 3

	err := env.provider.Activate(context.Background(), cfg)

	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	history, _ := env.provider.History(context.Background(), 10)
	assert.Empty(t, history)
}

func TestBufferService_Evaluate(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))

	ev, err := env.buffers.Evaluate(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, domain.BufferZones{Red: 8, Yellow: 50, Green: 25}, ev.Zones.Zones)
	assert.False(t, ev.Zones.Degraded())
	assert.Equal(t, -5.0, ev.NetFlow.Position)
	assert.Equal(t, domain.PriorityCritical, ev.Health.Priority)
	assert.True(t, decimal.NewFromInt(100).Equal(ev.Quantity), "got %s", ev.Quantity)
}

func TestBufferService_EvaluateWithoutDecouplingPoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	item := shortItem("a")
	item.LocationID = "store-9"
	env.store.PutItem(item)

	ev, err := env.buffers.Evaluate(context.Background(), "a")

	require.NoError(t, err)
	// raw need 88, no MOQ to round to
	assert.True(t, decimal.NewFromInt(88).Equal(ev.Quantity), "got %s", ev.Quantity)
}

func TestBufferService_EvaluateMissingItem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.buffers.Evaluate(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBufferService_RecomputeAllContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"), healthyItem("b"), shortItem("c"))
	env.store.FailOn("UpdateComputed:b", errors.New("write timeout"))
	ctx := context.Background()

	result, err := env.buffers.RecomputeAll(ctx, domain.ItemFilter{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].ItemID)

	a, err := env.store.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, a.PlanningPriority)
	assert.Equal(t, 100.0, a.BufferPenetration)
	assert.NotNil(t, a.ComputedAt)

	b, err := env.store.GetItem(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, b.ComputedAt)

	runs, err := env.buffers.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, pipeline.StatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].FailedItems)
}

func TestBufferService_RecomputeAllDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutItem(shortItem("a"))

	result, err := env.buffers.RecomputeAll(context.Background(), domain.ItemFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Degraded)

	runs, _ := env.buffers.Runs(context.Background(), 5)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Degraded)
	assert.Nil(t, runs[0].ConfigID)
}

func TestBufferService_RecomputeAllListFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailOn("ListItems", errors.New("db down"))

	result, err := env.buffers.RecomputeAll(context.Background(), domain.ItemFilter{})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestBufferService_PrioritySummary(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"), shortItem("b"), healthyItem("c"))
	ctx := context.Background()

	_, err := env.buffers.RecomputeAll(ctx, domain.ItemFilter{})
	require.NoError(t, err)

	summary, err := env.buffers.PrioritySummary(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, domain.PrioritySummary{Priority: domain.PriorityCritical, Count: 2}, summary[0])

	total := 0
	for _, s := range summary {
		total += s.Count
	}
	assert.Equal(t, 3, total)
}

func TestReplenishmentService_Plan(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))
	ctx := context.Background()

	order, err := env.orders.Plan(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDraft, order.Status)
	assert.Equal(t, domain.UrgencyEmergency, order.Urgency)
	assert.True(t, decimal.NewFromInt(100).Equal(order.Quantity))
	assert.True(t, strings.HasPrefix(order.PONumber, "PO-20260504-"), order.PONumber)
	assert.Len(t, order.PONumber, len("PO-20260504-")+8)
	assert.Equal(t, time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), order.DueDate)
	assert.NotEmpty(t, order.Reason)

	_, err = env.orders.Plan(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrDraftExists)
}

// racingOrders holds every HasDraft caller until all of them have checked,
// so each sees the item without a draft.
type racingOrders struct {
	*memory.Store
	checked sync.WaitGroup
}

func (r *racingOrders) HasDraft(ctx context.Context, itemID string) (bool, error) {
	r.checked.Done()
	r.checked.Wait()
	return r.Store.HasDraft(ctx, itemID)
}

func TestReplenishmentService_ConcurrentPlanCreatesOneDraft(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))
	ctx := context.Background()

	const callers = 2
	orders := &racingOrders{Store: env.store}
	orders.checked.Add(callers)
	svc := NewReplenishmentService(orders, env.store, env.buffers, pipeline.NewWorker(pipeline.DefaultWorkerConfig("test"), env.store))

	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Plan(ctx, "a")
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrDraftExists)
			conflicts++
		}
	}
	assert.Equal(t, callers-1, conflicts)

	drafts, err := env.orders.List(ctx, domain.OrderStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestReplenishmentService_PlanEscalatesWithSignals(t *testing.T) {
	env := newTestEnv(t)
	item := shortItem("a")
	// net flow 5 sits inside red but above half of it
	item.OnHand = 30
	env.seed(t, item)
	env.store.PutSignals(domain.SupplySignals{ItemID: "a", QualityAlert: true})

	order, err := env.orders.Plan(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, domain.UrgencyEmergency, order.Urgency)
	assert.Contains(t, order.Reason, "supply signals")
}

func TestReplenishmentService_PlanHealthyItem(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, healthyItem("a"))

	_, err := env.orders.Plan(context.Background(), "a")

	assert.ErrorIs(t, err, domain.ErrNoOrderNeeded)
}

func TestReplenishmentService_PlanAll(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"), healthyItem("b"), shortItem("c"))
	ctx := context.Background()

	_, err := env.orders.Plan(ctx, "c")
	require.NoError(t, err)

	result, err := env.orders.PlanAll(ctx, domain.ItemFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Batch.Failed)

	drafts, err := env.orders.List(ctx, domain.OrderStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestRuns_SeparatedByWorker(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))
	ctx := context.Background()

	recompute, err := env.buffers.RecomputeAll(ctx, domain.ItemFilter{})
	require.NoError(t, err)
	plan, err := env.orders.PlanAll(ctx, domain.ItemFilter{})
	require.NoError(t, err)

	recomputeRuns, err := env.buffers.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recomputeRuns, 1)
	assert.Equal(t, recompute.RunID, recomputeRuns[0].ID)

	planRuns, err := env.orders.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, planRuns, 1)
	assert.Equal(t, plan.Batch.RunID, planRuns[0].ID)

	_, err = env.buffers.Run(ctx, plan.Batch.RunID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := env.orders.Run(ctx, plan.Batch.RunID)
	require.NoError(t, err)
	assert.Equal(t, "plan-orders", got.Name)
}

func TestReplenishmentService_EditQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))
	ctx := context.Background()
	order, err := env.orders.Plan(ctx, "a")
	require.NoError(t, err)

	t.Run("not a multiple of MOQ", func(t *testing.T) {
		_, err := env.orders.EditQuantity(ctx, order.ID, decimal.NewFromInt(60))

		assert.ErrorIs(t, err, domain.ErrInvalidEdit)
		var verr *engine.ValidationError
		assert.ErrorAs(t, err, &verr)

		stored, _ := env.orders.Get(ctx, order.ID)
		assert.True(t, decimal.NewFromInt(100).Equal(stored.Quantity))
	})

	t.Run("below MOQ", func(t *testing.T) {
		_, err := env.orders.EditQuantity(ctx, order.ID, decimal.NewFromInt(20))
		assert.ErrorIs(t, err, domain.ErrInvalidEdit)
	})

	t.Run("valid", func(t *testing.T) {
		updated, err := env.orders.EditQuantity(ctx, order.ID, decimal.NewFromInt(75))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(75).Equal(updated.Quantity))
	})

	t.Run("after approval", func(t *testing.T) {
		approved, err := env.orders.Approve(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusApproved, approved.Status)

		_, err = env.orders.EditQuantity(ctx, order.ID, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = env.orders.Reject(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestReplenishmentService_RejectUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.Reject(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplianceService_Report(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"), domain.InventoryItem{ID: "no-buffer", LocationID: "dc-1"})

	input := domain.ComplianceInput{
		SubScores: domain.SubScores{
			DemandReview: 80, SupplyReview: 80, Integration: 80, ManagementReview: 80,
			FinancialAlignment: 80, StrategicAlignment: 80, TacticalExecution: 80,
		},
		Metrics: []domain.ProcessMetric{
			{Name: "forecast accuracy", Area: "demand", Value: 70, Target: 100},
			{Name: "on-time delivery", Value: 95, Target: 95},
		},
		Adjustments: []domain.TacticalAdjustment{{ID: "adj-1", Description: "promo uplift", Aligned: false}},
		Steps:       []domain.ProcessStep{{Name: "supply review", Pending: true}},
	}

	report, err := env.compliance.Report(context.Background(), domain.ItemFilter{}, input)

	require.NoError(t, err)
	// |-5 - 33| / 83 deviation on the single buffered item
	bufferScore := 100 - 38.0/83.0*100
	assert.Equal(t, 1, report.ItemsScored)
	assert.InDelta(t, bufferScore, report.SubScores.BufferCompliance, 1e-9)
	assert.InDelta(t, 72+0.1*bufferScore, report.OverallScore, 1e-9)
	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, domain.ImpactHigh, report.Recommendations[0].Impact)
	assert.Equal(t, domain.RecommendationStrategic, report.Recommendations[1].Kind)
	assert.True(t, report.Recommendations[2].Immediate)
}

func TestComplianceService_AllOrNothing(t *testing.T) {
	t.Run("repository failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, shortItem("a"))
		env.store.FailOn("ListItems", errors.New("db down"))

		report, err := env.compliance.Report(context.Background(), domain.ItemFilter{}, domain.ComplianceInput{})

		assert.Error(t, err)
		assert.Nil(t, report)
	})

	t.Run("invalid metric target", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, shortItem("a"))

		report, err := env.compliance.Report(context.Background(), domain.ItemFilter{}, domain.ComplianceInput{
			Metrics: []domain.ProcessMetric{{Name: "fill rate", Value: 90, Target: 0}},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, report)
	})
}

func TestReportService_ExportBufferStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"), healthyItem("b"))
	ctx := context.Background()
	_, err := env.buffers.RecomputeAll(ctx, domain.ItemFilter{})
	require.NoError(t, err)

	store := storage.NewMemoryStorage()
	reports := NewReportService(env.store, store, "")
	reports.now = func() time.Time { return fixedNow }

	key, err := reports.ExportBufferStatus(ctx, domain.ItemFilter{})

	require.NoError(t, err)
	assert.Equal(t, "buffer-status/2026/05/04/buffer-status-093000.csv", key)

	data, ok := store.Object(key)
	require.True(t, ok)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(bufferStatusHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "a,sku-a,,dc-1,8,50,25,-5,100,critical,"), lines[1])

	listed, err := reports.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, key, listed[0].Key)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := logger.Log
	t.Cleanup(func() {
		logger.Log = prev
		log.Logger = prev
	})
	var buf bytes.Buffer
	logger.UseJSON(&buf)
	return &buf
}

func TestBufferService_DegradedEvaluationIsLogged(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutItem(shortItem("a"))
	logs := captureLogs(t)

	ev, err := env.buffers.Evaluate(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ev.Zones.Degraded())

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry), string(line))
		if entry["message"] != "zones computed with degraded ratios" {
			continue
		}
		found = true
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "a", entry["item_id"])
		assert.Equal(t, "degraded", entry["mode"])
	}
	assert.True(t, found, logs.String())
}

func TestBufferService_PreciseEvaluationIsNotLogged(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, shortItem("a"))
	logs := captureLogs(t)

	_, err := env.buffers.Evaluate(context.Background(), "a")
	require.NoError(t, err)

	assert.NotContains(t, logs.String(), "zones computed with degraded ratios")
}
