// Package engine holds the pure DDMRP computations. Nothing in here performs
// I/O; every call works off the arguments and an explicit Snapshot.
package engine

import (
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/shopspring/decimal"
)

// Input is everything needed to evaluate one item.
type Input struct {
	Item    domain.InventoryItem
	Profile *domain.BufferProfile
	Signals *domain.SupplySignals
}

// Constraints merges the profile ordering constraints with the item EOQ.
func (in Input) Constraints() OrderConstraints {
	c := OrderConstraints{EOQ: in.Item.EOQ}
	if in.Profile != nil {
		c.MOQ = in.Profile.MOQ
		c.LotSizeFactor = in.Profile.LotSizeFactor
	}
	return c
}

// Evaluation is the full computed state of one item.
type Evaluation struct {
	ItemID   string           `json:"item_id"`
	SKU      string           `json:"sku"`
	Zones    ZoneResult       `json:"zones"`
	NetFlow  domain.NetFlow   `json:"net_flow"`
	Health   domain.Health    `json:"health"`
	Decision Decision         `json:"decision"`
	Quantity decimal.Decimal  `json:"quantity"`
	Limits   OrderConstraints `json:"constraints"`
}

// Computed returns the fields persisted back onto the item.
func (e Evaluation) Computed(at time.Time) domain.ComputedFields {
	return domain.ComputedFields{
		Zones:           e.Zones.Zones,
		NetFlowPosition: e.NetFlow.Position,
		Penetration:     e.Health.Penetration,
		Priority:        e.Health.Priority,
		BufferHealth:    e.Health.BufferHealth,
		FillRate:        e.Health.FillRateEstimate,
		ComputedAt:      at,
	}
}

// Position returns the part of the evaluation used for compliance scoring.
func (e Evaluation) Position() ItemPosition {
	return ItemPosition{Zones: e.Zones.Zones, NetFlowPosition: e.NetFlow.Position}
}

// Engine wires the calculators together in data flow order:
// zones and net flow, then health and decision.
type Engine struct {
	zones      *ZoneCalculator
	decision   *DecisionEngine
	compliance *ComplianceScorer
}

func New() *Engine {
	return &Engine{
		zones:      NewZoneCalculator(),
		decision:   NewDecisionEngine(),
		compliance: NewComplianceScorer(),
	}
}

func (e *Engine) Decisions() *DecisionEngine {
	return e.decision
}

func (e *Engine) Compliance() *ComplianceScorer {
	return e.compliance
}

// Evaluate runs every per-item computation against snap.
func (e *Engine) Evaluate(in Input, snap Snapshot) Evaluation {
	zr := e.zones.Calculate(in.Item, snap)
	nf := NewNetFlowCalculator(snap.Params).Calculate(in.Item)
	health := NewHealthAnalyzer(snap.Params).Analyze(zr.Zones, nf, in.Item)
	limits := in.Constraints()

	ev := Evaluation{
		ItemID:   in.Item.ID,
		SKU:      in.Item.SKU,
		Zones:    zr,
		NetFlow:  nf,
		Health:   health,
		Decision: e.decision.Decide(nf.Position, zr.Zones, in.Signals),
		Quantity: decimal.Zero,
		Limits:   limits,
	}
	if ev.Decision.ShouldOrder {
		ev.Quantity = e.decision.OrderQuantity(nf.Position, zr.Zones, limits)
	}
	return ev
}
