// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Adjustments are the dynamic demand multipliers applied to the red zone.
// A zero value means unset and is treated as 1.0.
type Adjustments struct {
	Seasonality    float64 `json:"seasonality" db:"seasonality"`
	Trend          float64 `json:"trend" db:"trend"`
	MarketStrategy float64 `json:"market_strategy" db:"market_strategy"`
}

// Combined returns seasonality × trend × marketStrategy with unset values as 1.0.
func (a Adjustments) Combined() float64 {
	return orOne(a.Seasonality) * orOne(a.Trend) * orOne(a.MarketStrategy)
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// BufferZones are the red/yellow/green stock bands of an item.
type BufferZones struct {
	Red    float64 `json:"red" db:"red_zone"`
	Yellow float64 `json:"yellow" db:"yellow_zone"`
	Green  float64 `json:"green" db:"green_zone"`
}

// Total returns red + yellow + green.
func (z BufferZones) Total() float64 {
	return z.Red + z.Yellow + z.Green
}

// IdealPosition is the middle of the yellow zone stacked on red.
func (z BufferZones) IdealPosition() float64 {
	return z.Red + 0.5*z.Yellow
}

// InventoryItem is one product held at one location.
type InventoryItem struct {
	ID                  string   `json:"id" db:"id"`
	SKU                 string   `json:"sku" db:"sku"`
	Name                string   `json:"name" db:"name"`
	LocationID          string   `json:"location_id" db:"location_id"`
	ADU                 *float64 `json:"adu,omitempty" db:"adu"`
	LeadTimeDays        *int     `json:"lead_time_days,omitempty" db:"lead_time_days"`
	VariabilityFactor   float64  `json:"variability_factor" db:"variability_factor"`
	Adjustments         `json:"adjustments"`
	OnHand              float64  `json:"on_hand" db:"on_hand"`
	OnOrder             float64  `json:"on_order" db:"on_order"`
	QualifiedDemand     float64  `json:"qualified_demand" db:"qualified_demand"`
	OrderSpikeThreshold *float64 `json:"order_spike_threshold,omitempty" db:"order_spike_threshold"`
	OriginalLeadTime    *int     `json:"original_lead_time,omitempty" db:"original_lead_time"`
	DecoupledLeadTime   *int     `json:"decoupled_lead_time,omitempty" db:"decoupled_lead_time"`
	EOQ                 *float64 `json:"eoq,omitempty" db:"eoq"`
	BufferZones         `json:"zones"`
	NetFlowPosition     float64    `json:"net_flow_position" db:"net_flow_position"`
	BufferPenetration   float64    `json:"buffer_penetration" db:"buffer_penetration"`
	PlanningPriority    Priority   `json:"planning_priority" db:"planning_priority"`
	BufferHealth        float64    `json:"buffer_health" db:"buffer_health"`
	FillRate            float64    `json:"fill_rate" db:"fill_rate"`
	ComputedAt          *time.Time `json:"computed_at,omitempty" db:"computed_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Variability returns the variability factor, defaulting to 1.0.
func (i InventoryItem) Variability() float64 {
	return orOne(i.VariabilityFactor)
}

// NetFlow is the planning position of an item.
type NetFlow struct {
	OnHand          float64 `json:"on_hand"`
	OnOrder         float64 `json:"on_order"`
	QualifiedDemand float64 `json:"qualified_demand"`
	Position        float64 `json:"net_flow_position"`
}

// Health holds the metrics derived from zones and net flow.
type Health struct {
	Penetration         float64  `json:"penetration"`
	Priority            Priority `json:"priority"`
	TurnsRatio          float64  `json:"turns_ratio"`
	BufferHealth        float64  `json:"buffer_health"`
	LeadTimeCompression float64  `json:"lead_time_compression"`
	FillRateEstimate    float64  `json:"fill_rate_estimate"`
}

// ComputedFields is what a recompute writes back to an item.
type ComputedFields struct {
	Zones           BufferZones
	NetFlowPosition float64
	Penetration     float64
	Priority        Priority
	BufferHealth    float64
	FillRate        float64
	ComputedAt      time.Time
}

// BufferFactorConfig is a global tuning record. Rows are never edited; a new
// row is appended and becomes the single active one.
type BufferFactorConfig struct {
	ID                      int64     `json:"id" db:"id"`
	ShortLeadTimeFactor     float64   `json:"short_lead_time_factor" db:"short_lead_time_factor"`
	MediumLeadTimeFactor    float64   `json:"medium_lead_time_factor" db:"medium_lead_time_factor"`
	LongLeadTimeFactor      float64   `json:"long_lead_time_factor" db:"long_lead_time_factor"`
	ShortLeadTimeThreshold  int       `json:"short_lead_time_threshold" db:"short_lead_time_threshold"`
	MediumLeadTimeThreshold int       `json:"medium_lead_time_threshold" db:"medium_lead_time_threshold"`
	ReplenishmentTimeFactor float64   `json:"replenishment_time_factor" db:"replenishment_time_factor"`
	GreenZoneFactor         float64   `json:"green_zone_factor" db:"green_zone_factor"`
	IsActive                bool      `json:"is_active" db:"is_active"`
	CreatedBy               string    `json:"created_by" db:"created_by"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the factors and thresholds of a configuration before activation.
func (c BufferFactorConfig) Validate() error {
	switch {
	case c.ShortLeadTimeFactor < 0 || c.MediumLeadTimeFactor < 0 || c.LongLeadTimeFactor < 0:
		return invalidConfig("lead time factors must be non-negative")
	case c.ShortLeadTimeThreshold < 0:
		return invalidConfig("short lead time threshold must be non-negative")
	case c.MediumLeadTimeThreshold < c.ShortLeadTimeThreshold:
		return invalidConfig("medium lead time threshold must not be below the short threshold")
	case c.ReplenishmentTimeFactor < 0:
		return invalidConfig("replenishment time factor must be non-negative")
	case c.GreenZoneFactor < 0:
		return invalidConfig("green zone factor must be non-negative")
	}
	return nil
}

// BufferProfile is a reusable ordering template attached to a decoupling point.
type BufferProfile struct {
	ID                  int64               `json:"id" db:"id"`
	Name                string              `json:"name" db:"name"`
	VariabilityCategory VariabilityCategory `json:"variability_category" db:"variability_category"`
	LeadTimeCategory    LeadTimeCategory    `json:"lead_time_category" db:"lead_time_category"`
	MOQ                 *float64            `json:"moq,omitempty" db:"moq"`
	LotSizeFactor       *float64            `json:"lot_size_factor,omitempty" db:"lot_size_factor"`
	Description         string              `json:"description" db:"description"`
}

// DecouplingPoint binds a location to a buffer profile.
type DecouplingPoint struct {
	ID              int64               `json:"id" db:"id"`
	LocationID      string              `json:"location_id" db:"location_id"`
	BufferProfileID int64               `json:"buffer_profile_id" db:"buffer_profile_id"`
	Type            DecouplingPointType `json:"type" db:"type"`
}

// SupplySignals are optional per-item supply risk flags.
type SupplySignals struct {
	ItemID         string    `json:"item_id" db:"item_id"`
	LeadTimeAlert  bool      `json:"lead_time_alert" db:"lead_time_alert"`
	QualityAlert   bool      `json:"quality_alert" db:"quality_alert"`
	OrderDelayRisk DelayRisk `json:"order_delay_risk" db:"order_delay_risk"`
}

// Elevated reports whether any signal warrants escalating urgency.
func (s SupplySignals) Elevated() bool {
	return s.LeadTimeAlert || s.QualityAlert || s.OrderDelayRisk == DelayRiskHigh
}

// ReplenishmentOrder is a recommended purchase produced by the decision engine.
type ReplenishmentOrder struct {
	ID        string          `json:"id" db:"id"`
	PONumber  string          `json:"po_number" db:"po_number"`
	ItemID    string          `json:"item_id" db:"item_id"`
	SKU       string          `json:"sku" db:"sku"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Urgency   Urgency         `json:"urgency" db:"urgency"`
	OrderDate time.Time       `json:"order_date" db:"order_date"`
	DueDate   time.Time       `json:"due_date" db:"due_date"`
	Status    OrderStatus     `json:"status" db:"status"`
	Reason    string          `json:"reason" db:"reason"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PrioritySummary counts items per planning priority.
type PrioritySummary struct {
	Priority Priority `json:"priority" db:"planning_priority"`
	Count    int      `json:"count" db:"count"`
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	LocationID string
	Priority   Priority
}
