package engine

import (
	"math"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

// ZoneMode tags how a set of zones was produced.
type ZoneMode string

const (
	ZoneModePrecise  ZoneMode = "precise"
	ZoneModeDegraded ZoneMode = "degraded"
)

// ZoneResult is the zones of one item together with the mode they were
// computed in, so approximate output is never mistaken for precise output.
type ZoneResult struct {
	Zones domain.BufferZones `json:"zones"`
	Mode  ZoneMode           `json:"mode"`
}

// Degraded reports whether the zones came from the fallback ratios.
func (r ZoneResult) Degraded() bool {
	return r.Mode == ZoneModeDegraded
}

// ZoneCalculator sizes red, yellow and green zones.
type ZoneCalculator struct{}

func NewZoneCalculator() *ZoneCalculator {
	return &ZoneCalculator{}
}

// Calculate computes zones for item under snap. Missing ADU or lead time is a
// normal state and yields zero zones.
func (zc *ZoneCalculator) Calculate(item domain.InventoryItem, snap Snapshot) ZoneResult {
	if snap.Degraded() {
		return ZoneResult{Zones: degradedZones(item), Mode: ZoneModeDegraded}
	}

	result := ZoneResult{Mode: ZoneModePrecise}
	if item.ADU == nil || item.LeadTimeDays == nil {
		return result
	}

	adu := *item.ADU
	lt := float64(*item.LeadTimeDays)
	cfg := snap.Config

	// 1. Lead time factor from the configured categories
	ltFactor := snap.leadTimeFactors().Lookup(lt)

	// 2. Red = ADU × LT factor × variability × adjustments
	red := adu * ltFactor * item.Variability() * item.Adjustments.Combined()

	// 3. Yellow = ADU × LT × replenishment time factor
	yellow := adu * lt * cfg.ReplenishmentTimeFactor

	// 4. Green sized off the rounded yellow zone
	roundedYellow := math.Round(yellow)
	green := roundedYellow * cfg.GreenZoneFactor

	result.Zones = domain.BufferZones{
		Red:    nonNegative(math.Round(red)),
		Yellow: nonNegative(roundedYellow),
		Green:  nonNegative(math.Round(green)),
	}
	return result
}

func degradedZones(item domain.InventoryItem) domain.BufferZones {
	if item.ADU == nil || item.LeadTimeDays == nil {
		return domain.BufferZones{}
	}
	base := *item.ADU * float64(*item.LeadTimeDays)
	return domain.BufferZones{
		Red:    nonNegative(math.Round(base * degradedRedRatio)),
		Yellow: nonNegative(math.Round(base * degradedYellowRatio)),
		Green:  nonNegative(math.Round(base * degradedGreenRatio)),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
