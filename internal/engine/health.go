package engine

import (
	"math"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

// priorityTiers map penetration to planning priority, lower bound inclusive.
var priorityTiers = LowerBoundTable[domain.Priority]{
	Steps: []LowerBound[domain.Priority]{
		{Min: 95, Value: domain.PriorityCritical},
		{Min: 85, Value: domain.PriorityVeryHigh},
		{Min: 70, Value: domain.PriorityHigh},
		{Min: 50, Value: domain.PriorityMedium},
		{Min: 25, Value: domain.PriorityLow},
	},
	Otherwise: domain.PriorityVeryLow,
}

// HealthAnalyzer derives penetration, priority and secondary ratios.
type HealthAnalyzer struct {
	fillRate UpperBoundTable[float64]
}

func NewHealthAnalyzer(params Parameters) *HealthAnalyzer {
	return &HealthAnalyzer{fillRate: params.FillRate}
}

// Analyze never divides by a zero buffer: an empty buffer is 0% penetrated
// and 0% healthy.
func (ha *HealthAnalyzer) Analyze(zones domain.BufferZones, nf domain.NetFlow, item domain.InventoryItem) domain.Health {
	penetration := Penetration(zones, nf.Position)

	return domain.Health{
		Penetration:         penetration,
		Priority:            PriorityFor(penetration),
		TurnsRatio:          turnsRatio(item.ADU, nf),
		BufferHealth:        bufferHealth(zones, nf.Position),
		LeadTimeCompression: leadTimeCompression(item.OriginalLeadTime, item.DecoupledLeadTime),
		FillRateEstimate:    ha.fillRate.Lookup(penetration),
	}
}

// Penetration is the share of the total buffer consumed, clamped to [0,100].
func Penetration(zones domain.BufferZones, netFlowPosition float64) float64 {
	total := zones.Total()
	if total <= 0 {
		return 0
	}
	return clamp((total-netFlowPosition)/total*100, 0, 100)
}

// PriorityFor returns the planning priority tier of a penetration value.
func PriorityFor(penetration float64) domain.Priority {
	return priorityTiers.Lookup(penetration)
}

func bufferHealth(zones domain.BufferZones, nfp float64) float64 {
	total := zones.Total()
	if total <= 0 {
		return 0
	}
	deviation := math.Abs(nfp-zones.IdealPosition()) / total * 100
	return math.Max(0, 100-deviation)
}

func turnsRatio(adu *float64, nf domain.NetFlow) float64 {
	if adu == nil {
		return 0
	}
	avgInventory := (nf.OnHand + (nf.OnHand - nf.QualifiedDemand + nf.OnOrder)) / 2
	if avgInventory <= 0 {
		return 0
	}
	return *adu * 365 / avgInventory
}

func leadTimeCompression(original, decoupled *int) float64 {
	if original == nil || *original == 0 || decoupled == nil {
		return 0
	}
	return 100 * (1 - float64(*decoupled)/float64(*original))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
