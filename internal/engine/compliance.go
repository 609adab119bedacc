package engine

import (
	"fmt"
	"math"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

// Weights of the organizational compliance score. They sum to 1.0.
const (
	WeightDemandReview       = 0.15
	WeightSupplyReview       = 0.15
	WeightIntegration        = 0.15
	WeightManagementReview   = 0.10
	WeightFinancialAlignment = 0.15
	WeightStrategicAlignment = 0.10
	WeightTacticalExecution  = 0.10
	WeightBufferCompliance   = 0.10
)

// highImpactRatio: a metric below this share of its target is high impact.
const highImpactRatio = 0.8

// ItemPosition is the minimum needed to score one item's buffer compliance.
type ItemPosition struct {
	Zones           domain.BufferZones
	NetFlowPosition float64
}

// ComplianceScorer aggregates buffer and process compliance for DDS&OP.
type ComplianceScorer struct{}

func NewComplianceScorer() *ComplianceScorer {
	return &ComplianceScorer{}
}

// ItemCompliance scores how close an item sits to its ideal position. ok is
// false for items without a buffer, which do not count towards the average.
func (cs *ComplianceScorer) ItemCompliance(zones domain.BufferZones, nfp float64) (float64, bool) {
	total := zones.Total()
	if total <= 0 {
		return 0, false
	}
	deviation := math.Abs(nfp-zones.IdealPosition()) / total * 100
	return 100 - math.Min(100, deviation), true
}

// BufferCompliance averages item compliance over items with a buffer. It
// returns the number of items scored.
func (cs *ComplianceScorer) BufferCompliance(items []ItemPosition) (float64, int, error) {
	var (
		sum    float64
		scored int
	)
	for i, it := range items {
		if !finite(it.NetFlowPosition, it.Zones.Red, it.Zones.Yellow, it.Zones.Green) {
			return 0, 0, fmt.Errorf("%w: item %d has a non-finite position", domain.ErrInvalidInput, i)
		}
		score, ok := cs.ItemCompliance(it.Zones, it.NetFlowPosition)
		if !ok {
			continue
		}
		sum += score
		scored++
	}
	if scored == 0 {
		return 0, 0, nil
	}
	return sum / float64(scored), scored, nil
}

// Score is the fixed-weight sum of the eight sub-scores.
func (cs *ComplianceScorer) Score(s domain.SubScores) (float64, error) {
	if !finite(s.DemandReview, s.SupplyReview, s.Integration, s.ManagementReview,
		s.FinancialAlignment, s.StrategicAlignment, s.TacticalExecution, s.BufferCompliance) {
		return 0, fmt.Errorf("%w: sub-scores must be finite", domain.ErrInvalidInput)
	}

	return s.DemandReview*WeightDemandReview +
		s.SupplyReview*WeightSupplyReview +
		s.Integration*WeightIntegration +
		s.ManagementReview*WeightManagementReview +
		s.FinancialAlignment*WeightFinancialAlignment +
		s.StrategicAlignment*WeightStrategicAlignment +
		s.TacticalExecution*WeightTacticalExecution +
		s.BufferCompliance*WeightBufferCompliance, nil
}

// Recommendations applies the review rules in order: metrics below target,
// unaligned tactical adjustments, then pending process steps.
func (cs *ComplianceScorer) Recommendations(
	metrics []domain.ProcessMetric,
	adjustments []domain.TacticalAdjustment,
	steps []domain.ProcessStep,
) ([]domain.Recommendation, error) {
	recs := make([]domain.Recommendation, 0)

	for _, m := range metrics {
		if !finite(m.Value, m.Target) || m.Target <= 0 {
			return nil, fmt.Errorf("%w: metric %q needs a finite value and a positive target", domain.ErrInvalidInput, m.Name)
		}
		if m.Value >= m.Target {
			continue
		}
		impact := domain.ImpactMedium
		if m.Value < m.Target*highImpactRatio {
			impact = domain.ImpactHigh
		}
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationMetric,
			Subject: m.Name,
			Message: fmt.Sprintf("%s is at %.1f against a target of %.1f; review the %s process", m.Name, m.Value, m.Target, areaOrDefault(m.Area)),
			Impact:  impact,
		})
	}

	for _, a := range adjustments {
		if a.Aligned {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationStrategic,
			Subject: a.ID,
			Message: fmt.Sprintf("tactical adjustment %q is not aligned with the DDS&OP plan; revisit buffer parameters", a.Description),
			Impact:  domain.ImpactMedium,
		})
	}

	for _, s := range steps {
		if !s.Pending {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Kind:      domain.RecommendationPendingStep,
			Subject:   s.Name,
			Message:   fmt.Sprintf("complete pending step %q", s.Name),
			Impact:    domain.ImpactHigh,
			Immediate: true,
		})
	}

	return recs, nil
}

func areaOrDefault(area string) string {
	if area == "" {
		return "related"
	}
	return area
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
