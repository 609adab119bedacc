package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/rs/zerolog/log"
)

// ComplianceService builds DDS&OP compliance reports. A report is either
// complete or not returned at all.
type ComplianceService struct {
	buffers *BufferService
	scorer  *engine.ComplianceScorer
}

func NewComplianceService(buffers *BufferService) *ComplianceService {
	return &ComplianceService{buffers: buffers, scorer: buffers.Engine().Compliance()}
}

// Report scores buffer compliance over the current catalog, combines it with
// the process sub-scores in input and attaches advisory recommendations.
func (s *ComplianceService) Report(ctx context.Context, filter domain.ItemFilter, input domain.ComplianceInput) (*domain.ComplianceReport, error) {
	evaluations, err := s.buffers.EvaluateAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("compliance: %w", err)
	}

	positions := make([]engine.ItemPosition, 0, len(evaluations))
	for _, ev := range evaluations {
		positions = append(positions, ev.Position())
	}

	bufferScore, scored, err := s.scorer.BufferCompliance(positions)
	if err != nil {
		return nil, fmt.Errorf("compliance: %w", err)
	}

	subScores := input.SubScores
	subScores.BufferCompliance = bufferScore

	overall, err := s.scorer.Score(subScores)
	if err != nil {
		return nil, fmt.Errorf("compliance: %w", err)
	}

	recommendations, err := s.scorer.Recommendations(input.Metrics, input.Adjustments, input.Steps)
	if err != nil {
		return nil, fmt.Errorf("compliance: %w", err)
	}
	if recommendations == nil {
		recommendations = make([]domain.Recommendation, 0)
	}

	log.Info().
		Float64("overall_score", overall).
		Float64("buffer_compliance", bufferScore).
		Int("items_scored", scored).
		Int("recommendations", len(recommendations)).
		Msg("compliance report built")

	return &domain.ComplianceReport{
		OverallScore:    overall,
		SubScores:       subScores,
		ItemsScored:     scored,
		Recommendations: recommendations,
	}, nil
}
