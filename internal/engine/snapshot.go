package engine

import (
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
)

// Fixed ratios of ADU × lead time used when no configuration is available.
const (
	degradedRedRatio    = 0.33
	degradedYellowRatio = 1.0
	degradedGreenRatio  = 0.5
)

// Parameters are the tunable constants of the engine that do not live in the
// buffer factor configuration.
type Parameters struct {
	// SpikeDampening is applied to demand above the order spike threshold.
	SpikeDampening float64
	// FillRate maps penetration (upper bound inclusive) to an estimated fill rate.
	FillRate UpperBoundTable[float64]
}

// DefaultParameters returns the engine defaults: 0.5 spike dampening and the
// 99/95/90/80 fill rate steps.
func DefaultParameters() Parameters {
	return Parameters{
		SpikeDampening: 0.5,
		FillRate: UpperBoundTable[float64]{
			Steps: []UpperBound[float64]{
				{Max: 70, Value: 99},
				{Max: 85, Value: 95},
				{Max: 95, Value: 90},
			},
			Otherwise: 80,
		},
	}
}

// Snapshot is the immutable view of configuration used for one computation
// pass. A nil Config means the active configuration could not be obtained and
// zones fall back to degraded ratios.
type Snapshot struct {
	Config  *domain.BufferFactorConfig
	Params  Parameters
	TakenAt time.Time
}

// NewSnapshot captures cfg for a computation pass.
func NewSnapshot(cfg domain.BufferFactorConfig, params Parameters) Snapshot {
	c := cfg
	return Snapshot{Config: &c, Params: params, TakenAt: time.Now()}
}

// DegradedSnapshot is used when the configuration store failed.
func DegradedSnapshot(params Parameters) Snapshot {
	return Snapshot{Params: params, TakenAt: time.Now()}
}

// Degraded reports whether the snapshot has no configuration.
func (s Snapshot) Degraded() bool {
	return s.Config == nil
}

// leadTimeFactors orders the configured categories; a threshold belongs to
// the shorter category.
func (s Snapshot) leadTimeFactors() UpperBoundTable[float64] {
	return UpperBoundTable[float64]{
		Steps: []UpperBound[float64]{
			{Max: float64(s.Config.ShortLeadTimeThreshold), Value: s.Config.ShortLeadTimeFactor},
			{Max: float64(s.Config.MediumLeadTimeThreshold), Value: s.Config.MediumLeadTimeFactor},
		},
		Otherwise: s.Config.LongLeadTimeFactor,
	}
}
