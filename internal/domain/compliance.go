package domain

// ProcessMetric is a DDS&OP cycle metric measured against a target.
type ProcessMetric struct {
	Name   string  `json:"name" binding:"required"`
	Area   string  `json:"area"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
}

// TacticalAdjustment is a planner override reviewed in the DDS&OP cycle.
type TacticalAdjustment struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Aligned     bool   `json:"aligned"`
}

// ProcessStep is one step of the DDS&OP review process.
type ProcessStep struct {
	Name    string `json:"name"`
	Pending bool   `json:"pending"`
}

// SubScores are the eight components of the organizational compliance score.
type SubScores struct {
	DemandReview       float64 `json:"demand_review"`
	SupplyReview       float64 `json:"supply_review"`
	Integration        float64 `json:"integration"`
	ManagementReview   float64 `json:"management_review"`
	FinancialAlignment float64 `json:"financial_alignment"`
	StrategicAlignment float64 `json:"strategic_alignment"`
	TacticalExecution  float64 `json:"tactical_execution"`
	BufferCompliance   float64 `json:"buffer_compliance"`
}

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
)

type RecommendationKind string

const (
	RecommendationMetric      RecommendationKind = "metric"
	RecommendationStrategic   RecommendationKind = "strategic_alignment"
	RecommendationPendingStep RecommendationKind = "pending_step"
)

// Recommendation is advisory output of the compliance review. Never applied automatically.
type Recommendation struct {
	Kind      RecommendationKind `json:"kind"`
	Subject   string             `json:"subject"`
	Message   string             `json:"message"`
	Impact    Impact             `json:"impact"`
	Immediate bool               `json:"immediate"`
}

// ComplianceInput carries the process side of a compliance review.
type ComplianceInput struct {
	SubScores   SubScores            `json:"sub_scores"`
	Metrics     []ProcessMetric      `json:"metrics"`
	Adjustments []TacticalAdjustment `json:"adjustments"`
	Steps       []ProcessStep        `json:"steps"`
}

// ComplianceReport is the all-or-nothing aggregate result.
type ComplianceReport struct {
	OverallScore    float64          `json:"overall_score"`
	SubScores       SubScores        `json:"sub_scores"`
	ItemsScored     int              `json:"items_scored"`
	Recommendations []Recommendation `json:"recommendations"`
}
