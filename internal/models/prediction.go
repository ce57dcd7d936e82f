package models

import "time"

// RiskLevel is the discretized bucket derived from churn probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PredictionResult is the output of scoring one customer record.
// Immutable once created.
type PredictionResult struct {
	RecordID    string    `json:"record_id" db:"record_id"`
	WillChurn   bool      `json:"will_churn" db:"will_churn"`
	Probability float64   `json:"probability" db:"probability"`
	RiskLevel   RiskLevel `json:"risk_level" db:"risk_level"`
	Confidence  float64   `json:"confidence" db:"confidence"`
	PredictedAt time.Time `json:"predicted_at" db:"predicted_at"`
}

// AttributionMethod distinguishes exact decompositions from the degraded
// global-importance fallback.
type AttributionMethod string

const (
	AttributionExact       AttributionMethod = "exact"
	AttributionApproximate AttributionMethod = "approximate"
)

// ContributionDirection indicates which way a feature pushes the prediction.
type ContributionDirection string

const (
	DirectionIncreases ContributionDirection = "increases"
	DirectionDecreases ContributionDirection = "decreases"
)

// FeatureContribution is one feature's signed share of the prediction
// relative to the baseline expected value.
type FeatureContribution struct {
	Feature      string                `json:"feature"`
	DisplayName  string                `json:"display_name"`
	Value        float64               `json:"value"`
	Contribution float64               `json:"contribution"`
	Direction    ContributionDirection `json:"direction"`
}

// ExplanationResult decomposes one prediction into per-feature contributions.
// Contributions sum (within numerical tolerance) to FinalValue - BaselineValue.
type ExplanationResult struct {
	RecordID      string                `json:"record_id"`
	Method        AttributionMethod     `json:"method"`
	BaselineValue float64               `json:"baseline_value"`
	FinalValue    float64               `json:"final_value"`
	Contributions []FeatureContribution `json:"contributions"`
	TopFactors    []FeatureContribution `json:"top_factors"`
	Summary       []string              `json:"summary"`
	Actions       []string              `json:"actions"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// BatchOutcome is the per-record result inside a batch: either a
// prediction/explanation pair or a failure descriptor, never both.
type BatchOutcome struct {
	Row         int                `json:"row"`
	Record      *CustomerRecord    `json:"record,omitempty"`
	Prediction  *PredictionResult  `json:"prediction,omitempty"`
	Explanation *ExplanationResult `json:"explanation,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Failed reports whether this outcome is a per-record failure.
func (o BatchOutcome) Failed() bool {
	return o.Error != ""
}
