package models

import "time"

// PerformanceMetrics holds classification quality over a window. The fields
// are only populated when ground-truth outcomes were supplied for the window;
// Available distinguishes "no labels yet" from a genuine zero.
type PerformanceMetrics struct {
	Available    bool    `json:"available"`
	LabeledCount int     `json:"labeled_count"`
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
}

// MonitoringSnapshot is one closed time window of pipeline health, appended
// to a bounded, chronologically ordered history.
type MonitoringSnapshot struct {
	WindowStart      time.Time          `json:"window_start" db:"window_start"`
	WindowEnd        time.Time          `json:"window_end" db:"window_end"`
	PredictionVolume int                `json:"prediction_volume" db:"prediction_volume"`
	ChurnRate        float64            `json:"churn_rate" db:"churn_rate"`
	MeanProbability  float64            `json:"mean_probability" db:"mean_probability"`
	HighRiskCount    int                `json:"high_risk_count" db:"high_risk_count"`
	DriftScore       float64            `json:"drift_score" db:"drift_score"`
	Performance      PerformanceMetrics `json:"performance"`
}

// AlertSeverity is the severity of a raised alert.
type AlertSeverity string

const (
	SeverityAttention AlertSeverity = "attention"
	SeverityCritical  AlertSeverity = "critical"
)

// AlertKind identifies the monitored condition behind an alert.
type AlertKind string

const (
	AlertPerformanceDegradation AlertKind = "performance_degradation"
	AlertDataDrift              AlertKind = "data_drift"
	AlertHighRiskCustomer       AlertKind = "high_risk_customer"
	AlertLowVolume              AlertKind = "low_volume"
)

// Alert is a raised monitoring condition. Alerts are cleared by marking them
// resolved, never deleted, so the history stays auditable.
type Alert struct {
	ID           string        `json:"id" db:"id"`
	Kind         AlertKind     `json:"kind" db:"kind"`
	Severity     AlertSeverity `json:"severity" db:"severity"`
	Message      string        `json:"message" db:"message"`
	Action       string        `json:"action" db:"action"`
	RaisedAt     time.Time     `json:"raised_at" db:"raised_at"`
	LastObserved time.Time     `json:"last_observed" db:"last_observed"`
	Resolved     bool          `json:"resolved" db:"resolved"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
