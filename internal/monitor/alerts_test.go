package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/models"
)

func performanceSnapshot(accuracy float64) *models.MonitoringSnapshot {
	return &models.MonitoringSnapshot{
		WindowStart:      time.Now().UTC().Add(-time.Hour),
		WindowEnd:        time.Now().UTC(),
		PredictionVolume: 100,
		Performance: models.PerformanceMetrics{
			Available:    true,
			LabeledCount: 100,
			Accuracy:     accuracy,
		},
	}
}

func alertsOfKind(alerts []*models.Alert, kind models.AlertKind) []*models.Alert {
	var out []*models.Alert
	for _, alert := range alerts {
		if alert.Kind == kind {
			out = append(out, alert)
		}
	}
	return out
}

func TestAlertEngine_PerformanceDegradationLifecycle(t *testing.T) {
	engine := NewAlertEngine(testMonitoringConfig(), quietLogger())

	// Healthy window: nothing raised.
	raised := engine.Evaluate(performanceSnapshot(0.90))
	assert.Empty(t, alertsOfKind(raised, models.AlertPerformanceDegradation))

	// Drops below attention threshold.
	raised = engine.Evaluate(performanceSnapshot(0.78))
	attention := alertsOfKind(raised, models.AlertPerformanceDegradation)
	require.Len(t, attention, 1)
	assert.Equal(t, models.SeverityAttention, attention[0].Severity)
	assert.NotEmpty(t, attention[0].Message)
	assert.NotEmpty(t, attention[0].Action)

	// Same state again: no new alert, only LastObserved moves.
	before := attention[0].LastObserved
	raised = engine.Evaluate(performanceSnapshot(0.79))
	assert.Empty(t, alertsOfKind(raised, models.AlertPerformanceDegradation))
	assert.False(t, attention[0].LastObserved.Before(before))
	assert.False(t, attention[0].Resolved)

	// Escalation to critical resolves the attention alert and raises one
	// critical alert.
	raised = engine.Evaluate(performanceSnapshot(0.74))
	critical := alertsOfKind(raised, models.AlertPerformanceDegradation)
	require.Len(t, critical, 1)
	assert.Equal(t, models.SeverityCritical, critical[0].Severity)
	assert.True(t, attention[0].Resolved)
	require.NotNil(t, attention[0].ResolvedAt)

	// Recovery resolves the critical alert without deleting history.
	raised = engine.Evaluate(performanceSnapshot(0.91))
	assert.Empty(t, alertsOfKind(raised, models.AlertPerformanceDegradation))
	assert.True(t, critical[0].Resolved)

	history := alertsOfKind(engine.Alerts(), models.AlertPerformanceDegradation)
	assert.Len(t, history, 2)
	assert.Empty(t, engine.ActiveAlerts())
}

func TestAlertEngine_DataDrift(t *testing.T) {
	engine := NewAlertEngine(testMonitoringConfig(), quietLogger())

	snapshot := performanceSnapshot(0.90)
	snapshot.DriftScore = 0.15
	raised := engine.Evaluate(snapshot)
	drift := alertsOfKind(raised, models.AlertDataDrift)
	require.Len(t, drift, 1)
	assert.Equal(t, models.SeverityAttention, drift[0].Severity)

	snapshot.DriftScore = 0.30
	raised = engine.Evaluate(snapshot)
	drift = alertsOfKind(raised, models.AlertDataDrift)
	require.Len(t, drift, 1)
	assert.Equal(t, models.SeverityCritical, drift[0].Severity)
}

func TestAlertEngine_HighRiskRollUp(t *testing.T) {
	engine := NewAlertEngine(testMonitoringConfig(), quietLogger())

	snapshot := performanceSnapshot(0.90)
	snapshot.HighRiskCount = 26
	raised := engine.Evaluate(snapshot)
	highRisk := alertsOfKind(raised, models.AlertHighRiskCustomer)
	require.Len(t, highRisk, 1)
	assert.Equal(t, models.SeverityCritical, highRisk[0].Severity)

	// At the threshold exactly, no alert.
	engine = NewAlertEngine(testMonitoringConfig(), quietLogger())
	snapshot.HighRiskCount = 25
	raised = engine.Evaluate(snapshot)
	assert.Empty(t, alertsOfKind(raised, models.AlertHighRiskCustomer))
}

func TestAlertEngine_LowVolume(t *testing.T) {
	cfg := testMonitoringConfig()
	cfg.WindowDays = 1
	cfg.MinDailyVolume = 20
	engine := NewAlertEngine(cfg, quietLogger())

	snapshot := performanceSnapshot(0.90)
	snapshot.PredictionVolume = 5
	raised := engine.Evaluate(snapshot)
	lowVolume := alertsOfKind(raised, models.AlertLowVolume)
	require.Len(t, lowVolume, 1)
	assert.Equal(t, models.SeverityAttention, lowVolume[0].Severity)

	snapshot.PredictionVolume = 40
	engine.Evaluate(snapshot)
	assert.True(t, lowVolume[0].Resolved)
}
