package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/models"
)

// alertState is the per-kind condition level derived from one snapshot.
type alertState int

const (
	stateClear alertState = iota
	stateAttention
	stateCritical
)

func (s alertState) severity() models.AlertSeverity {
	if s == stateCritical {
		return models.SeverityCritical
	}
	return models.SeverityAttention
}

// AlertEngine evaluates each snapshot against the configured thresholds and
// maintains a per-kind state machine. Entering a non-clear state raises one
// alert; staying in the same state only bumps the alert's LastObserved;
// returning to clear resolves it. Alerts are never deleted, so the full
// history stays auditable.
type AlertEngine struct {
	cfg    config.MonitoringConfig
	logger *logrus.Logger

	mu      sync.Mutex
	states  map[models.AlertKind]alertState
	active  map[models.AlertKind]*models.Alert
	history []*models.Alert
}

// NewAlertEngine creates an alert engine with all kinds in the clear state.
func NewAlertEngine(cfg config.MonitoringConfig, logger *logrus.Logger) *AlertEngine {
	return &AlertEngine{
		cfg:    cfg,
		logger: logger,
		states: make(map[models.AlertKind]alertState),
		active: make(map[models.AlertKind]*models.Alert),
	}
}

// Evaluate runs the state machine over one snapshot and returns the alerts
// newly raised by this evaluation.
func (e *AlertEngine) Evaluate(snapshot *models.MonitoringSnapshot) []*models.Alert {
	now := time.Now().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	var raised []*models.Alert
	for kind, state := range e.classify(snapshot) {
		previous := e.states[kind]
		if state == previous {
			if alert, ok := e.active[kind]; ok {
				alert.LastObserved = now
			}
			continue
		}

		e.states[kind] = state
		if alert, ok := e.active[kind]; ok {
			alert.Resolved = true
			resolvedAt := now
			alert.ResolvedAt = &resolvedAt
			delete(e.active, kind)
		}

		if state == stateClear {
			e.logger.WithField("kind", kind).Info("Alert condition cleared")
			continue
		}

		alert := e.newAlert(kind, state, snapshot, now)
		e.active[kind] = alert
		e.history = append(e.history, alert)
		raised = append(raised, alert)

		e.logger.WithFields(logrus.Fields{
			"kind":     alert.Kind,
			"severity": alert.Severity,
			"message":  alert.Message,
		}).Warn("Alert raised")
	}
	return raised
}

// classify derives each kind's state from the snapshot alone.
func (e *AlertEngine) classify(snapshot *models.MonitoringSnapshot) map[models.AlertKind]alertState {
	states := map[models.AlertKind]alertState{
		models.AlertPerformanceDegradation: stateClear,
		models.AlertDataDrift:              stateClear,
		models.AlertHighRiskCustomer:       stateClear,
		models.AlertLowVolume:              stateClear,
	}

	if snapshot.Performance.Available {
		switch accuracy := snapshot.Performance.Accuracy; {
		case accuracy < e.cfg.PerformanceCritical:
			states[models.AlertPerformanceDegradation] = stateCritical
		case accuracy < e.cfg.PerformanceAttention:
			states[models.AlertPerformanceDegradation] = stateAttention
		}
	}

	switch drift := snapshot.DriftScore; {
	case drift > e.cfg.DriftCritical:
		states[models.AlertDataDrift] = stateCritical
	case drift > e.cfg.DriftAttention:
		states[models.AlertDataDrift] = stateAttention
	}

	if snapshot.HighRiskCount > e.cfg.HighRiskThreshold {
		states[models.AlertHighRiskCustomer] = stateCritical
	}

	windowDays := e.cfg.WindowDays
	if windowDays < 1 {
		windowDays = 1
	}
	if snapshot.PredictionVolume < e.cfg.MinDailyVolume*windowDays {
		states[models.AlertLowVolume] = stateAttention
	}

	return states
}

func (e *AlertEngine) newAlert(kind models.AlertKind, state alertState, snapshot *models.MonitoringSnapshot, now time.Time) *models.Alert {
	alert := &models.Alert{
		ID:           uuid.New().String(),
		Kind:         kind,
		Severity:     state.severity(),
		RaisedAt:     now,
		LastObserved: now,
	}

	switch kind {
	case models.AlertPerformanceDegradation:
		alert.Message = fmt.Sprintf("Model accuracy dropped to %.2f over the current window", snapshot.Performance.Accuracy)
		alert.Action = "Review recent outcomes and consider retraining the model"
	case models.AlertDataDrift:
		alert.Message = fmt.Sprintf("Prediction distribution drift score %.3f exceeds threshold", snapshot.DriftScore)
		alert.Action = "Compare incoming feature distributions against training data"
	case models.AlertHighRiskCustomer:
		alert.Message = fmt.Sprintf("%d customers scored high risk in the current window", snapshot.HighRiskCount)
		alert.Action = "Escalate the high-risk customer list to the retention team"
	case models.AlertLowVolume:
		alert.Message = fmt.Sprintf("Only %d predictions in the current window, below the expected floor", snapshot.PredictionVolume)
		alert.Action = "Check upstream ingestion and scoring pipelines for stalls"
	}
	return alert
}

// Alerts returns the full alert history, oldest first.
func (e *AlertEngine) Alerts() []*models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.Alert, len(e.history))
	copy(out, e.history)
	return out
}

// ActiveAlerts returns the currently unresolved alerts.
func (e *AlertEngine) ActiveAlerts() []*models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.Alert, 0, len(e.active))
	for _, alert := range e.active {
		out = append(out, alert)
	}
	return out
}
