package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retenio/churnguard-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PredictionRepository persists scoring activity: predictions, closed
// monitoring windows and alerts. All writes are collaborator-facing and
// best-effort from the pipeline's point of view; the scoring path never
// depends on them succeeding.
type PredictionRepository struct {
	pool DatabasePool
}

// NewPredictionRepository creates a new prediction repository.
func NewPredictionRepository(pool DatabasePool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

// SavePrediction stores one scored prediction.
func (r *PredictionRepository) SavePrediction(ctx context.Context, result *models.PredictionResult) error {
	query := `
		INSERT INTO predictions (record_id, will_churn, probability, risk_level, confidence, predicted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		result.RecordID,
		result.WillChurn,
		result.Probability,
		string(result.RiskLevel),
		result.Confidence,
		result.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// ListRecentPredictions returns the newest predictions, most recent first.
func (r *PredictionRepository) ListRecentPredictions(ctx context.Context, limit int) ([]models.PredictionResult, error) {
	query := `
		SELECT record_id, will_churn, probability, risk_level, confidence, predicted_at
		FROM predictions
		ORDER BY predicted_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var results []models.PredictionResult
	for rows.Next() {
		var result models.PredictionResult
		var riskLevel string
		if err := rows.Scan(
			&result.RecordID,
			&result.WillChurn,
			&result.Probability,
			&riskLevel,
			&result.Confidence,
			&result.PredictedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		result.RiskLevel = models.RiskLevel(riskLevel)
		results = append(results, result)
	}
	return results, rows.Err()
}

// SaveSnapshot stores one closed monitoring window.
func (r *PredictionRepository) SaveSnapshot(ctx context.Context, snapshot *models.MonitoringSnapshot) error {
	query := `
		INSERT INTO monitoring_snapshots
			(window_start, window_end, prediction_volume, churn_rate, mean_probability, high_risk_count, drift_score, labeled_count, accuracy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		snapshot.WindowStart,
		snapshot.WindowEnd,
		snapshot.PredictionVolume,
		snapshot.ChurnRate,
		snapshot.MeanProbability,
		snapshot.HighRiskCount,
		snapshot.DriftScore,
		snapshot.Performance.LabeledCount,
		snapshot.Performance.Accuracy,
	)
	if err != nil {
		return fmt.Errorf("failed to save monitoring snapshot: %w", err)
	}
	return nil
}

// SaveAlert stores a newly raised alert.
func (r *PredictionRepository) SaveAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, kind, severity, message, action, raised_at, last_observed, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		string(alert.Kind),
		string(alert.Severity),
		alert.Message,
		alert.Action,
		alert.RaisedAt,
		alert.LastObserved,
		alert.Resolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// ResolveAlert marks a stored alert as resolved.
func (r *PredictionRepository) ResolveAlert(ctx context.Context, alertID string, resolvedAt time.Time) error {
	query := `
		UPDATE alerts
		SET resolved = true, resolved_at = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, alertID, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s not found", alertID)
	}
	return nil
}

// ListAlerts returns stored alerts, newest first, optionally including
// resolved ones.
func (r *PredictionRepository) ListAlerts(ctx context.Context, includeResolved bool, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, kind, severity, message, action, raised_at, last_observed, resolved, resolved_at
		FROM alerts
		WHERE ($1 OR NOT resolved)
		ORDER BY raised_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, includeResolved, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var kind, severity string
		if err := rows.Scan(
			&alert.ID,
			&kind,
			&severity,
			&alert.Message,
			&alert.Action,
			&alert.RaisedAt,
			&alert.LastObserved,
			&alert.Resolved,
			&alert.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.Kind = models.AlertKind(kind)
		alert.Severity = models.AlertSeverity(severity)
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
