package monitor

import (
	"sync"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/models"
)

// Monitor accumulates scoring activity for the open window and closes it on
// demand into immutable snapshots. Recording a prediction is best-effort and
// cheap; the heavy work (drift, confusion metrics) happens only at snapshot
// time. All methods are safe for concurrent use.
type Monitor struct {
	cfg       config.MonitoringConfig
	reference []float64
	logger    *logrus.Logger

	mu            sync.Mutex
	windowStart   time.Time
	probabilities []float64
	churnCount    int
	highRiskCount int
	predicted     map[string]bool
	labeled       confusion
	history       []*models.MonitoringSnapshot
}

// confusion holds ground-truth match counts for the open window.
type confusion struct {
	truePositive  int
	trueNegative  int
	falsePositive int
	falseNegative int
}

func (c confusion) total() int {
	return c.truePositive + c.trueNegative + c.falsePositive + c.falseNegative
}

// NewMonitor creates a monitor comparing window drift against the given
// reference probability distribution (ten bin proportions from the model
// artifact).
func NewMonitor(cfg config.MonitoringConfig, reference []float64, logger *logrus.Logger) *Monitor {
	return &Monitor{
		cfg:         cfg,
		reference:   reference,
		logger:      logger,
		windowStart: time.Now().UTC(),
		predicted:   make(map[string]bool),
	}
}

// Record adds one prediction to the open window.
func (m *Monitor) Record(result *models.PredictionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.probabilities = append(m.probabilities, result.Probability)
	if result.WillChurn {
		m.churnCount++
	}
	if result.RiskLevel == models.RiskHigh {
		m.highRiskCount++
	}
	if result.RecordID != "" {
		m.predicted[result.RecordID] = result.WillChurn
	}
}

// RecordOutcome ingests the observed ground truth for a record predicted in
// the open window. Outcomes for unknown records are dropped; the caller
// cannot usefully act on them and they would skew the confusion counts.
func (m *Monitor) RecordOutcome(recordID string, churned bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	predictedChurn, ok := m.predicted[recordID]
	if !ok {
		return false
	}
	delete(m.predicted, recordID)

	switch {
	case predictedChurn && churned:
		m.labeled.truePositive++
	case predictedChurn && !churned:
		m.labeled.falsePositive++
	case !predictedChurn && churned:
		m.labeled.falseNegative++
	default:
		m.labeled.trueNegative++
	}
	return true
}

// Snapshot closes the open window, appends the result to the bounded history
// and starts a fresh window. The critical section only swaps out the
// accumulated state; metric computation happens on the detached copy.
func (m *Monitor) Snapshot() *models.MonitoringSnapshot {
	now := time.Now().UTC()

	m.mu.Lock()
	windowStart := m.windowStart
	probabilities := m.probabilities
	churnCount := m.churnCount
	highRiskCount := m.highRiskCount
	labeled := m.labeled

	m.windowStart = now
	m.probabilities = nil
	m.churnCount = 0
	m.highRiskCount = 0
	m.predicted = make(map[string]bool)
	m.labeled = confusion{}
	m.mu.Unlock()

	snapshot := &models.MonitoringSnapshot{
		WindowStart:      windowStart,
		WindowEnd:        now,
		PredictionVolume: len(probabilities),
		HighRiskCount:    highRiskCount,
		DriftScore:       populationStabilityIndex(probabilities, m.reference),
		Performance:      performanceMetrics(labeled),
	}
	if len(probabilities) > 0 {
		var sum float64
		for _, p := range probabilities {
			sum += p
		}
		snapshot.ChurnRate = float64(churnCount) / float64(len(probabilities))
		snapshot.MeanProbability = sum / float64(len(probabilities))
	}

	m.mu.Lock()
	m.history = append(m.history, snapshot)
	limit := m.cfg.WindowDays
	if limit < 1 {
		limit = 1
	}
	if len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"volume":     snapshot.PredictionVolume,
		"churn_rate": snapshot.ChurnRate,
		"high_risk":  snapshot.HighRiskCount,
		"drift":      snapshot.DriftScore,
	}).Info("Monitoring window closed")
	return snapshot
}

// History returns the retained snapshots, oldest first.
func (m *Monitor) History() []*models.MonitoringSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.MonitoringSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

// ChurnRateTrend smooths the per-window churn rates in history with a simple
// moving average of the given period. Returns nil until history holds at
// least one full period.
func (m *Monitor) ChurnRateTrend(period int) []float64 {
	m.mu.Lock()
	rates := make([]float64, len(m.history))
	for i, snapshot := range m.history {
		rates[i] = snapshot.ChurnRate
	}
	m.mu.Unlock()

	if period < 1 || len(rates) < period {
		return nil
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(rates)))
}

func performanceMetrics(labeled confusion) models.PerformanceMetrics {
	total := labeled.total()
	if total == 0 {
		return models.PerformanceMetrics{}
	}

	metrics := models.PerformanceMetrics{
		Available:    true,
		LabeledCount: total,
		Accuracy:     float64(labeled.truePositive+labeled.trueNegative) / float64(total),
	}
	if positives := labeled.truePositive + labeled.falsePositive; positives > 0 {
		metrics.Precision = float64(labeled.truePositive) / float64(positives)
	}
	if actual := labeled.truePositive + labeled.falseNegative; actual > 0 {
		metrics.Recall = float64(labeled.truePositive) / float64(actual)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}
	return metrics
}
