package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/database"
	"github.com/retenio/churnguard-go/internal/monitor"
	"github.com/retenio/churnguard-go/internal/services"
)

const trendPeriod = 3

// MonitoringHandler serves pipeline health: snapshots, history, alerts and
// ground-truth outcome ingestion.
type MonitoringHandler struct {
	monitor  *monitor.Monitor
	alerts   *monitor.AlertEngine
	notifier *services.Notifier
	repo     *database.PredictionRepository
	logger   *logrus.Logger
}

// NewMonitoringHandler creates the monitoring handler. The notifier and
// repository are optional.
func NewMonitoringHandler(
	mon *monitor.Monitor,
	alerts *monitor.AlertEngine,
	notifier *services.Notifier,
	repo *database.PredictionRepository,
	logger *logrus.Logger,
) *MonitoringHandler {
	return &MonitoringHandler{
		monitor:  mon,
		alerts:   alerts,
		notifier: notifier,
		repo:     repo,
		logger:   logger,
	}
}

// OutcomeRequest is one observed ground-truth label.
type OutcomeRequest struct {
	RecordID string `json:"record_id" binding:"required"`
	Churned  *bool  `json:"churned" binding:"required"`
}

// HandleSnapshot handles GET /api/v1/monitoring/snapshot: closes the current
// window, evaluates alerts and returns the snapshot.
func (h *MonitoringHandler) HandleSnapshot(c *gin.Context) {
	snapshot := h.monitor.Snapshot()
	raised := h.alerts.Evaluate(snapshot)

	if h.notifier != nil && len(raised) > 0 {
		h.notifier.NotifyAlerts(c.Request.Context(), raised)
	}
	if h.repo != nil {
		if err := h.repo.SaveSnapshot(c.Request.Context(), snapshot); err != nil {
			h.logger.WithError(err).Warn("Failed to persist monitoring snapshot")
		}
		for _, alert := range raised {
			if err := h.repo.SaveAlert(c.Request.Context(), alert); err != nil {
				h.logger.WithError(err).Warn("Failed to persist alert")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":      snapshot,
		"raised_alerts": raised,
	})
}

// HandleHistory handles GET /api/v1/monitoring/history.
func (h *MonitoringHandler) HandleHistory(c *gin.Context) {
	history := h.monitor.History()
	c.JSON(http.StatusOK, gin.H{
		"snapshots":        history,
		"churn_rate_trend": h.monitor.ChurnRateTrend(trendPeriod),
	})
}

// HandleAlerts handles GET /api/v1/monitoring/alerts.
func (h *MonitoringHandler) HandleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active": h.alerts.ActiveAlerts(),
		"all":    h.alerts.Alerts(),
	})
}

// HandleOutcome handles POST /api/v1/monitoring/outcomes.
func (h *MonitoringHandler) HandleOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if !h.monitor.RecordOutcome(req.RecordID, *req.Churned) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record was not scored in the current window"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record_id": req.RecordID, "recorded": true})
}
