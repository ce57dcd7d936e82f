package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/retenio/churnguard-go/internal/cache"
	"github.com/retenio/churnguard-go/internal/database"
	"github.com/retenio/churnguard-go/internal/explain"
	"github.com/retenio/churnguard-go/internal/features"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/monitor"
	"github.com/retenio/churnguard-go/internal/telemetry"
	"github.com/retenio/churnguard-go/internal/validation"
)

// PredictionHandler serves single-record scoring and explanation requests.
type PredictionHandler struct {
	validator   *validation.Validator
	encoder     *features.Encoder
	predictor   *ml.Predictor
	explainer   *explain.Explainer
	resultCache *cache.ResultCache
	monitor     *monitor.Monitor
	repo        *database.PredictionRepository
	logger      *logrus.Logger
}

// NewPredictionHandler wires the single-record scoring pipeline. The result
// cache and repository are optional; nil disables caching or persistence.
func NewPredictionHandler(
	validator *validation.Validator,
	encoder *features.Encoder,
	predictor *ml.Predictor,
	explainer *explain.Explainer,
	resultCache *cache.ResultCache,
	mon *monitor.Monitor,
	repo *database.PredictionRepository,
	logger *logrus.Logger,
) *PredictionHandler {
	return &PredictionHandler{
		validator:   validator,
		encoder:     encoder,
		predictor:   predictor,
		explainer:   explainer,
		resultCache: resultCache,
		monitor:     mon,
		repo:        repo,
		logger:      logger,
	}
}

// PredictionResponse is the body returned for a scored record.
type PredictionResponse struct {
	Record     *models.CustomerRecord    `json:"record"`
	Prediction *models.PredictionResult  `json:"prediction"`
	Warnings   []models.FieldIssue       `json:"warnings,omitempty"`
	Cached     bool                      `json:"cached"`
	Explained  *models.ExplanationResult `json:"explanation,omitempty"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// ValidationFailureResponse reports every field violation found.
type ValidationFailureResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldIssue `json:"fields"`
}

// HandlePredict handles POST /api/v1/predictions.
func (h *PredictionHandler) HandlePredict(c *gin.Context) {
	h.score(c, false)
}

// HandleExplain handles POST /api/v1/predictions/explain.
func (h *PredictionHandler) HandleExplain(c *gin.Context) {
	h.score(c, true)
}

func (h *PredictionHandler) score(c *gin.Context, explained bool) {
	var record models.CustomerRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	validated := h.validator.Validate(record)
	if !validated.Valid {
		c.JSON(http.StatusUnprocessableEntity, ValidationFailureResponse{
			Error:  "customer record failed validation",
			Fields: validated.Errors,
		})
		return
	}

	stamped := models.NewCustomerRecord(record)

	ctx, span := telemetry.GetPipelineTracer().Start(c.Request.Context(), "pipeline.score",
		trace.WithAttributes(
			attribute.String("record.id", stamped.ID),
			attribute.Bool("explained", explained),
		))
	defer span.End()

	vector, err := h.encoder.Encode(stamped)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	response := PredictionResponse{
		Record:    &stamped,
		Warnings:  validated.Warnings,
		Timestamp: time.Now().UTC(),
	}

	info, err := h.predictor.ModelInfo()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	fingerprint := cache.Fingerprint(vector, info.Version)

	if h.resultCache != nil {
		if cached, ok := h.resultCache.Get(ctx, fingerprint); ok {
			cached.RecordID = stamped.ID
			response.Prediction = cached
			response.Cached = true
		}
	}

	if response.Prediction == nil {
		prediction, err := h.predictor.Predict(stamped.ID, vector)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Prediction = prediction

		if h.resultCache != nil {
			h.resultCache.Set(ctx, fingerprint, prediction)
		}
	}

	span.SetAttributes(
		attribute.String("prediction.risk_level", string(response.Prediction.RiskLevel)),
		attribute.Bool("prediction.cached", response.Cached),
	)

	if h.monitor != nil {
		h.monitor.Record(response.Prediction)
	}
	if h.repo != nil {
		if err := h.repo.SavePrediction(ctx, response.Prediction); err != nil {
			h.logger.WithError(err).Warn("Failed to persist prediction")
		}
	}

	if explained {
		explanation, err := h.explainer.Explain(stamped.ID, vector)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Explained = explanation
	}

	c.JSON(http.StatusOK, response)
}

// HandleModelInfo handles GET /api/v1/model/info.
func (h *PredictionHandler) HandleModelInfo(c *gin.Context) {
	info, err := h.predictor.ModelInfo()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	comparison, err := h.explainer.ImportanceComparison()
	if err != nil {
		h.logger.WithError(err).Warn("Importance comparison unavailable")
	}

	c.JSON(http.StatusOK, gin.H{
		"model":             info,
		"attribution":       h.explainer.Method(),
		"importances":       comparison,
		"validation_ranges": validation.NumericRanges,
	})
}
