package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/batch"
	"github.com/retenio/churnguard-go/internal/models"
)

// BatchHandler serves CSV batch uploads and job polling.
type BatchHandler struct {
	processor *batch.Processor
	maxRows   int
	logger    *logrus.Logger
}

// NewBatchHandler creates a batch handler over the given processor.
func NewBatchHandler(processor *batch.Processor, maxRows int, logger *logrus.Logger) *BatchHandler {
	return &BatchHandler{
		processor: processor,
		maxRows:   maxRows,
		logger:    logger,
	}
}

// BatchSubmitResponse acknowledges an accepted batch job.
type BatchSubmitResponse struct {
	JobID string `json:"job_id"`
	Total int    `json:"total"`
}

// BatchStatusResponse reports job progress and, once finished, the result.
type BatchStatusResponse struct {
	JobID    string             `json:"job_id"`
	Status   batch.JobStatus    `json:"status"`
	Progress float64            `json:"progress_percent"`
	Result   *batch.BatchResult `json:"result,omitempty"`
}

// HandleSubmit handles POST /api/v1/batch. The upload is the CSV body, either
// raw text/csv or the "file" part of a multipart form.
func (h *BatchHandler) HandleSubmit(c *gin.Context) {
	body := c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	rows, err := batch.ParseCSV(body, h.maxRows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload contains no data rows"})
		return
	}

	job := h.processor.Submit(c.Request.Context(), rows)
	h.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"total":  len(rows),
	}).Info("Batch job accepted")

	c.JSON(http.StatusAccepted, BatchSubmitResponse{
		JobID: job.ID,
		Total: len(rows),
	})
}

// HandleStatus handles GET /api/v1/batch/:id.
func (h *BatchHandler) HandleStatus(c *gin.Context) {
	job, ok := h.processor.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown batch job"})
		return
	}

	_, _, percent := job.Progress()
	c.JSON(http.StatusOK, BatchStatusResponse{
		JobID:    job.ID,
		Status:   job.Status(),
		Progress: percent,
		Result:   job.Result(),
	})
}

// HandleTemplate handles GET /api/v1/batch/template.
func (h *BatchHandler) HandleTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="churn_batch_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(batch.TemplateCSV()))
}

// failureRows extracts only the failed outcomes, for clients that want a
// compact error report.
func failureRows(outcomes []models.BatchOutcome) []models.BatchOutcome {
	var failures []models.BatchOutcome
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failures = append(failures, outcome)
		}
	}
	return failures
}

// HandleFailures handles GET /api/v1/batch/:id/failures.
func (h *BatchHandler) HandleFailures(c *gin.Context) {
	job, ok := h.processor.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown batch job"})
		return
	}

	result := job.Result()
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "batch job still running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":   job.ID,
		"failed":   result.Failed,
		"failures": failureRows(result.Outcomes),
	})
}
