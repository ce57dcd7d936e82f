package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retenio/churnguard-go/internal/api/handlers"
	"github.com/retenio/churnguard-go/internal/database"
	"github.com/retenio/churnguard-go/internal/ml"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Model    string `json:"model"`
}

// Dependencies carries everything the routes need. Database and Redis may be
// nil when persistence is disabled.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisClient
	Predictor  *ml.Predictor
	Prediction *handlers.PredictionHandler
	Batch      *handlers.BatchHandler
	Monitoring *handlers.MonitoringHandler
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Health check endpoint
	router.GET("/health", healthCheck(deps))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/model/info", deps.Prediction.HandleModelInfo)

		predictions := v1.Group("/predictions")
		{
			predictions.POST("", deps.Prediction.HandlePredict)
			predictions.POST("/explain", deps.Prediction.HandleExplain)
		}

		batch := v1.Group("/batch")
		{
			batch.POST("", deps.Batch.HandleSubmit)
			batch.GET("/template", deps.Batch.HandleTemplate)
			batch.GET("/:id", deps.Batch.HandleStatus)
			batch.GET("/:id/failures", deps.Batch.HandleFailures)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/snapshot", deps.Monitoring.HandleSnapshot)
			monitoring.GET("/history", deps.Monitoring.HandleHistory)
			monitoring.GET("/alerts", deps.Monitoring.HandleAlerts)
			monitoring.POST("/outcomes", deps.Monitoring.HandleOutcome)
		}
	}
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
				Model:    "ok",
			},
		}

		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Database = "error"
				response.Status = "degraded"
			}
		} else {
			response.Services.Database = "disabled"
		}

		if deps.Redis != nil {
			if err := deps.Redis.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Redis = "error"
				response.Status = "degraded"
			}
		} else {
			response.Services.Redis = "disabled"
		}

		if _, err := deps.Predictor.ModelInfo(); err != nil {
			response.Services.Model = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
