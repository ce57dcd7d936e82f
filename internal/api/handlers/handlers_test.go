package handlers

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/batch"
	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/explain"
	"github.com/retenio/churnguard-go/internal/features"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/monitor"
	"github.com/retenio/churnguard-go/internal/validation"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testArtifact builds a single-stump forest over the full feature schema:
// active members score 0.2, inactive members 0.8.
func testArtifact(t *testing.T) string {
	t.Helper()

	activeIdx := -1
	for i, name := range features.Schema {
		if name == "is_active_member" {
			activeIdx = i
		}
	}
	require.NotEqual(t, -1, activeIdx)

	importances := make([]float64, len(features.Schema))
	for i := range importances {
		importances[i] = 1.0 / float64(len(importances))
	}

	artifact := ml.Artifact{
		Type:     "random_forest",
		Version:  "test-1",
		Features: append([]string(nil), features.Schema...),
		Trees: []ml.Tree{
			{Nodes: []ml.TreeNode{
				{Feature: activeIdx, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: 0.8},
				{Leaf: true, Value: 0.2},
			}},
		},
		Importances: importances,
	}

	path := filepath.Join(t.TempDir(), "model.json")
	raw, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

type testPipeline struct {
	predictor  *ml.Predictor
	explainer  *explain.Explainer
	monitor    *monitor.Monitor
	alerts     *monitor.AlertEngine
	processor  *batch.Processor
	prediction *PredictionHandler
	batch      *BatchHandler
	monitoring *MonitoringHandler
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	logger := quietLogger()
	predictor := ml.NewPredictor(config.ModelConfig{
		Path:           testArtifact(t),
		RiskLowCutoff:  0.30,
		RiskHighCutoff: 0.70,
	}, logger)
	require.NoError(t, predictor.Warm())

	classifier, err := predictor.Classifier()
	require.NoError(t, err)

	attributor, err := explain.NewAttributor(classifier, config.ExplainConfig{
		BackgroundSampleSize: 10,
		Permutations:         2,
		Seed:                 42,
	})
	require.NoError(t, err)
	explainer := explain.NewExplainer(classifier, attributor, logger)

	monitoringCfg := config.MonitoringConfig{
		WindowDays:           30,
		PerformanceAttention: 0.80,
		PerformanceCritical:  0.75,
		DriftAttention:       0.10,
		DriftCritical:        0.25,
		HighRiskThreshold:    25,
	}
	mon := monitor.NewMonitor(monitoringCfg, nil, logger)
	alerts := monitor.NewAlertEngine(monitoringCfg, logger)

	validator := validation.NewValidator()
	encoder := features.NewEncoder()
	processor := batch.NewProcessor(config.BatchConfig{
		Workers:     2,
		SegmentKeys: []string{"country", "tier"},
		MaxRows:     1000,
	}, validator, encoder, predictor, explainer, mon, logger)

	return &testPipeline{
		predictor:  predictor,
		explainer:  explainer,
		monitor:    mon,
		alerts:     alerts,
		processor:  processor,
		prediction: NewPredictionHandler(validator, encoder, predictor, explainer, nil, mon, nil, logger),
		batch:      NewBatchHandler(processor, 1000, logger),
		monitoring: NewMonitoringHandler(mon, alerts, nil, nil, logger),
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *testPipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := newTestPipeline(t)
	router := gin.New()

	router.GET("/api/v1/model/info", pipeline.prediction.HandleModelInfo)
	router.POST("/api/v1/predictions", pipeline.prediction.HandlePredict)
	router.POST("/api/v1/predictions/explain", pipeline.prediction.HandleExplain)
	router.POST("/api/v1/batch", pipeline.batch.HandleSubmit)
	router.GET("/api/v1/batch/template", pipeline.batch.HandleTemplate)
	router.GET("/api/v1/batch/:id", pipeline.batch.HandleStatus)
	router.GET("/api/v1/batch/:id/failures", pipeline.batch.HandleFailures)
	router.GET("/api/v1/monitoring/snapshot", pipeline.monitoring.HandleSnapshot)
	router.GET("/api/v1/monitoring/history", pipeline.monitoring.HandleHistory)
	router.GET("/api/v1/monitoring/alerts", pipeline.monitoring.HandleAlerts)
	router.POST("/api/v1/monitoring/outcomes", pipeline.monitoring.HandleOutcome)

	return router, pipeline
}

func customerBody() map[string]interface{} {
	return map[string]interface{}{
		"credit_score":       650,
		"age":                40,
		"tenure":             5,
		"balance":            "25000",
		"num_products":       2,
		"estimated_salary":   "60000",
		"satisfaction_score": 4,
		"loyalty_points":     1200,
		"has_credit_card":    true,
		"is_active_member":   false,
		"has_complaint":      false,
		"gender":             "female",
		"country":            "France",
		"tier":               "RUBIS",
	}
}
