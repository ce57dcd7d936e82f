package ml

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// constantArtifact builds a forest of single-leaf trees so every vector
// scores exactly the mean of the leaf values.
func constantArtifact(leaves ...float64) Artifact {
	trees := make([]Tree, 0, len(leaves))
	for _, value := range leaves {
		trees = append(trees, Tree{Nodes: []TreeNode{{Leaf: true, Value: value}}})
	}
	return Artifact{
		Type:        "random_forest",
		Version:     "test-1",
		Features:    []string{"f0", "f1", "f2"},
		Trees:       trees,
		Importances: []float64{0.5, 0.3, 0.2},
	}
}

func writeArtifact(t *testing.T, artifact Artifact) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.json")
	raw, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func testModelConfig(path string) config.ModelConfig {
	return config.ModelConfig{
		Path:           path,
		RiskLowCutoff:  0.30,
		RiskHighCutoff: 0.70,
	}
}

func TestPredictor_RiskLevels(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		risk        models.RiskLevel
		willChurn   bool
	}{
		{"well below low cutoff", 0.10, models.RiskLow, false},
		{"just below low cutoff", 0.29, models.RiskLow, false},
		{"exactly at low cutoff", 0.30, models.RiskMedium, false},
		{"mid range", 0.55, models.RiskMedium, true},
		{"exactly at high cutoff", 0.70, models.RiskMedium, true},
		{"above high cutoff", 0.71, models.RiskHigh, true},
		{"extreme", 0.99, models.RiskHigh, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, constantArtifact(tt.probability))
			predictor := NewPredictor(testModelConfig(path), quietLogger())

			result, err := predictor.Predict("cust-1", models.FeatureVector{0, 0, 0})
			require.NoError(t, err)

			assert.Equal(t, "cust-1", result.RecordID)
			assert.InDelta(t, tt.probability, result.Probability, 1e-9)
			assert.Equal(t, tt.risk, result.RiskLevel)
			assert.Equal(t, tt.willChurn, result.WillChurn)
			assert.False(t, result.PredictedAt.IsZero())
		})
	}
}

func TestPredictor_Confidence(t *testing.T) {
	tests := []struct {
		probability float64
		expected    float64
	}{
		{0.5, 0},
		{0.75, 0.5},
		{0.25, 0.5},
		{1.0, 1},
		{0.0, 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, confidence(tt.probability), 1e-9)
	}
}

func TestPredictor_ForestAveraging(t *testing.T) {
	path := writeArtifact(t, constantArtifact(0.2, 0.4, 0.9))
	predictor := NewPredictor(testModelConfig(path), quietLogger())

	result, err := predictor.Predict("cust-1", models.FeatureVector{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Probability, 1e-9)
}

func TestPredictor_Warm_BadPath(t *testing.T) {
	cfg := testModelConfig(filepath.Join(t.TempDir(), "missing.json"))
	predictor := NewPredictor(cfg, quietLogger())

	err := predictor.Warm()
	require.Error(t, err)

	var mle *utils.ModelLoadError
	assert.ErrorAs(t, err, &mle)
}

func TestPredictor_LazyLoadOnce(t *testing.T) {
	path := writeArtifact(t, constantArtifact(0.6))
	predictor := NewPredictor(testModelConfig(path), quietLogger())

	require.NoError(t, predictor.Warm())

	// Removing the file after Warm must not matter: the classifier is cached.
	require.NoError(t, os.Remove(path))

	result, err := predictor.Predict("cust-1", models.FeatureVector{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, result.Probability, 1e-9)
}

func TestPredictor_Reload(t *testing.T) {
	path := writeArtifact(t, constantArtifact(0.2))
	predictor := NewPredictor(testModelConfig(path), quietLogger())
	require.NoError(t, predictor.Warm())

	updated := constantArtifact(0.9)
	updated.Version = "test-2"
	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.NoError(t, predictor.Reload())

	result, err := predictor.Predict("cust-1", models.FeatureVector{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, result.Probability, 1e-9)

	info, err := predictor.ModelInfo()
	require.NoError(t, err)
	assert.Equal(t, "test-2", info.Version)
	assert.Equal(t, 3, info.NumFeatures)
}
