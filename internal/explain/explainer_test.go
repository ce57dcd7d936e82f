package explain

import (
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testExplainConfig() config.ExplainConfig {
	return config.ExplainConfig{
		BackgroundSampleSize: 100,
		Permutations:         4,
		Seed:                 42,
	}
}

// forestArtifact builds a three-feature forest whose probability genuinely
// depends on every feature, plus a small background sample.
func forestArtifact() ml.Artifact {
	return ml.Artifact{
		Type:     "random_forest",
		Version:  "test-1",
		Features: []string{"credit_score", "age", "is_active_member"},
		Trees: []ml.Tree{
			{Nodes: []ml.TreeNode{
				{Feature: 0, Threshold: 600, Left: 1, Right: 2},
				{Leaf: true, Value: 0.9},
				{Feature: 1, Threshold: 40, Left: 3, Right: 4},
				{Leaf: true, Value: 0.3},
				{Leaf: true, Value: 0.6},
			}},
			{Nodes: []ml.TreeNode{
				{Feature: 2, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: 0.8},
				{Leaf: true, Value: 0.2},
			}},
		},
		Importances: []float64{0.5, 0.2, 0.3},
		Background: [][]float64{
			{700, 35, 1},
			{450, 55, 0},
			{620, 42, 1},
			{510, 29, 0},
		},
	}
}

func newTestClassifier(t *testing.T, artifact ml.Artifact) *ml.Classifier {
	t.Helper()
	classifier, err := ml.NewClassifier(artifact)
	require.NoError(t, err)
	return classifier
}

func TestNewAttributor_Selection(t *testing.T) {
	t.Run("background present picks exact", func(t *testing.T) {
		classifier := newTestClassifier(t, forestArtifact())
		attributor, err := NewAttributor(classifier, testExplainConfig())
		require.NoError(t, err)
		assert.Equal(t, models.AttributionExact, attributor.Method())
	})

	t.Run("no background falls back to approximate", func(t *testing.T) {
		artifact := forestArtifact()
		artifact.Background = nil
		classifier := newTestClassifier(t, artifact)

		attributor, err := NewAttributor(classifier, testExplainConfig())
		require.NoError(t, err)
		assert.Equal(t, models.AttributionApproximate, attributor.Method())
	})
}

func TestPermutationAttributor_ContributionsSumToDelta(t *testing.T) {
	classifier := newTestClassifier(t, forestArtifact())
	attributor, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)

	vector := models.FeatureVector{480, 50, 0}
	baseline, contributions, err := attributor.Attribute(vector)
	require.NoError(t, err)
	require.Len(t, contributions, 3)

	final, err := classifier.PredictProbability(vector)
	require.NoError(t, err)

	var sum float64
	for _, c := range contributions {
		sum += c
	}
	assert.InDelta(t, final-baseline, sum, 1e-4)
}

func TestPermutationAttributor_Deterministic(t *testing.T) {
	classifier := newTestClassifier(t, forestArtifact())
	vector := models.FeatureVector{480, 50, 0}

	first, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)
	second, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)

	baselineA, contributionsA, err := first.Attribute(vector)
	require.NoError(t, err)
	baselineB, contributionsB, err := second.Attribute(vector)
	require.NoError(t, err)

	assert.Equal(t, baselineA, baselineB)
	assert.Equal(t, contributionsA, contributionsB)
}

func TestImportanceAttributor_Fallback(t *testing.T) {
	artifact := forestArtifact()
	artifact.Background = nil
	classifier := newTestClassifier(t, artifact)

	attributor, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)

	vector := models.FeatureVector{480, 50, 0}
	baseline, contributions, err := attributor.Attribute(vector)
	require.NoError(t, err)
	require.NotEmpty(t, contributions)
	assert.Equal(t, 0.5, baseline)

	final, err := classifier.PredictProbability(vector)
	require.NoError(t, err)

	var sum float64
	for _, c := range contributions {
		sum += c
	}
	assert.InDelta(t, final-baseline, sum, 1e-9)
}

func TestExplainer_Explain(t *testing.T) {
	classifier := newTestClassifier(t, forestArtifact())
	attributor, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)
	explainer := NewExplainer(classifier, attributor, quietLogger())

	result, err := explainer.Explain("cust-1", models.FeatureVector{480, 50, 0})
	require.NoError(t, err)

	assert.Equal(t, "cust-1", result.RecordID)
	assert.Equal(t, models.AttributionExact, result.Method)
	assert.Len(t, result.Contributions, 3)
	assert.LessOrEqual(t, len(result.TopFactors), 5)
	assert.Len(t, result.Summary, len(result.TopFactors))
	assert.NotEmpty(t, result.Actions)
	assert.False(t, result.GeneratedAt.IsZero())

	for i := 1; i < len(result.Contributions); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(result.Contributions[i-1].Contribution),
			math.Abs(result.Contributions[i].Contribution))
	}
	for _, factor := range result.Contributions {
		if factor.Contribution < 0 {
			assert.Equal(t, models.DirectionDecreases, factor.Direction)
		} else {
			assert.Equal(t, models.DirectionIncreases, factor.Direction)
		}
	}
}

func TestExplainer_ImportanceComparison(t *testing.T) {
	classifier := newTestClassifier(t, forestArtifact())
	attributor, err := NewAttributor(classifier, testExplainConfig())
	require.NoError(t, err)
	explainer := NewExplainer(classifier, attributor, quietLogger())

	comparison, err := explainer.ImportanceComparison()
	require.NoError(t, err)
	require.Len(t, comparison, 3)

	for i := 1; i < len(comparison); i++ {
		assert.GreaterOrEqual(t, comparison[i-1].GlobalImportance, comparison[i].GlobalImportance)
	}
	assert.Equal(t, "credit_score", comparison[0].Feature)
	assert.Equal(t, "Credit Score", comparison[0].DisplayName)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Credit Score", DisplayName("credit_score"))
	assert.Equal(t, "Is Active Member", DisplayName("is_active_member"))
	assert.Equal(t, "Country Germany", DisplayName("country_germany"))
}
