package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

// stumpArtifact builds a two-tree forest over three features. Each stump
// splits on a single feature so expected probabilities are easy to reason
// about by hand.
func stumpArtifact() Artifact {
	return Artifact{
		Type:     "random_forest",
		Version:  "test-1",
		Features: []string{"f0", "f1", "f2"},
		Trees: []Tree{
			{Nodes: []TreeNode{
				{Feature: 0, Threshold: 10, Left: 1, Right: 2},
				{Leaf: true, Value: 0.2},
				{Leaf: true, Value: 0.8},
			}},
			{Nodes: []TreeNode{
				{Feature: 1, Threshold: 5, Left: 1, Right: 2},
				{Leaf: true, Value: 0.4},
				{Leaf: true, Value: 0.6},
			}},
		},
		Importances: []float64{0.5, 0.3, 0.2},
		Background: [][]float64{
			{5, 2, 0},
			{15, 8, 1},
		},
		Reference: []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1},
	}
}

func TestNewClassifier_Valid(t *testing.T) {
	classifier, err := NewClassifier(stumpArtifact())
	require.NoError(t, err)

	assert.Equal(t, "random_forest", classifier.Type())
	assert.Equal(t, 2, classifier.NumTrees())
	assert.Equal(t, []string{"f0", "f1", "f2"}, classifier.Features())
	assert.Len(t, classifier.Background(), 2)
	assert.Len(t, classifier.ReferenceDistribution(), 10)
}

func TestNewClassifier_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"no features", func(a *Artifact) { a.Features = nil }},
		{"no trees", func(a *Artifact) { a.Trees = nil }},
		{"importances mismatch", func(a *Artifact) { a.Importances = []float64{1} }},
		{"empty tree", func(a *Artifact) { a.Trees[0].Nodes = nil }},
		{"leaf value out of range", func(a *Artifact) { a.Trees[0].Nodes[1].Value = 1.5 }},
		{"feature index out of schema", func(a *Artifact) { a.Trees[0].Nodes[0].Feature = 9 }},
		{"child index out of range", func(a *Artifact) { a.Trees[0].Nodes[0].Left = 42 }},
		{"self-referential child", func(a *Artifact) { a.Trees[0].Nodes[0].Left = 0 }},
		{"cyclic child links", func(a *Artifact) {
			a.Trees[0].Nodes[1] = TreeNode{Feature: 0, Threshold: 1, Left: 0, Right: 2}
		}},
		{"background width mismatch", func(a *Artifact) { a.Background[0] = []float64{1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := stumpArtifact()
			tt.mutate(&artifact)

			_, err := NewClassifier(artifact)
			assert.Error(t, err)
		})
	}
}

func TestPredictProbability(t *testing.T) {
	classifier, err := NewClassifier(stumpArtifact())
	require.NoError(t, err)

	tests := []struct {
		name     string
		vector   models.FeatureVector
		expected float64
	}{
		{"both low branches", models.FeatureVector{5, 2, 0}, (0.2 + 0.4) / 2},
		{"both high branches", models.FeatureVector{15, 8, 0}, (0.8 + 0.6) / 2},
		{"mixed branches", models.FeatureVector{15, 2, 0}, (0.8 + 0.4) / 2},
		{"thresholds are inclusive left", models.FeatureVector{10, 5, 0}, (0.2 + 0.4) / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probability, err := classifier.PredictProbability(tt.vector)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, probability, 1e-9)
			assert.GreaterOrEqual(t, probability, 0.0)
			assert.LessOrEqual(t, probability, 1.0)
		})
	}
}

func TestPredictProbability_SchemaMismatch(t *testing.T) {
	classifier, err := NewClassifier(stumpArtifact())
	require.NoError(t, err)

	_, err = classifier.PredictProbability(models.FeatureVector{1, 2})
	require.Error(t, err)

	var ee *utils.EncodingError
	assert.ErrorAs(t, err, &ee)
}

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "churn_forest.json")

	raw, err := json.Marshal(stumpArtifact())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	classifier, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, 2, classifier.NumTrees())
}

func TestLoadArtifact_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)

		var mle *utils.ModelLoadError
		assert.ErrorAs(t, err, &mle)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := LoadArtifact(path)
		require.Error(t, err)

		var mle *utils.ModelLoadError
		assert.ErrorAs(t, err, &mle)
	})
}
