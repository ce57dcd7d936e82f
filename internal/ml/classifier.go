package ml

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

// TreeNode is one node of a decision tree. Internal nodes route on
// feature/threshold; leaves carry the churn fraction observed at training
// time.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is a single decision tree rooted at node 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Artifact is the serialized form of the frozen classifier: the forest, the
// ordered feature schema it was trained with, global feature importances, a
// representative background sample for attribution, and the reference
// probability distribution captured at training time for drift checks.
type Artifact struct {
	Type        string      `json:"type"`
	Version     string      `json:"version"`
	TrainedAt   string      `json:"trained_at"`
	Features    []string    `json:"features"`
	Trees       []Tree      `json:"trees"`
	Importances []float64   `json:"importances"`
	Background  [][]float64 `json:"background"`
	Reference   []float64   `json:"reference_distribution"`
}

// Classifier wraps a validated artifact. It is read-only after construction
// and therefore safe for concurrent use by any number of callers.
type Classifier struct {
	artifact Artifact
}

// LoadArtifact reads and validates a classifier artifact from disk. Any
// failure is a ModelLoadError: fatal at startup, never retried per-request.
func LoadArtifact(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewModelLoadError(path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, utils.NewModelLoadError(path, fmt.Errorf("malformed artifact: %w", err))
	}

	classifier, err := NewClassifier(artifact)
	if err != nil {
		return nil, utils.NewModelLoadError(path, err)
	}
	return classifier, nil
}

// NewClassifier validates an in-memory artifact. Exposed separately from
// LoadArtifact so tests can build small forests without touching disk.
func NewClassifier(artifact Artifact) (*Classifier, error) {
	if len(artifact.Features) == 0 {
		return nil, fmt.Errorf("artifact declares no feature schema")
	}
	if len(artifact.Trees) == 0 {
		return nil, fmt.Errorf("artifact contains no trees")
	}
	if len(artifact.Importances) != len(artifact.Features) {
		return nil, fmt.Errorf("importances length %d does not match %d features",
			len(artifact.Importances), len(artifact.Features))
	}
	for i, tree := range artifact.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d is empty", i)
		}
		for j, node := range tree.Nodes {
			if node.Leaf {
				if node.Value < 0 || node.Value > 1 {
					return nil, fmt.Errorf("tree %d node %d: leaf value %f outside [0,1]", i, j, node.Value)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= len(artifact.Features) {
				return nil, fmt.Errorf("tree %d node %d: feature index %d out of schema", i, j, node.Feature)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) || node.Right < 0 || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("tree %d node %d: child index out of range", i, j)
			}
		}
		if err := checkTreeLinks(tree); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	for i, row := range artifact.Background {
		if len(row) != len(artifact.Features) {
			return nil, fmt.Errorf("background row %d has %d values, schema has %d",
				i, len(row), len(artifact.Features))
		}
	}
	return &Classifier{artifact: artifact}, nil
}

// PredictProbability returns the forest's probability of churn for one
// feature vector.
func (c *Classifier) PredictProbability(vector models.FeatureVector) (float64, error) {
	if len(vector) != len(c.artifact.Features) {
		return 0, utils.NewEncodingError("vector",
			fmt.Sprintf("got %d features, classifier expects %d", len(vector), len(c.artifact.Features)))
	}

	var sum float64
	for _, tree := range c.artifact.Trees {
		sum += evalTree(tree, vector)
	}
	return sum / float64(len(c.artifact.Trees)), nil
}

// checkTreeLinks walks every child link from the root and rejects artifacts
// that reach a node twice: such links form a cycle and would loop forever at
// prediction time.
func checkTreeLinks(tree Tree) error {
	visited := make([]bool, len(tree.Nodes))
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[idx] {
			return fmt.Errorf("node %d is reachable twice, tree links are cyclic", idx)
		}
		visited[idx] = true
		node := tree.Nodes[idx]
		if node.Leaf {
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	return nil
}

func evalTree(tree Tree, vector models.FeatureVector) float64 {
	node := tree.Nodes[0]
	for !node.Leaf {
		if vector[node.Feature] <= node.Threshold {
			node = tree.Nodes[node.Left]
		} else {
			node = tree.Nodes[node.Right]
		}
	}
	return node.Value
}

// Features returns the ordered feature schema the forest was trained with.
func (c *Classifier) Features() []string {
	return c.artifact.Features
}

// Importances returns the global feature importances from training.
func (c *Classifier) Importances() []float64 {
	return c.artifact.Importances
}

// Background returns the representative sample shipped with the artifact,
// used as the zero-point for attribution decomposition.
func (c *Classifier) Background() [][]float64 {
	return c.artifact.Background
}

// ReferenceDistribution returns the training-time probability histogram used
// as the drift baseline. May be empty for older artifacts.
func (c *Classifier) ReferenceDistribution() []float64 {
	return c.artifact.Reference
}

// Type returns the artifact's model type label.
func (c *Classifier) Type() string {
	return c.artifact.Type
}

// Version returns the artifact version string.
func (c *Classifier) Version() string {
	return c.artifact.Version
}

// NumTrees returns the forest size.
func (c *Classifier) NumTrees() int {
	return len(c.artifact.Trees)
}
