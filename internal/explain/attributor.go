package explain

import (
	"math/rand"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

// Attributor decomposes one prediction into per-feature contributions
// relative to a baseline expected value. Implementations must guarantee that
// the contributions sum to finalValue - baseline.
type Attributor interface {
	Attribute(vector models.FeatureVector) (baseline float64, contributions []float64, err error)
	Method() models.AttributionMethod
}

// NewAttributor selects the attribution strategy for the loaded artifact:
// exact permutation-based decomposition when the artifact carries a
// background sample, otherwise the scaled global-importance fallback.
func NewAttributor(classifier *ml.Classifier, cfg config.ExplainConfig) (Attributor, error) {
	if len(classifier.Background()) > 0 {
		return newPermutationAttributor(classifier, cfg)
	}
	return newImportanceAttributor(classifier)
}

// PermutationAttributor computes sequential marginal contributions: for each
// background row and each fixed feature ordering, features are switched one
// at a time from the background value to the record's value, and the
// probability delta of each switch is credited to that feature. Per ordering
// the deltas telescope to f(x) - f(background), so the averaged contributions
// sum exactly to finalValue - baseline. Orderings are drawn once from a
// seeded source, making results deterministic for a given artifact and seed.
type PermutationAttributor struct {
	classifier   *ml.Classifier
	background   [][]float64
	permutations [][]int
}

func newPermutationAttributor(classifier *ml.Classifier, cfg config.ExplainConfig) (*PermutationAttributor, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	numFeatures := len(classifier.Features())

	background := classifier.Background()
	if cfg.BackgroundSampleSize > 0 && len(background) > cfg.BackgroundSampleSize {
		sampled := make([][]float64, 0, cfg.BackgroundSampleSize)
		for _, i := range rng.Perm(len(background))[:cfg.BackgroundSampleSize] {
			sampled = append(sampled, background[i])
		}
		background = sampled
	}

	count := cfg.Permutations
	if count < 1 {
		count = 1
	}
	permutations := make([][]int, count)
	for i := range permutations {
		permutations[i] = rng.Perm(numFeatures)
	}

	return &PermutationAttributor{
		classifier:   classifier,
		background:   background,
		permutations: permutations,
	}, nil
}

// Method reports that this attributor produces exact decompositions.
func (a *PermutationAttributor) Method() models.AttributionMethod {
	return models.AttributionExact
}

// Attribute decomposes the vector's prediction over the cached background
// sample. The returned contributions sum to finalValue - baseline up to
// floating-point accumulation error.
func (a *PermutationAttributor) Attribute(vector models.FeatureVector) (float64, []float64, error) {
	numFeatures := len(a.classifier.Features())
	if len(vector) != numFeatures {
		return 0, nil, utils.NewEncodingError("vector", "feature vector does not match classifier schema")
	}

	contributions := make([]float64, numFeatures)
	var baselineSum float64
	scratch := make(models.FeatureVector, numFeatures)

	for _, row := range a.background {
		base, err := a.classifier.PredictProbability(row)
		if err != nil {
			return 0, nil, err
		}
		baselineSum += base

		for _, order := range a.permutations {
			copy(scratch, row)
			running := base
			for _, feature := range order {
				scratch[feature] = vector[feature]
				next, err := a.classifier.PredictProbability(scratch)
				if err != nil {
					return 0, nil, err
				}
				contributions[feature] += next - running
				running = next
			}
		}
	}

	samples := float64(len(a.background) * len(a.permutations))
	for i := range contributions {
		contributions[i] /= samples
	}
	baseline := baselineSum / float64(len(a.background))
	return baseline, contributions, nil
}

// ImportanceAttributor is the degraded fallback for artifacts without a
// background sample. It distributes finalValue - baseline across features in
// proportion to the global importances, using the 0.5 decision boundary as
// the baseline. The split is additive by construction but reflects training-
// time importance, not this record's local behavior.
type ImportanceAttributor struct {
	classifier *ml.Classifier
	weights    []float64
}

func newImportanceAttributor(classifier *ml.Classifier) (*ImportanceAttributor, error) {
	importances := classifier.Importances()
	var total float64
	for _, w := range importances {
		total += w
	}
	if total <= 0 {
		return nil, utils.NewExplanationUnavailableError("artifact has neither background sample nor usable importances")
	}

	weights := make([]float64, len(importances))
	for i, w := range importances {
		weights[i] = w / total
	}
	return &ImportanceAttributor{classifier: classifier, weights: weights}, nil
}

// Method reports that results are approximate.
func (a *ImportanceAttributor) Method() models.AttributionMethod {
	return models.AttributionApproximate
}

// Attribute splits the distance from the decision boundary by normalized
// global importance.
func (a *ImportanceAttributor) Attribute(vector models.FeatureVector) (float64, []float64, error) {
	final, err := a.classifier.PredictProbability(vector)
	if err != nil {
		return 0, nil, err
	}

	const baseline = 0.5
	contributions := make([]float64, len(a.weights))
	for i, w := range a.weights {
		contributions[i] = w * (final - baseline)
	}
	return baseline, contributions, nil
}
