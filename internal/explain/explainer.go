package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/models"
)

const topFactorCount = 5

// Magnitude tiers for the natural-language summary, as absolute probability
// contribution.
const (
	moderateContribution = 0.02
	majorContribution    = 0.08
)

var titleCaser = cases.Title(language.English)

// FeatureImportance pairs a feature's global training-time importance with
// its mean absolute local attribution over the background sample.
type FeatureImportance struct {
	Feature          string  `json:"feature"`
	DisplayName      string  `json:"display_name"`
	GlobalImportance float64 `json:"global_importance"`
	MeanAttribution  float64 `json:"mean_attribution"`
}

// Explainer turns raw attributions into ranked contributions, readable
// reasoning, and recommended retention actions.
type Explainer struct {
	classifier *ml.Classifier
	attributor Attributor
	logger     *logrus.Logger
}

// NewExplainer builds an explainer for the loaded classifier.
func NewExplainer(classifier *ml.Classifier, attributor Attributor, logger *logrus.Logger) *Explainer {
	logger.WithFields(logrus.Fields{
		"method":     attributor.Method(),
		"background": len(classifier.Background()),
	}).Info("Explanation attributor selected")

	return &Explainer{
		classifier: classifier,
		attributor: attributor,
		logger:     logger,
	}
}

// Method reports the active attribution method.
func (e *Explainer) Method() models.AttributionMethod {
	return e.attributor.Method()
}

// Explain decomposes one scored vector into per-feature contributions, ranked
// by absolute magnitude, with the top factors rendered as natural-language
// reasoning and retention actions.
func (e *Explainer) Explain(recordID string, vector models.FeatureVector) (*models.ExplanationResult, error) {
	baseline, raw, err := e.attributor.Attribute(vector)
	if err != nil {
		return nil, err
	}

	final, err := e.classifier.PredictProbability(vector)
	if err != nil {
		return nil, err
	}

	features := e.classifier.Features()
	contributions := make([]models.FeatureContribution, len(features))
	for i, name := range features {
		direction := models.DirectionIncreases
		if raw[i] < 0 {
			direction = models.DirectionDecreases
		}
		contributions[i] = models.FeatureContribution{
			Feature:      name,
			DisplayName:  DisplayName(name),
			Value:        vector[i],
			Contribution: raw[i],
			Direction:    direction,
		}
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Contribution) > math.Abs(contributions[j].Contribution)
	})

	top := contributions
	if len(top) > topFactorCount {
		top = top[:topFactorCount]
	}

	return &models.ExplanationResult{
		RecordID:      recordID,
		Method:        e.attributor.Method(),
		BaselineValue: baseline,
		FinalValue:    final,
		Contributions: contributions,
		TopFactors:    top,
		Summary:       summarize(top),
		Actions:       recommendActions(top),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// ImportanceComparison reports global training-time importances next to the
// mean absolute local attribution over the background sample, sorted by
// global importance. With no background sample the local column is zero.
func (e *Explainer) ImportanceComparison() ([]FeatureImportance, error) {
	features := e.classifier.Features()
	importances := e.classifier.Importances()

	meanAbs := make([]float64, len(features))
	background := e.classifier.Background()
	for _, row := range background {
		_, raw, err := e.attributor.Attribute(row)
		if err != nil {
			return nil, err
		}
		for i, c := range raw {
			meanAbs[i] += math.Abs(c)
		}
	}
	if len(background) > 0 {
		for i := range meanAbs {
			meanAbs[i] /= float64(len(background))
		}
	}

	comparison := make([]FeatureImportance, len(features))
	for i, name := range features {
		comparison[i] = FeatureImportance{
			Feature:          name,
			DisplayName:      DisplayName(name),
			GlobalImportance: importances[i],
			MeanAttribution:  meanAbs[i],
		}
	}
	sort.SliceStable(comparison, func(i, j int) bool {
		return comparison[i].GlobalImportance > comparison[j].GlobalImportance
	})
	return comparison, nil
}

// DisplayName renders a schema column name for human-facing output.
func DisplayName(feature string) string {
	return titleCaser.String(strings.ReplaceAll(feature, "_", " "))
}

func summarize(top []models.FeatureContribution) []string {
	summary := make([]string, 0, len(top))
	for _, factor := range top {
		verb := "increases"
		if factor.Direction == models.DirectionDecreases {
			verb = "decreases"
		}

		var tier string
		switch abs := math.Abs(factor.Contribution); {
		case abs >= majorContribution:
			tier = "strongly"
		case abs >= moderateContribution:
			tier = "moderately"
		default:
			tier = "slightly"
		}

		summary = append(summary, fmt.Sprintf("%s (%.2f) %s %s churn risk",
			factor.DisplayName, factor.Value, tier, verb))
	}
	return summary
}

// retentionActions maps risk-increasing top factors to a recommended
// retention step.
var retentionActions = map[string]string{
	"satisfaction_score": "Schedule a customer success call to address satisfaction concerns",
	"is_active_member":   "Launch a re-engagement campaign for this customer",
	"has_complaint":      "Prioritize resolution of the customer's open complaint",
	"num_products":       "Review the product bundle for fit and simplify if oversold",
	"balance":            "Offer a premium account review with a relationship manager",
	"credit_score":       "Propose a rate review or credit counseling session",
	"tenure":             "Enroll the customer in the loyalty milestone program",
	"loyalty_points":     "Run a targeted promotion to boost loyalty point earn rate",
	"age":                "Match the customer with the age-segment retention offer",
	"estimated_salary":   "Offer products aligned with the customer's income profile",
}

func recommendActions(top []models.FeatureContribution) []string {
	actions := make([]string, 0, len(top))
	seen := make(map[string]bool)
	for _, factor := range top {
		if factor.Direction != models.DirectionIncreases {
			continue
		}
		action, ok := retentionActions[factor.Feature]
		if !ok || seen[action] {
			continue
		}
		seen[action] = true
		actions = append(actions, action)
	}
	if len(actions) == 0 {
		actions = append(actions, "No immediate intervention needed; keep monitoring this customer")
	}
	return actions
}
