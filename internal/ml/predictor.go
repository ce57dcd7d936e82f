package ml

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/models"
)

// ModelInfo summarizes the loaded artifact for the model info endpoint.
type ModelInfo struct {
	Type        string   `json:"type"`
	Version     string   `json:"version"`
	NumTrees    int      `json:"num_trees"`
	Features    []string `json:"features"`
	NumFeatures int      `json:"n_features"`
}

// Predictor wraps the frozen classifier as a process-wide cached resource:
// loaded lazily on first use, never reinitialized implicitly, with an
// explicit Reload for deployment-time model swaps. The classifier itself is
// immutable after load, so Predict is safe for concurrent callers.
type Predictor struct {
	cfg    config.ModelConfig
	logger *logrus.Logger

	mu         sync.RWMutex
	classifier *Classifier
}

// NewPredictor creates a predictor for the configured artifact. The artifact
// is not loaded until Warm or the first Predict call.
func NewPredictor(cfg config.ModelConfig, logger *logrus.Logger) *Predictor {
	return &Predictor{
		cfg:    cfg,
		logger: logger,
	}
}

// Warm eagerly loads the classifier so a broken artifact fails the process at
// startup rather than on the first request.
func (p *Predictor) Warm() error {
	_, err := p.classifierHandle()
	return err
}

// Reload discards the cached classifier and loads the artifact from disk
// again. Used for deployment-time swaps; the old classifier keeps serving
// in-flight calls that already hold it.
func (p *Predictor) Reload() error {
	classifier, err := LoadArtifact(p.cfg.Path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.classifier = classifier
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"path":    p.cfg.Path,
		"type":    classifier.Type(),
		"version": classifier.Version(),
		"trees":   classifier.NumTrees(),
	}).Info("Classifier artifact reloaded")
	return nil
}

// classifierHandle returns the cached classifier, loading it on first use.
func (p *Predictor) classifierHandle() (*Classifier, error) {
	p.mu.RLock()
	classifier := p.classifier
	p.mu.RUnlock()
	if classifier != nil {
		return classifier, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.classifier != nil {
		return p.classifier, nil
	}

	classifier, err := LoadArtifact(p.cfg.Path)
	if err != nil {
		return nil, err
	}
	p.classifier = classifier

	p.logger.WithFields(logrus.Fields{
		"path":    p.cfg.Path,
		"type":    classifier.Type(),
		"version": classifier.Version(),
		"trees":   classifier.NumTrees(),
	}).Info("Classifier artifact loaded")
	return classifier, nil
}

// Classifier exposes the loaded classifier for collaborators that need
// read-only access (explainer background scoring, drift reference).
func (p *Predictor) Classifier() (*Classifier, error) {
	return p.classifierHandle()
}

// Predict scores one feature vector. The probability is always in [0,1];
// risk discretization follows the configured cutoffs; confidence grows with
// the probability's distance from the 0.5 decision boundary.
func (p *Predictor) Predict(recordID string, vector models.FeatureVector) (*models.PredictionResult, error) {
	classifier, err := p.classifierHandle()
	if err != nil {
		return nil, err
	}

	probability, err := classifier.PredictProbability(vector)
	if err != nil {
		return nil, err
	}

	return &models.PredictionResult{
		RecordID:    recordID,
		WillChurn:   probability >= 0.5,
		Probability: probability,
		RiskLevel:   p.riskLevel(probability),
		Confidence:  confidence(probability),
		PredictedAt: time.Now().UTC(),
	}, nil
}

// ModelInfo reports the loaded artifact's shape.
func (p *Predictor) ModelInfo() (*ModelInfo, error) {
	classifier, err := p.classifierHandle()
	if err != nil {
		return nil, err
	}
	return &ModelInfo{
		Type:        classifier.Type(),
		Version:     classifier.Version(),
		NumTrees:    classifier.NumTrees(),
		Features:    classifier.Features(),
		NumFeatures: len(classifier.Features()),
	}, nil
}

func (p *Predictor) riskLevel(probability float64) models.RiskLevel {
	switch {
	case probability < p.cfg.RiskLowCutoff:
		return models.RiskLow
	case probability > p.cfg.RiskHighCutoff:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

// confidence maps distance from the decision boundary into [0,1]: 0 at
// probability 0.5, 1 at either extreme.
func confidence(probability float64) float64 {
	return math.Min(1, math.Abs(probability-0.5)*2)
}
