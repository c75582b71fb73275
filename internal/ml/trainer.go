package ml

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// TrainResult summarises a training run.
type TrainResult struct {
	Classifier *LinearClassifier
	Metrics    ModelMetrics
}

// Trainer fits a LinearClassifier and reports how well it separates the
// training set.
type Trainer struct {
	opts    FitOptions
	metrics MetricsInterface
}

// NewTrainer creates a trainer. metrics may be nil.
func NewTrainer(opts FitOptions, metrics MetricsInterface) *Trainer {
	return &Trainer{opts: opts, metrics: metrics}
}

// Train fits X against y and scores the result on the same data.
func (t *Trainer) Train(X *mat.Dense, y []int) (*TrainResult, error) {
	clf, err := Fit(X, y, t.opts)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	acc, err := clf.Accuracy(X, y)
	if err != nil {
		return nil, fmt.Errorf("score classifier: %w", err)
	}

	n, d := X.Dims()
	res := &TrainResult{
		Classifier: clf,
		Metrics: ModelMetrics{
			TrainingAccuracy: acc,
			TrainingSamples:  n,
			Features:         d,
		},
	}

	if t.metrics != nil {
		t.metrics.TrainingAccuracySet(acc)
		t.metrics.FeaturesSet(d)
		t.metrics.TrainingSamplesSet(n)
	}

	log.Info().
		Int("samples", n).
		Int("features", d).
		Float64("accuracy", acc).
		Float64("bias", clf.Bias).
		Msg("Classifier trained")
	log.Debug().Floats64("weights", clf.Weights).Msg("Classifier weights")

	return res, nil
}
