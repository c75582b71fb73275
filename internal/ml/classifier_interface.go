// Package ml trains and evaluates the linear classifier that separates the two
// trial classes, and keeps a small registry of saved model versions.
package ml

// Classifier scores feature vectors laid out the way features.Assemble builds
// its rows.
type Classifier interface {
	// Decision returns the signed distance from the separating hyperplane.
	// Positive values mean the true class.
	Decision(features []float64) (float64, error)

	// Predict thresholds Decision at zero.
	Predict(features []float64) (bool, error)
}

// MetricsInterface receives training outcomes.
type MetricsInterface interface {
	TrainingAccuracySet(v float64)
	FeaturesSet(n int)
	TrainingSamplesSet(n int)
}
