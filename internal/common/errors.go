package common

import "errors"

// Error taxonomy shared by the training run. Callers match with errors.Is.
var (
	// ErrDataNotFound is returned when no dataset backend produced data.
	ErrDataNotFound = errors.New("training data not found")
	// ErrDimensionMismatch is returned when labels and trials fall out of step.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrLabelCardinality is returned when fewer than two classes are present.
	ErrLabelCardinality = errors.New("need exactly two label classes")
	// ErrEmptyAxis is returned when a stage is left with no channels, samples or trials.
	ErrEmptyAxis = errors.New("empty axis")
	// ErrInvalidBands is returned for unusable frequency band edges.
	ErrInvalidBands = errors.New("invalid frequency bands")
	// ErrArtifactNotFound is returned when a named model artifact does not exist.
	ErrArtifactNotFound = errors.New("model artifact not found")
)
