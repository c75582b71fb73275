package ml

import (
	"errors"
	"fmt"
	"math"

	"bci-trainer/internal/common"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearClassifier is the persisted form of a trained model: one weight per
// feature plus an intercept.
type LinearClassifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

var _ Classifier = (*LinearClassifier)(nil)

// FitOptions configures Fit.
type FitOptions struct {
	// Regularization is the ridge strength relative to the mean feature
	// energy, trace(XᵀX)/d. Zero gives plain least squares.
	Regularization float64
}

// Fit solves a least-squares fit of X onto targets +1 (label 1) and -1
// (label 0). The intercept is not penalised. Both classes must be present.
func Fit(X *mat.Dense, y []int, opts FitOptions) (*LinearClassifier, error) {
	if X == nil {
		return nil, fmt.Errorf("no feature matrix: %w", common.ErrEmptyAxis)
	}
	n, d := X.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%d feature rows for %d labels: %w", n, len(y), common.ErrDimensionMismatch)
	}
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("feature matrix is %dx%d: %w", n, d, common.ErrEmptyAxis)
	}
	if opts.Regularization < 0 {
		return nil, fmt.Errorf("regularization must be non-negative, got %v", opts.Regularization)
	}

	targets := make([]float64, n)
	var pos, neg int
	for i, v := range y {
		switch v {
		case 1:
			targets[i] = 1
			pos++
		case 0:
			targets[i] = -1
			neg++
		default:
			return nil, fmt.Errorf("label %d at row %d is not binary: %w", v, i, common.ErrLabelCardinality)
		}
	}
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("%d positive and %d negative trials: %w", pos, neg, common.ErrLabelCardinality)
	}

	var energy float64
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, X)
		energy += floats.Dot(col, col)
	}
	lambda := opts.Regularization * energy / float64(d)

	// Ridge as an augmented least-squares problem:
	//   [X 1; √λ·I 0] w = [y; 0]
	A := mat.NewDense(n+d, d+1, nil)
	A.Slice(0, n, 0, d).(*mat.Dense).Copy(X)
	for i := 0; i < n; i++ {
		A.Set(i, d, 1)
	}
	if lambda > 0 {
		s := math.Sqrt(lambda)
		for j := 0; j < d; j++ {
			A.Set(n+j, j, s)
		}
	}
	b := mat.NewVecDense(n+d, nil)
	for i, t := range targets {
		b.SetVec(i, t)
	}

	var w mat.VecDense
	if err := w.SolveVec(A, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve least squares: %w", err)
		}
		log.Warn().Float64("condition", float64(cond)).Msg("Feature matrix is ill-conditioned, weights may be inaccurate")
	}

	clf := &LinearClassifier{
		Weights: make([]float64, d),
		Bias:    w.AtVec(d),
	}
	for j := range clf.Weights {
		clf.Weights[j] = w.AtVec(j)
	}
	return clf, nil
}

// Decision returns w·x + b.
func (c *LinearClassifier) Decision(x []float64) (float64, error) {
	if c == nil {
		return 0, fmt.Errorf("classifier not trained")
	}
	if len(x) != len(c.Weights) {
		return 0, fmt.Errorf("%d features for %d weights: %w", len(x), len(c.Weights), common.ErrDimensionMismatch)
	}
	return floats.Dot(c.Weights, x) + c.Bias, nil
}

// Predict reports whether x falls on the true side of the hyperplane.
func (c *LinearClassifier) Predict(x []float64) (bool, error) {
	v, err := c.Decision(x)
	if err != nil {
		return false, err
	}
	return v > 0, nil
}

// Accuracy returns the fraction of rows of X whose prediction matches y.
func (c *LinearClassifier) Accuracy(X mat.Matrix, y []int) (float64, error) {
	n, _ := X.Dims()
	if n != len(y) {
		return 0, fmt.Errorf("%d rows for %d labels: %w", n, len(y), common.ErrDimensionMismatch)
	}
	if n == 0 {
		return 0, fmt.Errorf("no rows to score: %w", common.ErrEmptyAxis)
	}

	correct := 0
	for i := 0; i < n; i++ {
		ok, err := c.Predict(mat.Row(nil, i, X))
		if err != nil {
			return 0, err
		}
		if ok == (y[i] == 1) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}
