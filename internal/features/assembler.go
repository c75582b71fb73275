// Package features turns session events into class labels and the processed
// trial tensor into a trials × features matrix.
package features

import (
	"fmt"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Assemble flattens every trial's channel × frequency block into one row.
// Feature j of a row is channel j/nFreq at frequency j%nFreq. Row i is trial i,
// matching labels[i].
func Assemble(x *tensor.Tensor, labels []bool) (*mat.Dense, []int, error) {
	ch, nf, tr := x.Dims()
	if tr != len(labels) {
		return nil, nil, fmt.Errorf("%d trials for %d labels: %w", tr, len(labels), common.ErrDimensionMismatch)
	}
	if err := x.RequireNonEmpty(); err != nil {
		return nil, nil, err
	}

	X := mat.NewDense(tr, ch*nf, nil)
	for k := 0; k < tr; k++ {
		row := X.RawRowView(k)
		for c := 0; c < ch; c++ {
			copy(row[c*nf:(c+1)*nf], x.Series(c, k))
		}
	}

	rows, _ := X.Dims()
	if rows != len(labels) {
		return nil, nil, fmt.Errorf("assembled %d rows for %d labels: %w", rows, len(labels), common.ErrDimensionMismatch)
	}
	return X, Ints(labels), nil
}

// ClassMeanDiff returns, per feature, mean(true trials) - mean(false trials).
func ClassMeanDiff(X mat.Matrix, labels []bool) ([]float64, error) {
	r, c := X.Dims()
	if r != len(labels) {
		return nil, fmt.Errorf("%d rows for %d labels: %w", r, len(labels), common.ErrDimensionMismatch)
	}

	pos := make([]float64, c)
	neg := make([]float64, c)
	var np, nn float64
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		if labels[i] {
			floats.Add(pos, row)
			np++
		} else {
			floats.Add(neg, row)
			nn++
		}
	}
	if np == 0 || nn == 0 {
		return nil, fmt.Errorf("class sizes %v/%v: %w", np, nn, common.ErrLabelCardinality)
	}

	floats.Scale(1/np, pos)
	floats.Scale(1/nn, neg)
	floats.Sub(pos, neg)
	return pos, nil
}
