package features

import (
	"testing"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAssemble_ShapeAndOrder(t *testing.T) {
	x := tensor.New(3, 2, 4)
	for k := 0; k < 4; k++ {
		for c := 0; c < 3; c++ {
			for f := 0; f < 2; f++ {
				x.Set(c, f, k, float64(1000*k+10*c+f))
			}
		}
	}
	labels := []bool{true, false, true, false}

	X, y, err := Assemble(x, labels)
	require.NoError(t, err)

	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 6, c)
	assert.Equal(t, []int{1, 0, 1, 0}, y)

	// row k, feature c*nFreq+f
	assert.Equal(t, 2021.0, X.At(2, 2*2+1))
	assert.Equal(t, 3010.0, X.At(3, 1*2+0))
}

func TestAssemble_Mismatch(t *testing.T) {
	x := tensor.New(2, 2, 3)
	_, _, err := Assemble(x, []bool{true, false})
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)

	_, _, err = Assemble(tensor.New(0, 2, 2), []bool{true, false})
	assert.ErrorIs(t, err, common.ErrEmptyAxis)
}

func TestClassMeanDiff(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		3, 1,
		1, 1,
		5, 2,
		1, 3,
	})
	diff, err := ClassMeanDiff(X, []bool{true, false, true, false})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, -0.5}, diff, 1e-12)

	_, err = ClassMeanDiff(X, []bool{true, true, true, true})
	assert.ErrorIs(t, err, common.ErrLabelCardinality)

	_, err = ClassMeanDiff(X, []bool{true})
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)
}
