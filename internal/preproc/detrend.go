package preproc

import (
	"bci-trainer/internal/tensor"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Detrend removes the least-squares line over sample index from every
// (channel, trial) series. The residual has zero mean and zero slope.
func Detrend(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := x.RequireNonEmpty(); err != nil {
		return nil, err
	}

	ns := x.Len(tensor.AxisTime)
	idx := sampleIndex(ns)
	return x.MapSeries(func(_, _ int, s []float64) []float64 {
		out := make([]float64, ns)
		if ns < 2 {
			// a single sample has no slope, only its mean
			return out
		}
		alpha, beta := stat.LinearRegression(idx, s, nil, false)
		for t, v := range s {
			out[t] = v - (alpha + beta*idx[t])
		}
		return out
	})
}

func sampleIndex(n int) []float64 {
	idx := make([]float64, n)
	if n > 1 {
		floats.Span(idx, 0, float64(n-1))
	}
	return idx
}
