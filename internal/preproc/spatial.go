package preproc

import (
	"bci-trainer/internal/tensor"

	"gonum.org/v1/gonum/floats"
)

// CommonAverageReference subtracts, at every sample of every trial, the mean
// over channels from each channel.
func CommonAverageReference(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := x.RequireNonEmpty(); err != nil {
		return nil, err
	}

	ch, ns, tr := x.Dims()
	out := x.Clone()
	mean := make([]float64, ns)
	for k := 0; k < tr; k++ {
		clear(mean)
		for c := 0; c < ch; c++ {
			floats.Add(mean, x.Series(c, k))
		}
		floats.Scale(1/float64(ch), mean)
		for c := 0; c < ch; c++ {
			floats.Sub(out.Series(c, k), mean)
		}
	}
	return out, nil
}
