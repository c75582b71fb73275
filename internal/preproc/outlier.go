package preproc

import (
	"fmt"
	"math"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// flatRatio marks a slice as dead when its power is this small relative to
// the median power of all slices.
const flatRatio = 1e-10

// madScale makes the median absolute deviation a consistent estimate of the
// standard deviation for normal data.
const madScale = 1.4826

// OutlierOptions configures OutlierDetection.
type OutlierOptions struct {
	// Method is common.OutlierMethodStd (the default when empty) or
	// common.OutlierMethodMAD.
	Method    string
	Threshold float64 // allowed distance from the centre, in spread units
	MaxIter   int
}

// SlicePower returns the RMS value of every slice along axis a, taken over the
// two other axes.
func SlicePower(x *tensor.Tensor, a tensor.Axis) []float64 {
	ch, ns, tr := x.Dims()
	sum := make([]float64, x.Len(a))
	sq := make([]float64, ns)
	for k := 0; k < tr; k++ {
		for c := 0; c < ch; c++ {
			s := x.Series(c, k)
			switch a {
			case tensor.AxisChannel:
				sum[c] += floats.Dot(s, s)
			case tensor.AxisTrial:
				sum[k] += floats.Dot(s, s)
			case tensor.AxisTime:
				floats.AddTo(sum, sum, floats.MulTo(sq, s, s))
			}
		}
	}
	n := float64(ch * ns * tr / x.Len(a))
	for i := range sum {
		sum[i] = math.Sqrt(sum[i] / n)
	}
	return sum
}

// OutlierDetection partitions the indices of axis a into good and bad sets.
// Flat slices are always bad. The rest are screened iteratively: anything
// further than Threshold spread units from the centre of the currently good
// slices is moved to the bad set, until a pass flags nothing or MaxIter passes
// have run. Both sets are ascending and together cover the axis once.
//
// With the std method the centre is the mean and the spread the population
// std dev. No slice of n can then lie more than (n-1)/√n std devs out, so
// small axes (a handful of channels) are never screened beyond the flat rule.
// The MAD method uses the median and the scaled median absolute deviation and
// has no such bound.
func OutlierDetection(x *tensor.Tensor, a tensor.Axis, opts OutlierOptions) (good, bad []int, err error) {
	if err := x.RequireNonEmpty(); err != nil {
		return nil, nil, err
	}
	if opts.Threshold <= 0 {
		return nil, nil, fmt.Errorf("outlier threshold must be positive, got %v", opts.Threshold)
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = 1
	}
	centreSpread, err := outlierScore(opts.Method)
	if err != nil {
		return nil, nil, err
	}

	power := SlicePower(x, a)
	median, err := stats.Median(power)
	if err != nil {
		return nil, nil, fmt.Errorf("median %s power: %w", a, err)
	}

	isBad := make([]bool, len(power))
	for i, p := range power {
		if p <= flatRatio*median || p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			isBad[i] = true
		}
	}

	for iter := 0; iter < opts.MaxIter; iter++ {
		var kept stats.Float64Data
		for i, p := range power {
			if !isBad[i] {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			break
		}

		centre, spread := centreSpread(kept)
		if spread == 0 {
			break
		}
		limit := opts.Threshold * spread

		flagged := 0
		for i, p := range power {
			if !isBad[i] && math.Abs(p-centre) > limit {
				isBad[i] = true
				flagged++
			}
		}
		if flagged == 0 {
			break
		}
	}

	for i, b := range isBad {
		if b {
			bad = append(bad, i)
		} else {
			good = append(good, i)
		}
	}
	if len(good) == 0 {
		return nil, bad, fmt.Errorf("all %d %ss rejected as outliers: %w", len(power), a, common.ErrEmptyAxis)
	}
	return good, bad, nil
}

func outlierScore(method string) (func(stats.Float64Data) (centre, spread float64), error) {
	switch method {
	case "", common.OutlierMethodStd:
		return func(d stats.Float64Data) (float64, float64) {
			mean, _ := stats.Mean(d)
			std, _ := stats.StandardDeviationPopulation(d)
			return mean, std
		}, nil
	case common.OutlierMethodMAD:
		return func(d stats.Float64Data) (float64, float64) {
			median, _ := stats.Median(d)
			mad, _ := stats.MedianAbsoluteDeviationPopulation(d)
			return median, madScale * mad
		}, nil
	default:
		return nil, fmt.Errorf("unknown outlier method %q", method)
	}
}
