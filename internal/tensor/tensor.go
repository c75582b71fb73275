// Package tensor holds the dense three-axis array a recording session is
// processed as: channels × samples × trials. After the spectral transform the
// sample axis carries frequencies instead of time.
package tensor

import (
	"fmt"

	"bci-trainer/internal/common"
)

// Axis names one of the three tensor dimensions.
type Axis int

const (
	AxisChannel Axis = iota
	AxisTime
	AxisTrial
)

func (a Axis) String() string {
	switch a {
	case AxisChannel:
		return "channel"
	case AxisTime:
		return "time"
	case AxisTrial:
		return "trial"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Tensor is a dense (channel, sample, trial) array. Samples of one
// (channel, trial) series are contiguous.
type Tensor struct {
	shape [3]int
	data  []float64
}

// New allocates a zeroed tensor.
func New(channels, samples, trials int) *Tensor {
	if channels < 0 || samples < 0 || trials < 0 {
		panic(fmt.Sprintf("tensor: negative dimension %dx%dx%d", channels, samples, trials))
	}
	return &Tensor{
		shape: [3]int{channels, samples, trials},
		data:  make([]float64, channels*samples*trials),
	}
}

// Dims returns the channel, sample and trial counts.
func (x *Tensor) Dims() (channels, samples, trials int) {
	return x.shape[0], x.shape[1], x.shape[2]
}

// Len returns the length of one axis.
func (x *Tensor) Len(a Axis) int {
	return x.shape[a]
}

// RequireNonEmpty fails with ErrEmptyAxis when any axis has length zero.
func (x *Tensor) RequireNonEmpty() error {
	for a := AxisChannel; a <= AxisTrial; a++ {
		if x.shape[a] == 0 {
			return fmt.Errorf("%s axis: %w", a, common.ErrEmptyAxis)
		}
	}
	return nil
}

func (x *Tensor) offset(c, t, k int) int {
	return (k*x.shape[0]+c)*x.shape[1] + t
}

func (x *Tensor) At(c, t, k int) float64 {
	return x.data[x.offset(c, t, k)]
}

func (x *Tensor) Set(c, t, k int, v float64) {
	x.data[x.offset(c, t, k)] = v
}

// Series returns a view of the samples of channel c in trial k.
// Writes through the returned slice modify the tensor.
func (x *Tensor) Series(c, k int) []float64 {
	off := x.offset(c, 0, k)
	return x.data[off : off+x.shape[1] : off+x.shape[1]]
}

// SetSeries copies v into channel c of trial k.
func (x *Tensor) SetSeries(c, k int, v []float64) {
	if len(v) != x.shape[1] {
		panic(fmt.Sprintf("tensor: series length %d, want %d", len(v), x.shape[1]))
	}
	copy(x.Series(c, k), v)
}

// Clone returns a deep copy.
func (x *Tensor) Clone() *Tensor {
	out := &Tensor{shape: x.shape, data: make([]float64, len(x.data))}
	copy(out.data, x.data)
	return out
}

// MapSeries builds a new tensor by applying fn to every (channel, trial)
// series. All outputs must share one length, which becomes the new sample axis.
func (x *Tensor) MapSeries(fn func(c, k int, series []float64) []float64) (*Tensor, error) {
	ch, _, tr := x.Dims()
	var out *Tensor
	for k := 0; k < tr; k++ {
		for c := 0; c < ch; c++ {
			res := fn(c, k, x.Series(c, k))
			if out == nil {
				out = New(ch, len(res), tr)
			}
			if len(res) != out.shape[1] {
				return nil, fmt.Errorf("series (%d,%d) has length %d, want %d: %w", c, k, len(res), out.shape[1], common.ErrDimensionMismatch)
			}
			out.SetSeries(c, k, res)
		}
	}
	if out == nil {
		out = New(ch, 0, tr)
	}
	return out, nil
}

// Select returns a copy restricted to idx along axis a, in the order given.
// Indices must be in range and unique; an empty selection is ErrEmptyAxis.
func (x *Tensor) Select(a Axis, idx []int) (*Tensor, error) {
	if a < AxisChannel || a > AxisTrial {
		return nil, fmt.Errorf("tensor: invalid axis %d", int(a))
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("select %s: %w", a, common.ErrEmptyAxis)
	}
	seen := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		if i < 0 || i >= x.shape[a] {
			return nil, fmt.Errorf("select %s: index %d out of range [0,%d)", a, i, x.shape[a])
		}
		if _, dup := seen[i]; dup {
			return nil, fmt.Errorf("select %s: duplicate index %d", a, i)
		}
		seen[i] = struct{}{}
	}

	shape := x.shape
	shape[a] = len(idx)
	out := New(shape[0], shape[1], shape[2])

	for k := 0; k < shape[2]; k++ {
		for c := 0; c < shape[0]; c++ {
			srcC, srcK := c, k
			switch a {
			case AxisChannel:
				srcC = idx[c]
			case AxisTrial:
				srcK = idx[k]
			}
			src := x.Series(srcC, srcK)
			dst := out.Series(c, k)
			if a == AxisTime {
				for t, i := range idx {
					dst[t] = src[i]
				}
			} else {
				copy(dst, src)
			}
		}
	}
	return out, nil
}

// FromTrials builds a tensor from per-trial channel × sample matrices.
func FromTrials(trials [][][]float64) (*Tensor, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("no trials: %w", common.ErrEmptyAxis)
	}
	ch := len(trials[0])
	if ch == 0 {
		return nil, fmt.Errorf("trial 0 has no channels: %w", common.ErrEmptyAxis)
	}
	ns := len(trials[0][0])
	out := New(ch, ns, len(trials))
	for k, trial := range trials {
		if len(trial) != ch {
			return nil, fmt.Errorf("trial %d has %d channels, want %d: %w", k, len(trial), ch, common.ErrDimensionMismatch)
		}
		for c, series := range trial {
			if len(series) != ns {
				return nil, fmt.Errorf("trial %d channel %d has %d samples, want %d: %w", k, c, len(series), ns, common.ErrDimensionMismatch)
			}
			out.SetSeries(c, k, series)
		}
	}
	return out, nil
}

// Trial returns a copy of trial k as a channel × sample matrix.
func (x *Tensor) Trial(k int) [][]float64 {
	out := make([][]float64, x.shape[0])
	for c := range out {
		out[c] = append([]float64(nil), x.Series(c, k)...)
	}
	return out
}
