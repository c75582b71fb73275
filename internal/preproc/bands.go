package preproc

import (
	"fmt"
	"sort"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"
)

// BandSelection records how the frequency axis was binned.
type BandSelection struct {
	Edges   []float64 // ascending band edges
	Bins    [][]int   // source bin indices per band
	Centers []float64 // centre frequency per band
}

// BandEdges sorts the supplied edges and rejects lists that cannot form at
// least one band of non-zero width.
func BandEdges(bands []float64) ([]float64, error) {
	if len(bands) < common.MinFreqBandEdges {
		return nil, fmt.Errorf("%d band edges given, need at least %d: %w", len(bands), common.MinFreqBandEdges, common.ErrInvalidBands)
	}
	edges := append([]float64(nil), bands...)
	sort.Float64s(edges)
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return nil, fmt.Errorf("duplicate band edge %v: %w", edges[i], common.ErrInvalidBands)
		}
	}
	return edges, nil
}

// SelectBands bins the frequency axis by consecutive edges. Band i covers
// [edges[i], edges[i+1]), the last band also includes its upper edge. Each
// output value is the mean power of the source bins inside the band.
func SelectBands(x *tensor.Tensor, bands []float64, freqs []float64) (*tensor.Tensor, BandSelection, error) {
	var sel BandSelection
	if err := x.RequireNonEmpty(); err != nil {
		return nil, sel, err
	}
	if len(freqs) != x.Len(tensor.AxisTime) {
		return nil, sel, fmt.Errorf("%d frequency labels for %d bins: %w", len(freqs), x.Len(tensor.AxisTime), common.ErrDimensionMismatch)
	}

	edges, err := BandEdges(bands)
	if err != nil {
		return nil, sel, err
	}

	nb := len(edges) - 1
	sel = BandSelection{
		Edges:   edges,
		Bins:    make([][]int, nb),
		Centers: make([]float64, nb),
	}
	for b := 0; b < nb; b++ {
		lo, hi := edges[b], edges[b+1]
		last := b == nb-1
		for i, f := range freqs {
			if f >= lo && (f < hi || (last && f == hi)) {
				sel.Bins[b] = append(sel.Bins[b], i)
			}
		}
		if len(sel.Bins[b]) == 0 {
			return nil, BandSelection{}, fmt.Errorf("band [%g, %g] contains no frequency bins: %w: %w", lo, hi, common.ErrInvalidBands, common.ErrEmptyAxis)
		}
		sel.Centers[b] = (lo + hi) / 2
	}

	out, err := x.MapSeries(func(_, _ int, s []float64) []float64 {
		res := make([]float64, nb)
		for b, bins := range sel.Bins {
			var sum float64
			for _, i := range bins {
				sum += s[i]
			}
			res[b] = sum / float64(len(bins))
		}
		return res
	})
	if err != nil {
		return nil, BandSelection{}, err
	}
	return out, sel, nil
}
