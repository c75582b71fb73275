// Package preproc implements the offline pre-processing chain that turns a
// raw trial tensor into band-power features:
//
//	detrend → bad-channel removal → common average reference →
//	power spectrum → band selection → bad-trial removal
//
// The order is fixed. Parameters chosen along the way (kept channels, band
// bins, kept trials) accumulate in a State so they can be persisted with the
// classifier and replayed on new data with Apply.
package preproc

import (
	"fmt"
	"time"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"

	"github.com/rs/zerolog/log"
)

// Stage names, also used as metric labels.
const (
	StageDetrend       = "detrend"
	StageBadChannels   = "bad_channels"
	StageSpatialFilter = "spatial_filter"
	StageSpectrum      = "spectrum"
	StageBands         = "band_selection"
	StageBadTrials     = "bad_trials"
)

// StageObserver receives per-stage timings.
type StageObserver interface {
	StageDuration(stage string, d time.Duration)
}

// Params configures a pipeline run.
type Params struct {
	FSample         float64
	FreqBands       []float64 // edges as supplied; persisted unchanged
	ChannelOutliers OutlierOptions
	TrialOutliers   OutlierOptions
}

// State is the side output of a run.
type State struct {
	FSample float64

	GoodChannels []int
	BadChannels  []int

	FreqBands []float64 // as supplied
	BandEdges []float64 // sorted
	BandBins  [][]int   // spectrum bins per band
	Freqs     []float64 // labels of the current frequency axis

	GoodTrials []int
	BadTrials  []int

	Labels []bool // one per surviving trial
}

type stage struct {
	name string
	run  func(p *Pipeline, x *tensor.Tensor, st *State) (*tensor.Tensor, error)
}

var stages = [...]stage{
	{StageDetrend, (*Pipeline).detrend},
	{StageBadChannels, (*Pipeline).badChannels},
	{StageSpatialFilter, (*Pipeline).spatialFilter},
	{StageSpectrum, (*Pipeline).spectrum},
	{StageBands, (*Pipeline).bands},
	{StageBadTrials, (*Pipeline).badTrials},
}

// Pipeline runs the fixed stage sequence.
type Pipeline struct {
	params   Params
	observer StageObserver
}

// New creates a pipeline. observer may be nil.
func New(params Params, observer StageObserver) *Pipeline {
	return &Pipeline{params: params, observer: observer}
}

// Run processes x, whose trials correspond one-to-one with labels. The input
// tensor is not modified.
func (p *Pipeline) Run(x *tensor.Tensor, labels []bool) (*tensor.Tensor, *State, error) {
	if x == nil {
		return nil, nil, fmt.Errorf("no input tensor: %w", common.ErrEmptyAxis)
	}
	if x.Len(tensor.AxisTrial) != len(labels) {
		return nil, nil, fmt.Errorf("%d trials for %d labels: %w", x.Len(tensor.AxisTrial), len(labels), common.ErrDimensionMismatch)
	}

	st := &State{
		FSample:   p.params.FSample,
		FreqBands: append([]float64(nil), p.params.FreqBands...),
		Labels:    append([]bool(nil), labels...),
	}

	var err error
	for _, s := range stages {
		if err := x.RequireNonEmpty(); err != nil {
			return nil, nil, fmt.Errorf("before %s: %w", s.name, err)
		}

		start := time.Now()
		x, err = s.run(p, x, st)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if p.observer != nil {
			p.observer.StageDuration(s.name, time.Since(start))
		}

		ch, n, tr := x.Dims()
		log.Debug().Str("stage", s.name).Int("channels", ch).Int("samples", n).Int("trials", tr).Msg("stage complete")
	}

	return x, st, nil
}

func (p *Pipeline) detrend(x *tensor.Tensor, _ *State) (*tensor.Tensor, error) {
	return Detrend(x)
}

func (p *Pipeline) badChannels(x *tensor.Tensor, st *State) (*tensor.Tensor, error) {
	good, bad, err := OutlierDetection(x, tensor.AxisChannel, p.params.ChannelOutliers)
	if err != nil {
		return nil, err
	}
	st.GoodChannels, st.BadChannels = good, bad

	out, err := x.Select(tensor.AxisChannel, good)
	if err != nil {
		return nil, err
	}
	if err := checkLabels(out, st); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) spatialFilter(x *tensor.Tensor, _ *State) (*tensor.Tensor, error) {
	return CommonAverageReference(x)
}

func (p *Pipeline) spectrum(x *tensor.Tensor, st *State) (*tensor.Tensor, error) {
	out, freqs, err := PowerSpectrum(x, p.params.FSample)
	if err != nil {
		return nil, err
	}
	st.Freqs = freqs
	log.Debug().Floats64("freqs", freqs).Msg("spectrum bins")
	return out, nil
}

func (p *Pipeline) bands(x *tensor.Tensor, st *State) (*tensor.Tensor, error) {
	out, sel, err := SelectBands(x, p.params.FreqBands, st.Freqs)
	if err != nil {
		return nil, err
	}
	st.BandEdges, st.BandBins, st.Freqs = sel.Edges, sel.Bins, sel.Centers
	return out, nil
}

func (p *Pipeline) badTrials(x *tensor.Tensor, st *State) (*tensor.Tensor, error) {
	good, bad, err := OutlierDetection(x, tensor.AxisTrial, p.params.TrialOutliers)
	if err != nil {
		return nil, err
	}
	st.GoodTrials, st.BadTrials = good, bad

	out, err := x.Select(tensor.AxisTrial, good)
	if err != nil {
		return nil, err
	}

	labels := make([]bool, len(good))
	for i, k := range good {
		labels[i] = st.Labels[k]
	}
	st.Labels = labels

	if err := checkLabels(out, st); err != nil {
		return nil, err
	}
	return out, nil
}

func checkLabels(x *tensor.Tensor, st *State) error {
	if n := x.Len(tensor.AxisTrial); n != len(st.Labels) {
		return fmt.Errorf("%d trials but %d labels: %w", n, len(st.Labels), common.ErrDimensionMismatch)
	}
	return nil
}

// Replay is the subset of State needed to reproduce features on new data.
type Replay struct {
	FSample      float64
	GoodChannels []int
	FreqBands    []float64
}

// Apply reproduces the training features for x using persisted parameters:
// detrend, keep GoodChannels, common average reference, power spectrum and
// band selection. No outlier rejection is performed.
func Apply(x *tensor.Tensor, r Replay) (*tensor.Tensor, error) {
	out, err := Detrend(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageDetrend, err)
	}
	if out, err = out.Select(tensor.AxisChannel, r.GoodChannels); err != nil {
		return nil, fmt.Errorf("%s: %w", StageBadChannels, err)
	}
	if out, err = CommonAverageReference(out); err != nil {
		return nil, fmt.Errorf("%s: %w", StageSpatialFilter, err)
	}
	out, freqs, err := PowerSpectrum(out, r.FSample)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageSpectrum, err)
	}
	if out, _, err = SelectBands(out, r.FreqBands, freqs); err != nil {
		return nil, fmt.Errorf("%s: %w", StageBands, err)
	}
	return out, nil
}
