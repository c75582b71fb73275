package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"bci-trainer/internal/tensor"
)

// SynthOptions describes a generated calibration session.
type SynthOptions struct {
	Channels     int
	Samples      int
	Trials       int
	FSample      float64
	FlatChannels []int   // channels held at a constant value
	ClassFreq    float64 // Hz, present only in true trials
	ClassGain    float64
	NoiseLevel   float64
	Drift        float64 // linear trend per trial, scaled by trial index
	Seed         int64
}

// DefaultSynthOptions is a 4-channel, 100-sample, 20-trial session with the
// last channel flat.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		Channels:     4,
		Samples:      100,
		Trials:       20,
		FSample:      250,
		FlatChannels: []int{3},
		ClassFreq:    15,
		ClassGain:    2,
		NoiseLevel:   0.05,
		Drift:        0.01,
		Seed:         1,
	}
}

// Synthesize builds a session whose labels alternate true/false every trial.
// Every non-flat channel carries background rhythms at 25 and 40 Hz; true
// trials add a ClassFreq rhythm whose amplitude grows with channel index.
func Synthesize(o SynthOptions) (*Dataset, error) {
	if o.Channels <= 0 || o.Samples <= 0 || o.Trials <= 0 {
		return nil, fmt.Errorf("synth: need positive dims, got %dx%dx%d", o.Channels, o.Samples, o.Trials)
	}
	if o.FSample <= 0 {
		return nil, fmt.Errorf("synth: sample rate must be positive")
	}

	rng := rand.New(rand.NewSource(o.Seed))
	flat := make(map[int]bool, len(o.FlatChannels))
	for _, c := range o.FlatChannels {
		flat[c] = true
	}

	x := tensor.New(o.Channels, o.Samples, o.Trials)
	events := make([]Event, o.Trials)
	for k := 0; k < o.Trials; k++ {
		target := k%2 == 0
		events[k] = Event{
			Type:   "stimulus.target",
			Value:  fmt.Sprintf("stimulus_%v", titleBool(target)),
			Sample: k * o.Samples,
		}

		for c := 0; c < o.Channels; c++ {
			series := x.Series(c, k)
			if flat[c] {
				for t := range series {
					series[t] = 5
				}
				continue
			}
			phase := float64(c) * 0.7
			for t := range series {
				sec := float64(t) / o.FSample
				v := math.Sin(2*math.Pi*25*sec+phase) + 0.5*math.Sin(2*math.Pi*40*sec+2*phase)
				if target {
					v += o.ClassGain * float64(c+1) * math.Sin(2*math.Pi*o.ClassFreq*sec)
				}
				v += o.NoiseLevel * rng.NormFloat64()
				v += o.Drift * float64(k+1) * float64(t)
				series[t] = v
			}
		}
	}

	labels := make([]string, o.Channels)
	for c := range labels {
		labels[c] = fmt.Sprintf("Ch%d", c+1)
	}

	return &Dataset{
		Data:   x,
		Events: events,
		Header: Header{
			FSample:   o.FSample,
			NChannels: o.Channels,
			NSamples:  o.Samples,
			NTrials:   o.Trials,
			Labels:    labels,
		},
	}, nil
}

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
