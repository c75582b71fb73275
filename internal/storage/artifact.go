// Package storage persists trained classifier artifacts.
//
// An artifact bundles the classifier with the preprocessing parameters needed
// to reproduce its input features: kept channel indices, frequency band edges
// and the sample rate. Two stores are provided, a plain JSON file per model and
// a BoltDB database holding many models.
package storage

import (
	"fmt"
	"time"

	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"
	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"
)

// ArtifactVersion is bumped when the artifact layout changes.
const ArtifactVersion = 1

// Artifact is the persisted form of a training run.
type Artifact struct {
	Classifier ml.LinearClassifier `json:"classifier"`
	GoodCh     []int               `json:"goodch"`
	FreqBands  []float64           `json:"freqbands"`
	FSample    float64             `json:"fSample"`

	Channels  []string  `json:"channels,omitempty"`
	NFeatures int       `json:"nfeatures"`
	Version   int       `json:"version"`
	Created   time.Time `json:"created"`
}

// NewArtifact builds an artifact from a trained classifier and the pipeline
// state it was trained on. The weight count must equal kept channels times
// frequency bands.
func NewArtifact(clf *ml.LinearClassifier, st *preproc.State, hdr dataset.Header) (*Artifact, error) {
	if clf == nil || st == nil {
		return nil, fmt.Errorf("artifact needs a classifier and pipeline state")
	}

	bands := len(st.BandEdges) - 1
	if want := len(st.GoodChannels) * bands; len(clf.Weights) != want {
		return nil, fmt.Errorf("%d weights for %d channels x %d bands: %w",
			len(clf.Weights), len(st.GoodChannels), bands, common.ErrDimensionMismatch)
	}

	return &Artifact{
		Classifier: ml.LinearClassifier{
			Weights: append([]float64(nil), clf.Weights...),
			Bias:    clf.Bias,
		},
		GoodCh:    append([]int(nil), st.GoodChannels...),
		FreqBands: append([]float64(nil), st.FreqBands...),
		FSample:   st.FSample,
		Channels:  hdr.ChannelLabels(st.GoodChannels),
		NFeatures: len(clf.Weights),
		Version:   ArtifactVersion,
		Created:   time.Now().UTC(),
	}, nil
}

// Replay returns the preprocessing parameters for preproc.Apply.
func (a *Artifact) Replay() preproc.Replay {
	return preproc.Replay{
		FSample:      a.FSample,
		GoodChannels: a.GoodCh,
		FreqBands:    a.FreqBands,
	}
}

// Validate checks that the artifact is internally consistent.
func (a *Artifact) Validate() error {
	if a.FSample <= 0 {
		return fmt.Errorf("artifact sample rate %v is not positive", a.FSample)
	}
	edges, err := preproc.BandEdges(a.FreqBands)
	if err != nil {
		return err
	}
	if want := len(a.GoodCh) * (len(edges) - 1); len(a.Classifier.Weights) != want {
		return fmt.Errorf("%d weights for %d channels x %d bands: %w",
			len(a.Classifier.Weights), len(a.GoodCh), len(edges)-1, common.ErrDimensionMismatch)
	}
	return nil
}
