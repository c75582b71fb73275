// Package dataset loads a recorded training session: the trial tensor, one
// event per trial and the session header. A session may be stored in any of
// several interchangeable formats; Find tries them in rank order and the
// first one that exists and loads wins.
package dataset

import (
	"fmt"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"
)

// Event is a labelled marker attached to one trial.
type Event struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Sample   int    `json:"sample"`
	Offset   int    `json:"offset"`
	Duration int    `json:"duration"`
}

// Header is read-only session metadata.
type Header struct {
	FSample   float64  `json:"fSample"`
	NChannels int      `json:"nChannels"`
	NSamples  int      `json:"nSamples"`
	NTrials   int      `json:"nTrials"`
	Labels    []string `json:"labels,omitempty"`
}

// Dataset is one loaded session.
type Dataset struct {
	Data   *tensor.Tensor
	Events []Event
	Header Header
}

// Validate checks the invariants every backend must deliver.
func (d *Dataset) Validate() error {
	if d.Data == nil {
		return fmt.Errorf("dataset has no data: %w", common.ErrEmptyAxis)
	}
	if d.Header.FSample <= 0 {
		return fmt.Errorf("header sample rate must be positive, got %v", d.Header.FSample)
	}
	ch, ns, tr := d.Data.Dims()
	if len(d.Events) != tr {
		return fmt.Errorf("%d events for %d trials: %w", len(d.Events), tr, common.ErrDimensionMismatch)
	}
	if d.Header.NChannels != 0 && d.Header.NChannels != ch {
		return fmt.Errorf("header lists %d channels, data has %d: %w", d.Header.NChannels, ch, common.ErrDimensionMismatch)
	}
	if d.Header.NSamples != 0 && d.Header.NSamples != ns {
		return fmt.Errorf("header lists %d samples, data has %d: %w", d.Header.NSamples, ns, common.ErrDimensionMismatch)
	}
	if d.Header.NTrials != 0 && d.Header.NTrials != tr {
		return fmt.Errorf("header lists %d trials, data has %d: %w", d.Header.NTrials, tr, common.ErrDimensionMismatch)
	}
	if len(d.Header.Labels) != 0 && len(d.Header.Labels) != ch {
		return fmt.Errorf("header has %d channel labels for %d channels: %w", len(d.Header.Labels), ch, common.ErrDimensionMismatch)
	}
	return d.Data.RequireNonEmpty()
}

// ChannelLabels returns the labels of the given channel indices, or nil when
// the header carries none.
func (h Header) ChannelLabels(idx []int) []string {
	if len(h.Labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(h.Labels) {
			out = append(out, h.Labels[i])
		}
	}
	return out
}
