package features

import (
	"fmt"
	"strings"

	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"
)

// Label is the three-way reading of an event value.
type Label int

const (
	LabelUnknown Label = iota
	LabelFalse
	LabelTrue
)

func (l Label) String() string {
	switch l {
	case LabelTrue:
		return "true"
	case LabelFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Classify matches the end of an event value against the True/False sentinels.
func Classify(value string) Label {
	switch {
	case strings.HasSuffix(value, common.LabelSuffixTrue):
		return LabelTrue
	case strings.HasSuffix(value, common.LabelSuffixFalse):
		return LabelFalse
	default:
		return LabelUnknown
	}
}

// LabelSet holds per-trial labels and which raw trials they belong to.
type LabelSet struct {
	Labels  []bool // one per kept trial
	Kept    []int  // raw trial index of each label
	Unknown []int  // raw trial indices whose value matched neither sentinel
}

// ExtractLabels derives one boolean per event. With LabelPolicyFalse every
// trial is kept and unknown values read as false; with LabelPolicyDrop unknown
// trials are left out of Kept and Labels.
func ExtractLabels(events []dataset.Event, policy string) (LabelSet, error) {
	if policy != common.LabelPolicyFalse && policy != common.LabelPolicyDrop {
		return LabelSet{}, fmt.Errorf("unknown label policy %q", policy)
	}

	set := LabelSet{
		Labels: make([]bool, 0, len(events)),
		Kept:   make([]int, 0, len(events)),
	}
	for i, e := range events {
		l := Classify(e.Value)
		if l == LabelUnknown {
			set.Unknown = append(set.Unknown, i)
			if policy == common.LabelPolicyDrop {
				continue
			}
		}
		set.Labels = append(set.Labels, l == LabelTrue)
		set.Kept = append(set.Kept, i)
	}

	if len(set.Kept) == 0 {
		return set, fmt.Errorf("no labelled trials among %d events: %w", len(events), common.ErrEmptyAxis)
	}
	return set, nil
}

// Ints converts labels to the 0/1 class encoding the classifier expects.
func Ints(labels []bool) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		if l {
			out[i] = 1
		}
	}
	return out
}
