package training

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// Reporter renders a finished run.
type Reporter struct {
	results *Results
}

// NewReporter creates a new reporter
func NewReporter(results *Results) *Reporter {
	return &Reporter{results: results}
}

// LogSummary emits the run summary as one structured log line.
func (r *Reporter) LogSummary() {
	res := r.results
	ev := log.Info().
		Dur("elapsed", res.EndTime.Sub(res.StartTime)).
		Str("backend", res.Backend).
		Int("features", res.FeatureCols).
		Int("trials", res.FeatureRows).
		Float64("training_accuracy", res.Model.TrainingAccuracy)
	if res.ArtifactLocation != "" {
		ev = ev.Str("artifact", res.ArtifactLocation).Str("version", res.Version)
	}
	ev.Msg("Training run finished")
}

// PrintSummary writes a human-readable summary to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results
	fmt.Fprintln(w, "\n=== TRAINING RESULTS ===")
	fmt.Fprintf(w, "Dataset: %s (%s)\n", res.DataPath, res.Backend)
	fmt.Fprintf(w, "Raw data: %d channels x %d samples x %d trials\n", res.RawDims[0], res.RawDims[1], res.RawDims[2])
	if len(res.UnknownLabels) > 0 {
		fmt.Fprintf(w, "Unknown labels: %d (dropped %d)\n", len(res.UnknownLabels), len(res.DroppedTrials))
	}
	if st := res.State; st != nil {
		fmt.Fprintf(w, "Good channels: %s\n", joinInts(st.GoodChannels))
		fmt.Fprintf(w, "Bad channels: %s\n", joinInts(st.BadChannels))
		fmt.Fprintf(w, "Bad trials: %s\n", joinInts(st.BadTrials))
	}
	fmt.Fprintf(w, "Feature matrix: %d x %d\n", res.FeatureRows, res.FeatureCols)
	if res.Classifier != nil {
		fmt.Fprintf(w, "Bias: %.6g\n", res.Classifier.Bias)
		fmt.Fprintf(w, "Training accuracy: %.2f%%\n", res.Model.TrainingAccuracy*100)
	}
	if res.ArtifactLocation != "" {
		fmt.Fprintf(w, "Saved: %s (%s, version %s)\n", res.ArtifactLocation, humanize.Bytes(uint64(res.ArtifactBytes)), res.Version)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", res.EndTime.Sub(res.StartTime))
	fmt.Fprintln(w, "========================")
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "none"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
