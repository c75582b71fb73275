package metrics

import "time"

// MetricsWrapper adapts Metrics to the small observer interfaces the
// pipeline and trainer depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) StageDuration(stage string, d time.Duration) {
	w.m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (w *MetricsWrapper) TrainingAccuracySet(v float64) {
	w.m.TrainingAccuracy.Set(v)
}

func (w *MetricsWrapper) FeaturesSet(n int) {
	w.m.Features.Set(float64(n))
}

func (w *MetricsWrapper) TrainingSamplesSet(n int) {
	w.m.TrainingSamples.Set(float64(n))
}

// ChannelsSet records the bad-channel split.
func (w *MetricsWrapper) ChannelsSet(kept, rejected int) {
	w.m.ChannelsKept.Set(float64(kept))
	w.m.ChannelsRejected.Set(float64(rejected))
}

// TrialsSet records the bad-trial split.
func (w *MetricsWrapper) TrialsSet(kept, rejected int) {
	w.m.TrialsKept.Set(float64(kept))
	w.m.TrialsRejected.Set(float64(rejected))
}

func (w *MetricsWrapper) UnknownLabelsAdd(n int) {
	w.m.UnknownLabels.Add(float64(n))
}

func (w *MetricsWrapper) ArtifactBytesSet(n int) {
	w.m.ArtifactBytes.Set(float64(n))
}

func (w *MetricsWrapper) RunsInc() {
	w.m.RunsTotal.Inc()
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}
