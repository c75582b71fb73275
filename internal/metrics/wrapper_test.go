package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ preproc.StageObserver = (*MetricsWrapper)(nil)
	_ ml.MetricsInterface   = (*MetricsWrapper)(nil)
)

func TestNewWrapper(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	w := NewWrapper(m)
	require.NotNil(t, w)
	assert.Same(t, m, w.m)
}

func TestMetricsWrapper_Gauges(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	w := NewWrapper(m)

	w.ChannelsSet(3, 1)
	w.TrialsSet(19, 1)
	w.FeaturesSet(9)
	w.TrainingSamplesSet(19)
	w.TrainingAccuracySet(0.95)
	w.ArtifactBytesSet(512)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChannelsKept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelsRejected))
	assert.Equal(t, 19.0, testutil.ToFloat64(m.TrialsKept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrialsRejected))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.Features))
	assert.Equal(t, 19.0, testutil.ToFloat64(m.TrainingSamples))
	assert.Equal(t, 0.95, testutil.ToFloat64(m.TrainingAccuracy))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.ArtifactBytes))
}

func TestMetricsWrapper_Counters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	w := NewWrapper(m)

	w.RunsInc()
	w.RunsInc()
	w.ErrorsInc()
	w.UnknownLabelsAdd(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.UnknownLabels))
}

func TestMetricsWrapper_StageDuration(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	w := NewWrapper(m)

	w.StageDuration(preproc.StageDetrend, 2*time.Millisecond)
	w.StageDuration(preproc.StageSpectrum, time.Millisecond)
	w.StageDuration(preproc.StageSpectrum, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))

	expected := `
# HELP bci_runs_total Total number of training runs started
# TYPE bci_runs_total counter
bci_runs_total 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "bci_runs_total"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	w := NewWrapper(m)
	w.RunsInc()
	w.StageDuration(preproc.StageBands, time.Millisecond)

	path := filepath.Join(t.TempDir(), "train.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bci_runs_total 1")
	assert.Contains(t, string(raw), "bci_stage_duration_seconds")

	assert.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "train.prom")))
}
