package training

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"bci-trainer/internal/cfg"
	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"
	"bci-trainer/internal/features"
	"bci-trainer/internal/metrics"
	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"
	"bci-trainer/internal/storage"
	"bci-trainer/internal/tensor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, dir string, b dataset.Backend, edit func(*dataset.Dataset)) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Synthesize(dataset.DefaultSynthOptions())
	require.NoError(t, err)
	if edit != nil {
		edit(ds)
	}
	_, err = dataset.Save(b, dir, common.DefaultDatasetName, ds)
	require.NoError(t, err)
	return ds
}

func testSettings(dir string) cfg.Settings {
	s := cfg.Default()
	s.DataDir = dir
	return s
}

func TestEngineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	ds := writeSession(t, dir, dataset.MatBackend{}, nil)

	settings := testSettings(dir)
	settings.MetricsFile = filepath.Join(dir, "train.prom")
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	res, err := NewEngine(settings, m).Run()
	require.NoError(t, err)

	assert.Equal(t, "mat", res.Backend)
	assert.Equal(t, [3]int{4, 100, 20}, res.RawDims)
	assert.Equal(t, []int{0, 1, 2}, res.State.GoodChannels)
	assert.NotContains(t, res.State.GoodChannels, 3)
	assert.Len(t, res.State.GoodTrials, 20)
	assert.Equal(t, 20, res.FeatureRows)
	assert.Equal(t, 9, res.FeatureCols)
	assert.Len(t, res.ClassMeanDiff, 9)

	require.NotNil(t, res.Classifier)
	require.Len(t, res.Classifier.Weights, 9)
	nonzero := false
	for _, w := range res.Classifier.Weights {
		if w != 0 {
			nonzero = true
		}
	}
	assert.True(t, nonzero)
	assert.GreaterOrEqual(t, res.Model.TrainingAccuracy, 0.9)

	assert.Equal(t, filepath.Join(dir, "clsfr.json"), res.ArtifactLocation)
	artifact, err := storage.NewFileStore(dir).Load(common.DefaultModelName)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, artifact.GoodCh)
	assert.Equal(t, []float64{20, 10, 30, 60}, artifact.FreqBands)
	assert.Equal(t, 250.0, artifact.FSample)
	assert.Equal(t, *res.Classifier, artifact.Classifier)
	assert.Equal(t, []string{"Ch1", "Ch2", "Ch3"}, artifact.Channels)
	assert.NoError(t, artifact.Validate())

	cur, ok := ml.NewModelManager(dir).Current()
	require.True(t, ok)
	assert.Equal(t, res.Version, cur.Version)
	assert.Equal(t, 9, cur.Metrics.Features)
	assert.Equal(t, 3, cur.Metrics.GoodChannels)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ErrorsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChannelsKept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelsRejected))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.Features))
	assert.Equal(t, 6, testutil.CollectAndCount(m.StageDuration))

	raw, err := os.ReadFile(settings.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bci_runs_total 1")

	// The persisted parameters reproduce the training features.
	replayed, err := preproc.Apply(ds.Data, artifact.Replay())
	require.NoError(t, err)
	replayed, err = replayed.Select(tensor.AxisTrial, res.State.GoodTrials)
	require.NoError(t, err)
	X, y, err := features.Assemble(replayed, res.State.Labels)
	require.NoError(t, err)
	acc, err := artifact.Classifier.Accuracy(X, y)
	require.NoError(t, err)
	assert.InDelta(t, res.Model.TrainingAccuracy, acc, 1e-12)
}

func TestEngineMissingDataset(t *testing.T) {
	dir := t.TempDir()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	_, err := NewEngine(testSettings(dir), m).Run()
	assert.ErrorIs(t, err, common.ErrDataNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal))

	_, statErr := os.Stat(filepath.Join(dir, "clsfr.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEngineSingleClassWritesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.BoltBackend{}, func(ds *dataset.Dataset) {
		for i := range ds.Events {
			ds.Events[i].Value = "stimulus_True"
		}
	})

	_, err := NewEngine(testSettings(dir), nil).Run()
	assert.ErrorIs(t, err, common.ErrLabelCardinality)

	_, statErr := os.Stat(filepath.Join(dir, "clsfr.json"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, ml.VersionsFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEngineRegistryFailureKeepsArtifact(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.BoltBackend{}, nil)
	// a directory in the registry's place makes the version write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, ml.VersionsFile), 0o755))

	res, err := NewEngine(testSettings(dir), nil).Run()
	require.NoError(t, err)
	assert.Empty(t, res.Version)

	_, statErr := os.Stat(filepath.Join(dir, "clsfr.json"))
	assert.NoError(t, statErr)
}

func TestEngineUnknownLabelPolicies(t *testing.T) {
	edit := func(ds *dataset.Dataset) {
		ds.Events[2].Value = "stimulus_maybe"
		ds.Events[3].Value = "stimulus_maybe"
	}

	t.Run("false keeps every trial", func(t *testing.T) {
		dir := t.TempDir()
		writeSession(t, dir, dataset.LevelBackend{}, edit)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())

		res, err := NewEngine(testSettings(dir), m).Run()
		require.NoError(t, err)
		assert.Equal(t, "level", res.Backend)
		assert.Equal(t, []int{2, 3}, res.UnknownLabels)
		assert.Empty(t, res.DroppedTrials)
		assert.Equal(t, 20, res.FeatureRows)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.UnknownLabels))
	})

	t.Run("drop removes unknown trials", func(t *testing.T) {
		dir := t.TempDir()
		writeSession(t, dir, dataset.LevelBackend{}, edit)
		settings := testSettings(dir)
		settings.UnknownLabelPolicy = common.LabelPolicyDrop

		res, err := NewEngine(settings, nil).Run()
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, res.DroppedTrials)
		assert.Equal(t, 18, res.FeatureRows)
		assert.Len(t, res.State.Labels, 18)
	})
}

func TestEngineBoltModelStore(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.MatBackend{}, nil)
	settings := testSettings(dir)
	settings.ModelFormat = common.ModelFormatBolt
	settings.ModelName = "session1"

	res, err := NewEngine(settings, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, storage.BoltFile)+"#session1", res.ArtifactLocation)

	store, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	a, err := store.Load("session1")
	require.NoError(t, err)
	assert.Equal(t, res.Classifier.Weights, a.Classifier.Weights)
}

func TestEngineInvalidBands(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.MatBackend{}, nil)
	settings := testSettings(dir)
	settings.FreqBands = []float64{200, 300}

	_, err := NewEngine(settings, nil).Run()
	assert.ErrorIs(t, err, common.ErrInvalidBands)
}

func TestEngineCustomBackends(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.MatBackend{}, nil)

	_, err := NewEngine(testSettings(dir), nil).WithBackends(dataset.BoltBackend{}).Run()
	assert.ErrorIs(t, err, common.ErrDataNotFound)
}

func TestReporter(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, dataset.MatBackend{}, nil)

	res, err := NewEngine(testSettings(dir), nil).Run()
	require.NoError(t, err)

	var buf bytes.Buffer
	r := NewReporter(res)
	r.PrintSummary(&buf)
	r.LogSummary()

	out := buf.String()
	assert.Contains(t, out, "Feature matrix: 20 x 9")
	assert.Contains(t, out, "Good channels: 0, 1, 2")
	assert.Contains(t, out, "Bad channels: 3")
	assert.Contains(t, out, "Bad trials: none")
	assert.Contains(t, out, "clsfr.json")
}
