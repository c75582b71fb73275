package storage

import (
	"os"
	"path/filepath"
	"testing"

	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"
	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifact(t *testing.T) *Artifact {
	t.Helper()
	st := &preproc.State{
		FSample:      250,
		GoodChannels: []int{0, 2},
		BadChannels:  []int{1},
		FreqBands:    []float64{20, 10, 30},
		BandEdges:    []float64{10, 20, 30},
	}
	clf := &ml.LinearClassifier{Weights: []float64{0.1, -0.2, 1e-17, 3.3333333333333335}, Bias: -0.7}
	hdr := dataset.Header{Labels: []string{"Cz", "Pz", "Oz"}}

	a, err := NewArtifact(clf, st, hdr)
	require.NoError(t, err)
	return a
}

func assertSameArtifact(t *testing.T, want, got *Artifact) {
	t.Helper()
	assert.Equal(t, want.Classifier, got.Classifier)
	assert.Equal(t, want.GoodCh, got.GoodCh)
	assert.Equal(t, want.FreqBands, got.FreqBands)
	assert.Equal(t, want.FSample, got.FSample)
	assert.Equal(t, want.Channels, got.Channels)
	assert.Equal(t, want.NFeatures, got.NFeatures)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.Created.Equal(got.Created))
}

func TestNewArtifact(t *testing.T) {
	a := sampleArtifact(t)
	assert.Equal(t, []int{0, 2}, a.GoodCh)
	assert.Equal(t, []string{"Cz", "Oz"}, a.Channels)
	assert.Equal(t, []float64{20, 10, 30}, a.FreqBands)
	assert.Equal(t, 4, a.NFeatures)
	assert.Equal(t, ArtifactVersion, a.Version)
	assert.NoError(t, a.Validate())

	r := a.Replay()
	assert.Equal(t, 250.0, r.FSample)
	assert.Equal(t, []int{0, 2}, r.GoodChannels)
}

func TestNewArtifactWeightMismatch(t *testing.T) {
	st := &preproc.State{FSample: 100, GoodChannels: []int{0}, BandEdges: []float64{1, 2, 3}}
	_, err := NewArtifact(&ml.LinearClassifier{Weights: []float64{1}}, st, dataset.Header{})
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)

	_, err = NewArtifact(nil, st, dataset.Header{})
	assert.Error(t, err)
}

func TestArtifactValidate(t *testing.T) {
	a := sampleArtifact(t)
	a.FSample = 0
	assert.Error(t, a.Validate())

	a = sampleArtifact(t)
	a.FreqBands = []float64{10}
	assert.ErrorIs(t, a.Validate(), common.ErrInvalidBands)

	a = sampleArtifact(t)
	a.GoodCh = []int{0}
	assert.ErrorIs(t, a.Validate(), common.ErrDimensionMismatch)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	s := NewFileStore(dir)
	defer s.Close()

	want := sampleArtifact(t)
	path, size, err := s.Save("clsfr", want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clsfr.json"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(size), info.Size())

	got, err := s.Load("clsfr")
	require.NoError(t, err)
	assertSameArtifact(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreContractKeys(t *testing.T) {
	s := NewFileStore(t.TempDir())
	path, _, err := s.Save("clsfr", sampleArtifact(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"classifier"`, `"weights"`, `"bias"`, `"goodch"`, `"freqbands"`, `"fSample"`} {
		assert.Contains(t, string(raw), key)
	}
}

func TestFileStoreOverwriteAndMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.Load("clsfr")
	assert.ErrorIs(t, err, common.ErrArtifactNotFound)

	a := sampleArtifact(t)
	_, _, err = s.Save("clsfr", a)
	require.NoError(t, err)

	a.Classifier.Bias = 42
	_, _, err = s.Save("clsfr", a)
	require.NoError(t, err)

	got, err := s.Load("clsfr")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Classifier.Bias)
}

func TestFileStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clsfr.json"), []byte("{"), 0o600))

	_, err := NewFileStore(dir).Load("clsfr")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrArtifactNotFound)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir)
	require.NoError(t, err)

	want := sampleArtifact(t)
	loc, size, err := s.Save("clsfr", want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BoltFile)+"#clsfr", loc)
	assert.Positive(t, size)

	_, _, err = s.Save("other", want)
	require.NoError(t, err)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"clsfr", "other"}, names)

	_, err = s.Load("missing")
	assert.ErrorIs(t, err, common.ErrArtifactNotFound)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load("clsfr")
	require.NoError(t, err)
	assertSameArtifact(t, want, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	js, err := Open(common.ModelFormatJSON, dir)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, js)

	bs, err := Open(common.ModelFormatBolt, dir)
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, bs)
	require.NoError(t, bs.Close())

	_, err = Open("pickle", dir)
	assert.Error(t, err)
}
