package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestModelManagerAddAndRollback(t *testing.T) {
	dir := t.TempDir()
	mm := NewModelManager(dir)
	mm.now = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	_, ok := mm.Current()
	assert.False(t, ok)

	first, err := mm.AddVersion("clsfr", filepath.Join(dir, "clsfr.json"), "json", ModelMetrics{Features: 9})
	require.NoError(t, err)
	assert.Equal(t, "20240301-120000", first.Version)

	second, err := mm.AddVersion("clsfr", filepath.Join(dir, "clsfr.json"), "json", ModelMetrics{Features: 12})
	require.NoError(t, err)
	assert.Equal(t, "20240301-120000.1", second.Version)

	cur, ok := mm.Current()
	require.True(t, ok)
	assert.Equal(t, second.Version, cur.Version)

	require.NoError(t, mm.Rollback())
	cur, _ = mm.Current()
	assert.Equal(t, first.Version, cur.Version)
	assert.Error(t, mm.Rollback())

	reloaded := NewModelManager(dir)
	versions := reloaded.ListVersions()
	require.Len(t, versions, 2)
	cur, ok = reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, first.Version, cur.Version)
	assert.Equal(t, 9, cur.Metrics.Features)
}

func TestModelManagerNewestFirst(t *testing.T) {
	mm := NewModelManager(t.TempDir())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mm.now = fixedClock(base)
	_, err := mm.AddVersion("a", "a.json", "json", ModelMetrics{})
	require.NoError(t, err)
	mm.now = fixedClock(base.Add(time.Hour))
	_, err = mm.AddVersion("b", "b.json", "json", ModelMetrics{})
	require.NoError(t, err)

	versions := mm.ListVersions()
	assert.Equal(t, "b", versions[0].Name)
	assert.True(t, versions[0].IsActive)
	assert.False(t, versions[1].IsActive)
}

func TestModelManagerActivateUnknown(t *testing.T) {
	mm := NewModelManager(t.TempDir())
	assert.Error(t, mm.ActivateVersion("missing"))
	assert.Error(t, mm.Rollback())
}

func TestModelManagerCorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionsFile), []byte("{not json"), 0o600))

	mm := NewModelManager(dir)
	assert.Empty(t, mm.ListVersions())

	_, err := mm.AddVersion("clsfr", "clsfr.json", "json", ModelMetrics{})
	require.NoError(t, err)
	assert.Len(t, NewModelManager(dir).ListVersions(), 1)
}
