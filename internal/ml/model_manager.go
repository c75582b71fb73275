package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// VersionsFile is the registry file kept next to the saved artifacts.
const VersionsFile = "model_versions.json"

// ModelVersion is one saved classifier artifact.
type ModelVersion struct {
	Version   string       `json:"version"`
	Name      string       `json:"name"`
	Location  string       `json:"location"`
	Format    string       `json:"format"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics describes the data a model was trained on.
type ModelMetrics struct {
	TrainingAccuracy float64 `json:"training_accuracy"`
	TrainingSamples  int     `json:"training_samples"`
	Features         int     `json:"features"`
	GoodChannels     int     `json:"good_channels"`
	RejectedTrials   int     `json:"rejected_trials"`
}

// ModelManager records every saved artifact and which one is current.
// Versions are ordered newest first.
type ModelManager struct {
	dir          string
	versionsFile string
	versions     []ModelVersion
	now          func() time.Time
}

// NewModelManager opens the registry in dir, creating nothing until the first
// version is added. A corrupt registry is logged and replaced.
func NewModelManager(dir string) *ModelManager {
	mm := &ModelManager{
		dir:          dir,
		versionsFile: filepath.Join(dir, VersionsFile),
		now:          time.Now,
	}

	if err := mm.loadVersions(); err != nil {
		log.Warn().Err(err).Str("file", mm.versionsFile).Msg("Failed to load model versions, starting fresh")
		mm.versions = nil
	}
	return mm
}

// AddVersion registers a freshly saved artifact and makes it the active one.
func (mm *ModelManager) AddVersion(name, location, format string, metrics ModelMetrics) (ModelVersion, error) {
	created := mm.now().UTC()
	v := ModelVersion{
		Version:   mm.nextVersion(created),
		Name:      name,
		Location:  location,
		Format:    format,
		CreatedAt: created,
		Metrics:   metrics,
		IsActive:  true,
	}

	for i := range mm.versions {
		mm.versions[i].IsActive = false
	}
	mm.versions = append([]ModelVersion{v}, mm.versions...)
	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})

	if err := mm.saveVersions(); err != nil {
		return ModelVersion{}, err
	}
	return v, nil
}

// nextVersion stamps versions by creation second, suffixing repeats.
func (mm *ModelManager) nextVersion(t time.Time) string {
	base := t.Format("20060102-150405")
	v := base
	for n := 1; mm.find(v) >= 0; n++ {
		v = fmt.Sprintf("%s.%d", base, n)
	}
	return v
}

func (mm *ModelManager) find(version string) int {
	for i := range mm.versions {
		if mm.versions[i].Version == version {
			return i
		}
	}
	return -1
}

// ActivateVersion marks version as the active model.
func (mm *ModelManager) ActivateVersion(version string) error {
	idx := mm.find(version)
	if idx < 0 {
		return fmt.Errorf("version %s not found", version)
	}
	for i := range mm.versions {
		mm.versions[i].IsActive = i == idx
	}
	return mm.saveVersions()
}

// Rollback activates the version saved before the active one.
func (mm *ModelManager) Rollback() error {
	if len(mm.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}
	for i, v := range mm.versions {
		if !v.IsActive {
			continue
		}
		if i+1 >= len(mm.versions) {
			return fmt.Errorf("active version %s is the oldest", v.Version)
		}
		return mm.ActivateVersion(mm.versions[i+1].Version)
	}
	return fmt.Errorf("no active version found")
}

// Current returns the active version, if any.
func (mm *ModelManager) Current() (ModelVersion, bool) {
	for _, v := range mm.versions {
		if v.IsActive {
			return v, true
		}
	}
	return ModelVersion{}, false
}

// ListVersions returns a copy of all versions, newest first.
func (mm *ModelManager) ListVersions() []ModelVersion {
	return append([]ModelVersion(nil), mm.versions...)
}

func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &mm.versions)
}

func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(mm.dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	return os.WriteFile(mm.versionsFile, data, 0o600)
}
