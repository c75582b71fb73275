package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bci-trainer/internal/common"
)

// FileStore keeps one JSON document per model at <dir>/<name>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file used for name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes the artifact to a temp file in the same directory and renames
// it over the target, so readers never see a partial document.
func (s *FileStore) Save(name string, a *Artifact) (string, int, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("marshal artifact: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close artifact: %w", err)
	}

	path := s.Path(name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("rename artifact: %w", err)
	}
	return path, len(data), nil
}

// Load reads the artifact for name.
func (s *FileStore) Load(name string) (*Artifact, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model %q: %w", name, common.ErrArtifactNotFound)
		}
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path(name), err)
	}
	return &a, nil
}

func (s *FileStore) Close() error { return nil }
