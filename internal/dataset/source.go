package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bci-trainer/internal/common"

	"github.com/rs/zerolog/log"
)

// Backend reads and writes a session in one storage format.
type Backend interface {
	// Name identifies the format in logs and results.
	Name() string
	// Path returns where a session called name lives under dir.
	Path(dir, name string) string
	Load(path string) (*Dataset, error)
	Save(path string, ds *Dataset) error
}

// Result is the outcome of Find: either a dataset and the backend that
// produced it, or Found == false.
type Result struct {
	Found   bool
	Backend string
	Path    string
	Dataset *Dataset
}

// DefaultBackends returns the formats in rank order.
func DefaultBackends() []Backend {
	return []Backend{BoltBackend{}, LevelBackend{}, MatBackend{}}
}

// Find tries each backend in order and returns the first one whose file
// exists and loads a valid dataset. Backends whose file is missing are
// skipped silently; ones that fail to load are logged and skipped. The
// returned error is non-nil only alongside Found == false and carries the
// load failures seen on the way.
func Find(dir, name string, backends ...Backend) (Result, error) {
	if len(backends) == 0 {
		backends = DefaultBackends()
	}

	var errs []error
	for _, b := range backends {
		path := b.Path(dir, name)
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			}
			continue
		}

		ds, err := b.Load(path)
		if err == nil {
			err = ds.Validate()
		}
		if err != nil {
			log.Warn().Err(err).Str("backend", b.Name()).Str("path", path).Msg("dataset backend failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}

		return Result{Found: true, Backend: b.Name(), Path: path, Dataset: ds}, nil
	}

	return Result{}, errors.Join(errs...)
}

// Load is Find with not-found reported as ErrDataNotFound.
func Load(dir, name string, backends ...Backend) (Result, error) {
	res, err := Find(dir, name, backends...)
	if res.Found {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("%w: %s in %s: %w", common.ErrDataNotFound, name, dir, err)
	}
	return res, fmt.Errorf("%w: %s in %s", common.ErrDataNotFound, name, dir)
}

// Save writes ds with backend b under dir, creating dir if needed.
func Save(b Backend, dir, name string, ds *Dataset) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", fmt.Errorf("refusing to save invalid dataset: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	path := b.Path(dir, name)
	if err := b.Save(path, ds); err != nil {
		return "", fmt.Errorf("save %s dataset: %w", b.Name(), err)
	}
	return path, nil
}

// ByName returns the default backend with the given name.
func ByName(name string) (Backend, error) {
	for _, b := range DefaultBackends() {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown dataset format %q", name)
}

func pathWithExt(dir, name, ext string) string {
	return filepath.Join(dir, name+ext)
}
