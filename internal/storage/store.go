package storage

import (
	"fmt"

	"bci-trainer/internal/common"
)

// ArtifactStore saves and loads artifacts by model name.
type ArtifactStore interface {
	// Save writes a and returns where it was written and how many bytes the
	// encoded artifact took.
	Save(name string, a *Artifact) (location string, size int, err error)
	Load(name string) (*Artifact, error)
	Close() error
}

// Open returns the store for format rooted at dir.
func Open(format, dir string) (ArtifactStore, error) {
	switch format {
	case common.ModelFormatJSON:
		return NewFileStore(dir), nil
	case common.ModelFormatBolt:
		return NewBoltStore(dir)
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}
}
