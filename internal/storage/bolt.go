package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bci-trainer/internal/common"

	"go.etcd.io/bbolt"
)

const (
	// BoltFile is the database created under the store directory.
	BoltFile = "models.db"

	artifactsBucket = "artifacts"
)

// BoltStore keeps every model as a JSON value keyed by name in one BoltDB
// file.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore opens (or creates) <dir>/models.db.
func NewBoltStore(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	path := filepath.Join(dir, BoltFile)

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket)); err != nil {
			return fmt.Errorf("create artifacts bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, path: path}, nil
}

// Save stores a under name, replacing any previous model of that name.
func (s *BoltStore) Save(name string, a *Artifact) (string, int, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", 0, fmt.Errorf("marshal artifact: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).Put([]byte(name), data)
	})
	if err != nil {
		return "", 0, fmt.Errorf("store artifact %q: %w", name, err)
	}
	return s.path + "#" + name, len(data), nil
}

// Load fetches the model stored under name.
func (s *BoltStore) Load(name string) (*Artifact, error) {
	var a *Artifact
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(artifactsBucket)).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("model %q: %w", name, common.ErrArtifactNotFound)
		}
		a = new(Artifact)
		return json.Unmarshal(v, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Names lists stored models in key order.
func (s *BoltStore) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Close closes the database. Calling it twice is safe.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
