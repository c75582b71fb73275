package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"bci-trainer/internal/tensor"

	"go.etcd.io/bbolt"
)

const (
	hdrBucket    = "hdr"    // session header, single key
	eventsBucket = "events" // one JSON event per trial
	dataBucket   = "data"   // one JSON channel × sample matrix per trial
	hdrKey       = "hdr"
)

// BoltBackend stores a session as a BoltDB file with one bucket per field.
type BoltBackend struct{}

func (BoltBackend) Name() string { return "bolt" }

func (BoltBackend) Path(dir, name string) string { return pathWithExt(dir, name, ".db") }

func trialKey(k int) []byte {
	return []byte(fmt.Sprintf("%08d", k))
}

func (BoltBackend) Load(path string) (*Dataset, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ds := &Dataset{}
	var trials [][][]float64

	err = db.View(func(tx *bbolt.Tx) error {
		hb := tx.Bucket([]byte(hdrBucket))
		eb := tx.Bucket([]byte(eventsBucket))
		tb := tx.Bucket([]byte(dataBucket))
		if hb == nil || eb == nil || tb == nil {
			return fmt.Errorf("missing bucket, need %q, %q and %q", hdrBucket, eventsBucket, dataBucket)
		}

		raw := hb.Get([]byte(hdrKey))
		if raw == nil {
			return fmt.Errorf("header record missing")
		}
		if err := json.Unmarshal(raw, &ds.Header); err != nil {
			return fmt.Errorf("unmarshal header: %w", err)
		}

		// Keys are zero padded so cursor order is trial order.
		if err := eb.ForEach(func(k, v []byte) error {
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal event %s: %w", k, err)
			}
			ds.Events = append(ds.Events, e)
			return nil
		}); err != nil {
			return err
		}

		return tb.ForEach(func(k, v []byte) error {
			var trial [][]float64
			if err := json.Unmarshal(v, &trial); err != nil {
				return fmt.Errorf("unmarshal trial %s: %w", k, err)
			}
			trials = append(trials, trial)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	ds.Data, err = tensor.FromTrials(trials)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (BoltBackend) Save(path string, ds *Dataset) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old database: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		hb, err := tx.CreateBucket([]byte(hdrBucket))
		if err != nil {
			return fmt.Errorf("create hdr bucket: %w", err)
		}
		eb, err := tx.CreateBucket([]byte(eventsBucket))
		if err != nil {
			return fmt.Errorf("create events bucket: %w", err)
		}
		tb, err := tx.CreateBucket([]byte(dataBucket))
		if err != nil {
			return fmt.Errorf("create data bucket: %w", err)
		}

		raw, err := json.Marshal(ds.Header)
		if err != nil {
			return fmt.Errorf("marshal header: %w", err)
		}
		if err := hb.Put([]byte(hdrKey), raw); err != nil {
			return err
		}

		for k, e := range ds.Events {
			raw, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event %d: %w", k, err)
			}
			if err := eb.Put(trialKey(k), raw); err != nil {
				return err
			}
		}

		for k := 0; k < ds.Data.Len(tensor.AxisTrial); k++ {
			raw, err := json.Marshal(ds.Data.Trial(k))
			if err != nil {
				return fmt.Errorf("marshal trial %d: %w", k, err)
			}
			if err := tb.Put(trialKey(k), raw); err != nil {
				return err
			}
		}
		return nil
	})
}
