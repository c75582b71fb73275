package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"bci-trainer/internal/tensor"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Hierarchical key layout inside the LevelDB directory.
const (
	levelHdrKey      = "/hdr"
	levelEventPrefix = "/events/"
	levelDataPrefix  = "/data/"
)

// LevelBackend stores a session in a LevelDB directory using path-like keys,
// with trial matrices as raw little-endian float64 blocks.
type LevelBackend struct{}

func (LevelBackend) Name() string { return "level" }

func (LevelBackend) Path(dir, name string) string { return pathWithExt(dir, name, ".ldb") }

func (LevelBackend) Load(path string) (*Dataset, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	defer db.Close()

	ds := &Dataset{}

	raw, err := db.Get([]byte(levelHdrKey), nil)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(raw, &ds.Header); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}

	iter := db.NewIterator(util.BytesPrefix([]byte(levelEventPrefix)), nil)
	for iter.Next() {
		var e Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			iter.Release()
			return nil, fmt.Errorf("unmarshal event %s: %w", iter.Key(), err)
		}
		ds.Events = append(ds.Events, e)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	var trials [][][]float64
	iter = db.NewIterator(util.BytesPrefix([]byte(levelDataPrefix)), nil)
	for iter.Next() {
		trial, err := decodeMatrix(iter.Value())
		if err != nil {
			iter.Release()
			return nil, fmt.Errorf("decode trial %s: %w", iter.Key(), err)
		}
		trials = append(trials, trial)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate data: %w", err)
	}

	ds.Data, err = tensor.FromTrials(trials)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (LevelBackend) Save(path string, ds *Dataset) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove old leveldb: %w", err)
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return fmt.Errorf("failed to open leveldb: %w", err)
	}
	defer db.Close()

	batch := new(leveldb.Batch)

	raw, err := json.Marshal(ds.Header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	batch.Put([]byte(levelHdrKey), raw)

	for k, e := range ds.Events {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", k, err)
		}
		batch.Put(append([]byte(levelEventPrefix), trialKey(k)...), raw)
	}

	for k := 0; k < ds.Data.Len(tensor.AxisTrial); k++ {
		batch.Put(append([]byte(levelDataPrefix), trialKey(k)...), encodeMatrix(ds.Data.Trial(k)))
	}

	return db.Write(batch, &opt.WriteOptions{Sync: true})
}

// encodeMatrix packs rows × cols as two uint32 dims followed by the values.
func encodeMatrix(m [][]float64) []byte {
	rows, cols := len(m), 0
	if rows > 0 {
		cols = len(m[0])
	}
	buf := make([]byte, 8+8*rows*cols)
	binary.LittleEndian.PutUint32(buf[0:], uint32(rows))
	binary.LittleEndian.PutUint32(buf[4:], uint32(cols))
	off := 8
	for _, row := range m {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}
	return buf
}

func decodeMatrix(buf []byte) ([][]float64, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("matrix block too short: %d bytes", len(buf))
	}
	rows := int(binary.LittleEndian.Uint32(buf[0:]))
	cols := int(binary.LittleEndian.Uint32(buf[4:]))
	if len(buf) != 8+8*rows*cols {
		return nil, fmt.Errorf("matrix block is %d bytes, want %d for %dx%d", len(buf), 8+8*rows*cols, rows, cols)
	}
	m := make([][]float64, rows)
	off := 8
	for r := range m {
		m[r] = make([]float64, cols)
		for c := range m[r] {
			m[r][c] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
			off += 8
		}
	}
	return m, nil
}
