package dataset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"bci-trainer/internal/tensor"

	"github.com/golang/snappy"
)

const matMagic = "BCIMAT1\n"

// maxMatPayload bounds the encoded size of a single variable (8 GiB).
const maxMatPayload = 1 << 33

// Variable kinds in a .mat container.
const (
	matKindJSON   byte = 1
	matKindDouble byte = 2
)

// MatBackend stores a session as a single flat file: a snappy framed stream
// of named variables. "data" is a trials × channels × samples double array,
// "events" and "hdr" are JSON.
type MatBackend struct{}

func (MatBackend) Name() string { return "mat" }

func (MatBackend) Path(dir, name string) string { return pathWithExt(dir, name, ".mat") }

type matVar struct {
	name    string
	kind    byte
	dims    []int
	payload []byte
}

func (MatBackend) Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(snappy.NewReader(f))
	magic := make([]byte, len(matMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != matMagic {
		return nil, fmt.Errorf("not a mat container: bad magic %q", magic)
	}

	vars := make(map[string]matVar)
	for {
		v, err := readMatVar(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		vars[v.name] = v
	}

	ds := &Dataset{}
	hdr, ok := vars["hdr"]
	if !ok || hdr.kind != matKindJSON {
		return nil, fmt.Errorf("variable hdr missing")
	}
	if err := json.Unmarshal(hdr.payload, &ds.Header); err != nil {
		return nil, fmt.Errorf("unmarshal hdr: %w", err)
	}

	events, ok := vars["events"]
	if !ok || events.kind != matKindJSON {
		return nil, fmt.Errorf("variable events missing")
	}
	if err := json.Unmarshal(events.payload, &ds.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}

	data, ok := vars["data"]
	if !ok || data.kind != matKindDouble || len(data.dims) != 3 {
		return nil, fmt.Errorf("variable data missing or not a 3-d double array")
	}
	tr, ch, ns := data.dims[0], data.dims[1], data.dims[2]
	if want, ok := payloadSize(data.dims); !ok || want != uint64(len(data.payload)) {
		return nil, fmt.Errorf("data is %d bytes, does not match dims %v", len(data.payload), data.dims)
	}
	ds.Data = tensor.New(ch, ns, tr)
	off := 0
	for k := 0; k < tr; k++ {
		for c := 0; c < ch; c++ {
			series := ds.Data.Series(c, k)
			for t := range series {
				series[t] = math.Float64frombits(binary.LittleEndian.Uint64(data.payload[off:]))
				off += 8
			}
		}
	}
	return ds, nil
}

func (MatBackend) Save(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := snappy.NewBufferedWriter(f)
	if err := writeMat(w, ds); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush snappy stream: %w", err)
	}
	return f.Close()
}

func writeMat(w io.Writer, ds *Dataset) error {
	if _, err := io.WriteString(w, matMagic); err != nil {
		return err
	}

	hdr, err := json.Marshal(ds.Header)
	if err != nil {
		return fmt.Errorf("marshal hdr: %w", err)
	}
	if err := writeMatVar(w, matVar{name: "hdr", kind: matKindJSON, payload: hdr}); err != nil {
		return err
	}

	events, err := json.Marshal(ds.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := writeMatVar(w, matVar{name: "events", kind: matKindJSON, payload: events}); err != nil {
		return err
	}

	ch, ns, tr := ds.Data.Dims()
	payload := make([]byte, 0, 8*ch*ns*tr)
	for k := 0; k < tr; k++ {
		for c := 0; c < ch; c++ {
			for _, v := range ds.Data.Series(c, k) {
				payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(v))
			}
		}
	}
	return writeMatVar(w, matVar{name: "data", kind: matKindDouble, dims: []int{tr, ch, ns}, payload: payload})
}

func writeMatVar(w io.Writer, v matVar) error {
	head := make([]byte, 0, 16+len(v.name)+4*len(v.dims))
	head = binary.LittleEndian.AppendUint16(head, uint16(len(v.name)))
	head = append(head, v.name...)
	head = append(head, v.kind, byte(len(v.dims)))
	for _, d := range v.dims {
		head = binary.LittleEndian.AppendUint32(head, uint32(d))
	}
	head = binary.LittleEndian.AppendUint64(head, uint64(len(v.payload)))
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("write %s header: %w", v.name, err)
	}
	if _, err := w.Write(v.payload); err != nil {
		return fmt.Errorf("write %s payload: %w", v.name, err)
	}
	return nil
}

// readMatVar returns io.EOF only at a clean variable boundary.
func readMatVar(r io.Reader) (matVar, error) {
	var v matVar

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return v, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return v, fmt.Errorf("read variable name: %w", io.ErrUnexpectedEOF)
	}
	v.name = string(name)

	var kd [2]byte
	if _, err := io.ReadFull(r, kd[:]); err != nil {
		return v, fmt.Errorf("read %s kind: %w", v.name, io.ErrUnexpectedEOF)
	}
	v.kind = kd[0]
	v.dims = make([]int, kd[1])
	for i := range v.dims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return v, fmt.Errorf("read %s dims: %w", v.name, io.ErrUnexpectedEOF)
		}
		v.dims[i] = int(d)
	}

	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return v, fmt.Errorf("read %s length: %w", v.name, io.ErrUnexpectedEOF)
	}
	if n > maxMatPayload {
		return v, fmt.Errorf("variable %s claims %d bytes, limit is %d", v.name, n, maxMatPayload)
	}

	// grow with the data actually present rather than trusting n
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return v, fmt.Errorf("read %s payload: %w", v.name, io.ErrUnexpectedEOF)
	}
	v.payload = buf.Bytes()
	return v, nil
}

// payloadSize returns 8*prod(dims), reporting false once it passes
// maxMatPayload.
func payloadSize(dims []int) (uint64, bool) {
	size := uint64(8)
	for _, d := range dims {
		if d < 0 || (d > 0 && size > maxMatPayload/uint64(d)) {
			return 0, false
		}
		size *= uint64(d)
	}
	return size, true
}
