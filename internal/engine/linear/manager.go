package linear

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Manager owns Linear arrays. It only creates arrays from float32 byte
// buffers.
type Manager struct {
	*ndarray.Scope
	engine *Engine
}

// NewSubManager creates a child manager on device.
func (m *Manager) NewSubManager(device tensor.Device) (ndarray.Manager, error) {
	if !m.engine.SupportsDevice(device) {
		return nil, fmt.Errorf("%s engine cannot place a manager on %s", m.engine.name, device)
	}
	child := &Manager{engine: m.engine}
	child.Scope = ndarray.NewScope(child, m.engine.name, m.Scope, device)
	if err := m.Attach(child.UID(), child); err != nil {
		_ = child.Close()
		return nil, err
	}
	return child, nil
}

// AllocateDirect returns a zeroed buffer.
func (m *Manager) AllocateDirect(capacity int) []byte {
	return make([]byte, capacity)
}

// Create adopts a []byte of float32 data without copying, so buffers from
// AllocateDirect are used in place. Typed slices and other data types fail
// with ErrUnsupportedLayout.
func (m *Manager) Create(data any, shape tensor.Shape, dtype tensor.DataType) (ndarray.NDArray, error) {
	buf, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s engine takes []byte, got %T", ndarray.ErrUnsupportedLayout, m.engine.name, data)
	}
	if dtype != tensor.Float32 {
		return nil, fmt.Errorf("%w: %s engine holds float32 only, got %s", ndarray.ErrUnsupportedLayout, m.engine.name, dtype)
	}
	buf, err := ndarray.Bytes(buf, shape, dtype)
	if err != nil {
		return nil, err
	}
	return m.create(buf, shape)
}

func (m *Manager) create(buf []byte, shape tensor.Shape) (*Array, error) {
	a := &Array{data: buf}
	a.ArrayBase = ndarray.NewArrayBase(m, shape, tensor.Float32, a.free)
	if err := a.Register(a); err != nil {
		return nil, err
	}
	return a, nil
}

// From returns a unchanged when it is already a Linear array of this engine
// and converts it through bytes otherwise.
func (m *Manager) From(a ndarray.NDArray) (ndarray.NDArray, error) {
	if own, ok := a.(*Array); ok && own.Manager().EngineName() == m.engine.name {
		return own, nil
	}
	return ndarray.Convert(m, a)
}

// Load reads a CSV dataset of numbers into one [rows, cols] array named
// "data". A first row that does not parse as numbers is taken as a header.
func (m *Manager) Load(path string) (ndarray.NDList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var values []float32
	rows, cols := 0, -1
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", path, err)
		}
		row, err := parseRow(record)
		if err != nil {
			if rows == 0 && cols < 0 {
				cols = len(record)
				continue
			}
			return nil, fmt.Errorf("dataset %s line %d: %w", path, line, err)
		}
		if cols >= 0 && len(row) != cols {
			return nil, fmt.Errorf("dataset %s line %d: %d columns, want %d", path, line, len(row), cols)
		}
		cols = len(row)
		values = append(values, row...)
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("dataset %s has no rows", path)
	}

	a, err := m.create(tensor.Encode(values), tensor.Shape{rows, cols})
	if err != nil {
		return nil, err
	}
	a.SetName("data")
	return ndarray.NDList{a}, nil
}

func parseRow(record []string) ([]float32, error) {
	row := make([]float32, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return nil, err
		}
		row[i] = float32(v)
	}
	return row, nil
}
