package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	ggufMagic      = 0x46554747 // "GGUF" read little-endian
	maxGGUFKeys    = 1 << 16
	maxGGUFString  = 1 << 20
	maxGGUFArray   = 100_000_000
	ggufTypeString = 8
	ggufTypeArray  = 9
)

// GGUFInfo is the header of a GGUF file: the format version, the tensor
// count and the scalar metadata. Array values are reduced to their length.
type GGUFInfo struct {
	Version     uint32
	TensorCount uint64
	Metadata    map[string]any
}

// Architecture returns general.architecture, e.g. "llama".
func (g *GGUFInfo) Architecture() string {
	s, _ := g.Metadata["general.architecture"].(string)
	return s
}

// ContextLength returns <arch>.context_length, or 0 when absent.
func (g *GGUFInfo) ContextLength() int {
	return g.intValue(g.Architecture() + ".context_length")
}

// EmbeddingLength returns <arch>.embedding_length, or 0 when absent.
func (g *GGUFInfo) EmbeddingLength() int {
	return g.intValue(g.Architecture() + ".embedding_length")
}

func (g *GGUFInfo) intValue(key string) int {
	switch v := g.Metadata[key].(type) {
	case uint32:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0
		}
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// ReadGGUFInfo reads the header and metadata of the GGUF file at path
// without touching tensor data.
func ReadGGUFInfo(path string) (*GGUFInfo, error) {
	//nolint:gosec // G304: model paths come from the caller.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ParseGGUFInfo(f)
}

// ParseGGUFInfo reads a GGUF header from r. Only little-endian files are
// accepted.
func ParseGGUFInfo(r io.Reader) (*GGUFInfo, error) {
	p := ggufReader{r: bufio.NewReader(r)}

	var head struct {
		Magic   uint32
		Version uint32
		Tensors uint64
		Keys    uint64
	}
	if err := binary.Read(p.r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotGGUF, err)
	}
	if head.Magic != ggufMagic {
		return nil, fmt.Errorf("%w: magic 0x%08X", ErrNotGGUF, head.Magic)
	}
	if head.Version < 2 || head.Version > 3 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrNotGGUF, head.Version)
	}
	if head.Keys > maxGGUFKeys {
		return nil, fmt.Errorf("%w: %d metadata keys", ErrHeaderTooLarge, head.Keys)
	}

	info := &GGUFInfo{
		Version:     head.Version,
		TensorCount: head.Tensors,
		Metadata:    make(map[string]any, head.Keys),
	}
	for i := range head.Keys {
		key, err := p.string()
		if err != nil {
			return nil, fmt.Errorf("metadata key %d: %w", i, err)
		}
		var typ uint32
		if err := p.read(&typ); err != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
		v, err := p.value(typ)
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
		info.Metadata[key] = v
	}
	return info, nil
}

func scalar[T any](p ggufReader) (any, error) {
	var v T
	err := p.read(&v)
	return v, err
}

type ggufReader struct {
	r *bufio.Reader
}

func (p ggufReader) read(v any) error {
	return binary.Read(p.r, binary.LittleEndian, v)
}

func (p ggufReader) string() (string, error) {
	var n uint64
	if err := p.read(&n); err != nil {
		return "", err
	}
	if n > maxGGUFString {
		return "", fmt.Errorf("%w: string of %d bytes", ErrHeaderTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// value reads one metadata value. Arrays are skipped and reported as their
// element count.
func (p ggufReader) value(typ uint32) (any, error) {
	switch typ {
	case 0:
		return scalar[uint8](p)
	case 1:
		return scalar[int8](p)
	case 2:
		return scalar[uint16](p)
	case 3:
		return scalar[int16](p)
	case 4:
		return scalar[uint32](p)
	case 5:
		return scalar[int32](p)
	case 6:
		return scalar[float32](p)
	case 7:
		var v uint8
		err := p.read(&v)
		return v != 0, err
	case ggufTypeString:
		return p.string()
	case ggufTypeArray:
		var elem uint32
		var n uint64
		if err := p.read(&elem); err != nil {
			return nil, err
		}
		if err := p.read(&n); err != nil {
			return nil, err
		}
		if n > maxGGUFArray {
			return nil, fmt.Errorf("%w: array of %d elements", ErrHeaderTooLarge, n)
		}
		for range n {
			if elem == ggufTypeArray {
				return nil, fmt.Errorf("nested arrays are not supported")
			}
			if _, err := p.value(elem); err != nil {
				return nil, err
			}
		}
		return int(n), nil
	case 10:
		return scalar[uint64](p)
	case 11:
		return scalar[int64](p)
	case 12:
		return scalar[float64](p)
	default:
		return nil, fmt.Errorf("unknown value type %d", typ)
	}
}
