package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ggufBuilder struct {
	bytes.Buffer
	keys int
}

func (b *ggufBuilder) put(v any) {
	_ = binary.Write(&b.Buffer, binary.LittleEndian, v)
}

func (b *ggufBuilder) str(s string) {
	b.put(uint64(len(s)))
	b.WriteString(s)
}

func (b *ggufBuilder) kvString(key, val string) {
	b.keys++
	b.str(key)
	b.put(uint32(ggufTypeString))
	b.str(val)
}

func (b *ggufBuilder) kvUint32(key string, val uint32) {
	b.keys++
	b.str(key)
	b.put(uint32(4))
	b.put(val)
}

func (b *ggufBuilder) kvStrings(key string, vals ...string) {
	b.keys++
	b.str(key)
	b.put(uint32(ggufTypeArray))
	b.put(uint32(ggufTypeString))
	b.put(uint64(len(vals)))
	for _, v := range vals {
		b.str(v)
	}
}

// file prefixes the header for the keys written so far.
func (b *ggufBuilder) file(version uint32) []byte {
	var head bytes.Buffer
	_ = binary.Write(&head, binary.LittleEndian, uint32(ggufMagic))
	_ = binary.Write(&head, binary.LittleEndian, version)
	_ = binary.Write(&head, binary.LittleEndian, uint64(3))
	_ = binary.Write(&head, binary.LittleEndian, uint64(b.keys))
	return append(head.Bytes(), b.Bytes()...)
}

func llamaHeader() *ggufBuilder {
	b := &ggufBuilder{}
	b.kvString("general.architecture", "llama")
	b.kvUint32("llama.context_length", 4096)
	b.kvStrings("tokenizer.ggml.tokens", "<s>", "</s>", "hi")
	b.kvUint32("llama.embedding_length", 8)
	return b
}

func TestReadGGUFInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.gguf")
	require.NoError(t, os.WriteFile(path, llamaHeader().file(3), 0o600))

	info, err := ReadGGUFInfo(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), info.Version)
	assert.Equal(t, uint64(3), info.TensorCount)
	assert.Equal(t, "llama", info.Architecture())
	assert.Equal(t, 4096, info.ContextLength())
	assert.Equal(t, 8, info.EmbeddingLength())
	assert.Equal(t, 3, info.Metadata["tokenizer.ggml.tokens"])
}

func TestParseGGUFInfoRejects(t *testing.T) {
	good := llamaHeader().file(3)

	badMagic := bytes.Clone(good)
	copy(badMagic, "GGML")

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrNotGGUF},
		{"magic", badMagic, ErrNotGGUF},
		{"version 1", llamaHeader().file(1), ErrNotGGUF},
		{"truncated metadata", good[:len(good)-3], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGGUFInfo(bytes.NewReader(tt.data))
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestGGUFInfoMissingKeys(t *testing.T) {
	info := &GGUFInfo{Metadata: map[string]any{}}
	assert.Empty(t, info.Architecture())
	assert.Zero(t, info.ContextLength())
}
