package index

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

func TestNewSelectsType(t *testing.T) {
	codebook := generateCodebook(8, 3, 1)

	idx, err := New(nil, codebook)
	require.NoError(t, err)
	assert.Equal(t, KDTreeIndex, idx.Type())

	idx, err = New(&IndexConfig{IndexType: FLATIndex}, codebook)
	require.NoError(t, err)
	assert.Equal(t, FLATIndex, idx.Type())

	_, err = New(&IndexConfig{IndexType: "hnsw"}, codebook)
	assert.ErrorIs(t, err, pkgerrors.ErrUnsupportedIndexType)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestWriteReadAllCodecs(t *testing.T) {
	codebook := generateCodebook(100, 16, 2)
	for _, indexType := range []IndexType{KDTreeIndex, FLATIndex} {
		for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
			t.Run(string(indexType)+"/"+string(c), func(t *testing.T) {
				idx, err := New(&IndexConfig{IndexType: indexType}, codebook)
				require.NoError(t, err)

				var buf bytes.Buffer
				require.NoError(t, Write(&buf, idx, c))
				loaded, err := Read(&buf, codebook)
				require.NoError(t, err)
				assert.Equal(t, indexType, loaded.Type())
				assert.Equal(t, Fingerprint(codebook), loaded.Fingerprint())

				for i := 0; i < codebook.Rows; i += 7 {
					got, err := loaded.Nearest(codebook.Row(i))
					require.NoError(t, err)
					assert.Equal(t, i, got)
				}
			})
		}
	}
}

func TestWriteRejectsUnknownCompression(t *testing.T) {
	idx, err := New(nil, generateCodebook(4, 2, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, Write(&bytes.Buffer{}, idx, "brotli"), pkgerrors.ErrInvalidInput)
}

func TestReadRejectsDifferentCodebook(t *testing.T) {
	codebook := generateCodebook(20, 4, 1)
	idx, err := New(nil, codebook)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, idx, CompressionZstd))

	other := codebook.Clone()
	other.Data[3] += 1
	_, err = Read(bytes.NewReader(buf.Bytes()), other)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexMismatch)
}

func TestReadRejectsCorruptBlob(t *testing.T) {
	codebook := generateCodebook(20, 4, 1)
	idx, err := New(nil, codebook)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, idx, CompressionLZ4))
	blob := buf.Bytes()

	_, err = Read(bytes.NewReader(blob[:10]), codebook)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedFile)

	bad := append([]byte(nil), blob...)
	bad[0] = 'X'
	_, err = Read(bytes.NewReader(bad), codebook)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedFile)

	_, err = Read(bytes.NewReader(blob[:len(blob)-1]), codebook)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedFile)
}

func TestSaveLoadFile(t *testing.T) {
	codebook := vector.Constant(10, 0, 20, 40, 60, 80)
	idx, err := New(&IndexConfig{IndexType: KDTreeIndex}, codebook)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bow_index_params.flann")
	require.NoError(t, Save(path, idx, CompressionZstd))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	loaded, err := Load(path, codebook)
	require.NoError(t, err)
	got, err := Nearest(vector.Constant(10, 115).Row(0), codebook, loaded)
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing"), codebook)
	assert.ErrorIs(t, err, pkgerrors.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, Save(filepath.Join(t.TempDir(), "no", "dir", "idx"), idx, CompressionNone), pkgerrors.ErrIO)
}
