package index

import (
	"bytes"
	"math/rand"
	"testing"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// generateCodebook returns n rows of dim random values for a fixed seed
func generateCodebook(n, dim int, seed int64) vector.Matrix {
	r := rand.New(rand.NewSource(seed))
	m := vector.New(n, dim)
	for i := range m.Data {
		m.Data[i] = r.Float32()
	}
	return m
}

func TestFlatIndex_BuildAndSearch(t *testing.T) {
	codebook := vector.Constant(4, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	cfg := &IndexConfig{IndexType: FLATIndex, Dimension: 4}
	idx, err := newFlatIndex(cfg, codebook)
	if err != nil {
		t.Fatalf("failed to create Flat index: %v", err)
	}

	got, err := idx.Nearest(codebook.Row(6))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got != 6 {
		t.Fatalf("unexpected nearest row: %d", got)
	}
	if idx.Len() != 10 || idx.Dimension() != 4 || idx.Type() != FLATIndex {
		t.Fatalf("unexpected shape: len=%d dim=%d type=%s", idx.Len(), idx.Dimension(), idx.Type())
	}
}

func TestFlatIndex_InvalidInput(t *testing.T) {
	if _, err := newFlatIndex(&IndexConfig{}, vector.Matrix{}); err != pkgerrors.ErrEmptyCodebook {
		t.Fatalf("expected ErrEmptyCodebook, got %v", err)
	}
	if _, err := newFlatIndex(&IndexConfig{Dimension: 3}, vector.Constant(4, 1)); err != pkgerrors.ErrInvalidDimension {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
	idx, _ := newFlatIndex(&IndexConfig{}, vector.Constant(4, 1, 2))
	if _, err := idx.Nearest([]float32{1}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestFlatIndex_SaveAndLoad(t *testing.T) {
	codebook := generateCodebook(15, 4, 1)
	idx, err := newFlatIndex(&IndexConfig{IndexType: FLATIndex}, codebook)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := idx.encode(&buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	loaded, err := decodeFlat(&buf, codebook)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if loaded.Fingerprint() != idx.Fingerprint() {
		t.Fatal("fingerprint changed across save/load")
	}
	for i := 0; i < codebook.Rows; i++ {
		got, err := loaded.Nearest(codebook.Row(i))
		if err != nil || got != i {
			t.Fatalf("row %d: got %d, %v", i, got, err)
		}
	}
}
