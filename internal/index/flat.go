package index

import (
	"encoding/gob"
	"fmt"
	"io"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// FlatIndex answers queries with an exact scan of the codebook it wraps.
type FlatIndex struct {
	Dim  int
	Rows int
	Sum  uint64
	data vector.Matrix
}

func newFlatIndex(config *IndexConfig, codebook vector.Matrix) (*FlatIndex, error) {
	if codebook.Empty() {
		return nil, pkgerrors.ErrEmptyCodebook
	}
	if config.Dimension != 0 && config.Dimension != codebook.Cols {
		return nil, pkgerrors.ErrInvalidDimension
	}
	return &FlatIndex{
		Dim:  codebook.Cols,
		Rows: codebook.Rows,
		Sum:  Fingerprint(codebook),
		data: codebook,
	}, nil
}

// Nearest scans every row, ties to the lowest index
func (f *FlatIndex) Nearest(query []float32) (int, error) {
	if err := checkQuery(query, f.Dim); err != nil {
		return 0, err
	}
	return scan(query, f.data), nil
}

func (f *FlatIndex) Type() IndexType     { return FLATIndex }
func (f *FlatIndex) Len() int            { return f.Rows }
func (f *FlatIndex) Dimension() int      { return f.Dim }
func (f *FlatIndex) Fingerprint() uint64 { return f.Sum }

// encode stores only the header; the rows come from the codebook on load.
func (f *FlatIndex) encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(f)
}

func decodeFlat(r io.Reader, codebook vector.Matrix) (*FlatIndex, error) {
	var f FlatIndex
	if err := gob.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode flat index: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	if f.Rows != codebook.Rows || f.Dim != codebook.Cols {
		return nil, pkgerrors.ErrIndexMismatch
	}
	f.data = codebook
	return &f, nil
}

// Close release resource
func (f *FlatIndex) Close() error {
	return nil
}
