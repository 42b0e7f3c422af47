package histogram

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	pkgerrors "bovw/pkg/errors"
)

const maxIDFLen = 1 << 24

// IDF holds one inverse-document-frequency weight per visual word. A nil
// *IDF behaves as an empty one.
type IDF struct {
	Weights []float32
}

func (f *IDF) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Weights)
}

func (f *IDF) Empty() bool { return f.Len() == 0 }

// ComputeIDF derives ln(N / df[c]) over dataset, where N counts every
// histogram, empty ones included, and df[c] those with a non-zero bin c.
// Words that occur nowhere get weight 0. An empty dataset yields an empty IDF.
func ComputeIDF(dataset []*Histogram) (*IDF, error) {
	size := 0
	for _, h := range dataset {
		if !h.Empty() {
			size = h.Len()
			break
		}
	}
	if size == 0 {
		return &IDF{}, nil
	}

	df := make([]int, size)
	for _, h := range dataset {
		if h.Empty() {
			continue
		}
		if h.Len() != size {
			return nil, fmt.Errorf("%s has %d bins, want %d: %w", h.Path, h.Len(), size, pkgerrors.ErrInvalidDimension)
		}
		for c, v := range h.Bins {
			if v > 0 {
				df[c]++
			}
		}
	}

	n := float64(len(dataset))
	idf := &IDF{Weights: make([]float32, size)}
	for c, d := range df {
		if d > 0 {
			idf.Weights[c] = float32(math.Log(n / float64(d)))
		}
	}
	return idf, nil
}

// Write stores the count as int32 followed by the float32 weights.
func (f *IDF) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int32(f.Len())); err != nil {
		return err
	}
	if f.Empty() {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, f.Weights)
}

// ReadIDF reads weights written by Write.
func ReadIDF(r io.Reader) (*IDF, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("idf header: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	if n < 0 || n > maxIDFLen {
		return nil, fmt.Errorf("idf length %d: %w", n, pkgerrors.ErrMalformedFile)
	}
	idf := &IDF{}
	if n == 0 {
		return idf, nil
	}
	idf.Weights = make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, idf.Weights); err != nil {
		return nil, fmt.Errorf("idf weights: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	return idf, nil
}

// Save writes the weights to path.
func (f *IDF) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return pkgerrors.IOError("create", path, err)
	}
	w := bufio.NewWriter(file)
	if err := f.Write(w); err != nil {
		file.Close()
		return pkgerrors.IOError("write", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return pkgerrors.IOError("write", path, err)
	}
	if err := file.Close(); err != nil {
		return pkgerrors.IOError("close", path, err)
	}
	return nil
}

// LoadIDF reads weights saved with Save.
func LoadIDF(path string) (*IDF, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.IOError("open", path, err)
	}
	defer file.Close()
	idf, err := ReadIDF(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idf, nil
}
