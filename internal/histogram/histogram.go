// Package histogram turns descriptor sets into bag-of-words histograms over
// a vocabulary, reweights them by inverse document frequency and ranks them
// by cosine distance.
package histogram

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/viterin/vek/vek32"

	"bovw/internal/index"
	"bovw/internal/vector"
	"bovw/internal/vocabulary"
	pkgerrors "bovw/pkg/errors"
)

// Histogram is the visual-word frequency fingerprint of one image. Bins is
// either empty or as long as the vocabulary it was encoded with.
type Histogram struct {
	Path string
	Bins []float32
}

// Similarity is one ranked comparison result.
type Similarity struct {
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

// New wraps bins without copying.
func New(path string, bins []float32) *Histogram {
	return &Histogram{Path: path, Bins: bins}
}

// Encode counts, for every descriptor row, its nearest visual word. No
// descriptors yield an empty histogram regardless of the vocabulary.
func Encode(path string, features vector.Matrix, vocab *vocabulary.Vocabulary) (*Histogram, error) {
	if features.Empty() {
		return &Histogram{Path: path}, nil
	}
	snap := vocab.Snapshot()
	if snap.Codebook.Empty() {
		return nil, pkgerrors.ErrEmptyCodebook
	}
	h := &Histogram{Path: path, Bins: make([]float32, snap.Codebook.Rows)}
	for r := 0; r < features.Rows; r++ {
		c, err := snap.Nearest(features.Row(r))
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", r, err)
		}
		h.Bins[c]++
	}
	return h, nil
}

func (h *Histogram) Len() int    { return len(h.Bins) }
func (h *Histogram) Empty() bool { return len(h.Bins) == 0 }

// Total is the sum of all bins.
func (h *Histogram) Total() float32 {
	if h.Empty() {
		return 0
	}
	return vek32.Sum(h.Bins)
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	c := &Histogram{Path: h.Path}
	if h.Bins != nil {
		c.Bins = append([]float32(nil), h.Bins...)
	}
	return c
}

// Reweight scales every bin by idf[c] / total words. It is a no-op when
// either the histogram or idf is empty, and is not idempotent.
func (h *Histogram) Reweight(idf *IDF) error {
	if h.Empty() || idf.Empty() {
		return nil
	}
	if idf.Len() != h.Len() {
		return fmt.Errorf("idf has %d weights for %d bins: %w", idf.Len(), h.Len(), pkgerrors.ErrInvalidDimension)
	}
	total := h.Total()
	if total == 0 {
		return nil
	}
	for c, w := range idf.Weights {
		h.Bins[c] *= w / total
	}
	return nil
}

// Compare returns the cosine distance to o. Two empty histograms are
// identical and an empty one is maximally distant from any other.
func (h *Histogram) Compare(o *Histogram) (float64, error) {
	switch {
	case h.Empty() && o.Empty():
		return 0, nil
	case h.Empty() || o.Empty():
		return 1, nil
	case h.Len() != o.Len():
		return 0, fmt.Errorf("comparing %d bins with %d: %w", h.Len(), o.Len(), pkgerrors.ErrInvalidDimension)
	}
	return index.CosineDistance(h.Bins, o.Bins), nil
}

// Rank compares h against every histogram of dataset and sorts the results
// by ascending distance, keeping dataset order for ties. A positive topK
// keeps the closest topK, a negative one the farthest |topK| farthest first.
// Zero, or |topK| >= len(dataset), returns everything ascending.
func (h *Histogram) Rank(dataset []*Histogram, topK int) ([]Similarity, error) {
	out := make([]Similarity, 0, len(dataset))
	for _, o := range dataset {
		d, err := h.Compare(o)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Path, err)
		}
		out = append(out, Similarity{Path: o.Path, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	n := len(out)
	switch {
	case topK == 0 || topK >= n || -topK >= n:
		return out, nil
	case topK > 0:
		return out[:topK], nil
	default:
		far := make([]Similarity, 0, -topK)
		for i := n - 1; i >= n+topK; i-- {
			far = append(far, out[i])
		}
		return far, nil
	}
}

// String renders the bins as "v0, v1, ...".
func (h *Histogram) String() string {
	var sb strings.Builder
	for i, v := range h.Bins {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return sb.String()
}
