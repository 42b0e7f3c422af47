package histogram

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	pkgerrors "bovw/pkg/errors"
)

// InvertedFile maps every visual word to the dataset positions whose
// histogram has a positive bin for it.
type InvertedFile struct {
	postings []*roaring.Bitmap
	dataset  int
}

// NewInvertedFile indexes dataset. Empty histograms are counted but never
// posted. It fails on a length mismatch or a negative bin, since candidate
// pruning relies on non-negative bins.
func NewInvertedFile(dataset []*Histogram) (*InvertedFile, error) {
	if uint64(len(dataset)) > math.MaxUint32 {
		return nil, fmt.Errorf("%d histograms: %w", len(dataset), pkgerrors.ErrInvalidInput)
	}
	f := &InvertedFile{dataset: len(dataset)}
	for i, h := range dataset {
		if h.Empty() {
			continue
		}
		if f.postings == nil {
			f.postings = make([]*roaring.Bitmap, h.Len())
			for c := range f.postings {
				f.postings[c] = roaring.New()
			}
		}
		if h.Len() != len(f.postings) {
			return nil, fmt.Errorf("%s has %d bins, want %d: %w", h.Path, h.Len(), len(f.postings), pkgerrors.ErrInvalidDimension)
		}
		for c, v := range h.Bins {
			if v < 0 {
				return nil, fmt.Errorf("%s bin %d is negative: %w", h.Path, c, pkgerrors.ErrInvalidInput)
			}
			if v > 0 {
				f.postings[c].Add(uint32(i))
			}
		}
	}
	return f, nil
}

// Words returns the vocabulary size seen by the index, 0 if every indexed
// histogram was empty.
func (f *InvertedFile) Words() int { return len(f.postings) }

// DocumentFrequency counts the histograms in which word occurs.
func (f *InvertedFile) DocumentFrequency(word int) uint64 {
	if word < 0 || word >= len(f.postings) {
		return 0
	}
	return f.postings[word].GetCardinality()
}

// Candidates returns the positions sharing at least one word with h.
func (f *InvertedFile) Candidates(h *Histogram) *roaring.Bitmap {
	out := roaring.New()
	for c, v := range h.Bins {
		if v > 0 && c < len(f.postings) {
			out.Or(f.postings[c])
		}
	}
	return out
}

// Rank returns the same result as h.Rank(dataset, topK) for a positive topK,
// comparing only candidates when possible. Histograms sharing no word with h
// are at distance exactly 1 and follow the candidates in dataset order.
// dataset must be the slice the index was built from.
func (f *InvertedFile) Rank(h *Histogram, dataset []*Histogram, topK int) ([]Similarity, error) {
	if topK <= 0 || h.Empty() || f.Words() == 0 || len(dataset) != f.dataset {
		return h.Rank(dataset, topK)
	}
	if h.Len() != f.Words() {
		return nil, fmt.Errorf("query has %d bins, index has %d: %w", h.Len(), f.Words(), pkgerrors.ErrInvalidDimension)
	}
	for _, v := range h.Bins {
		if v < 0 {
			return h.Rank(dataset, topK)
		}
	}

	candidates := f.Candidates(h)
	out := make([]Similarity, 0, candidates.GetCardinality())
	for _, i := range candidates.ToArray() {
		o := dataset[i]
		d, err := h.Compare(o)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Path, err)
		}
		if d >= 1 {
			// rounding pushed a candidate into the non-candidate tie
			return h.Rank(dataset, topK)
		}
		out = append(out, Similarity{Path: o.Path, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) >= topK {
		return out[:topK], nil
	}

	for i, o := range dataset {
		if len(out) == topK {
			break
		}
		if candidates.Contains(uint32(i)) {
			continue
		}
		out = append(out, Similarity{Path: o.Path, Distance: 1})
	}
	return out, nil
}
