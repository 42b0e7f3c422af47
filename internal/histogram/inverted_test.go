package histogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "bovw/pkg/errors"
)

func invertedDataset() []*Histogram {
	return []*Histogram{
		New("a.png", []float32{2, 1, 0, 0}),
		New("b.png", []float32{0, 0, 3, 0}),
		New("empty.png", nil),
		New("c.png", []float32{0, 1, 1, 0}),
		New("d.png", []float32{0, 0, 0, 0}),
		New("e.png", []float32{0, 0, 0, 5}),
	}
}

func TestInvertedFilePostings(t *testing.T) {
	f, err := NewInvertedFile(invertedDataset())
	require.NoError(t, err)

	assert.Equal(t, 4, f.Words())
	assert.Equal(t, uint64(1), f.DocumentFrequency(0))
	assert.Equal(t, uint64(2), f.DocumentFrequency(1))
	assert.Equal(t, uint64(2), f.DocumentFrequency(2))
	assert.Equal(t, uint64(1), f.DocumentFrequency(3))
	assert.Equal(t, uint64(0), f.DocumentFrequency(9))

	got := f.Candidates(New("q", []float32{0, 1, 0, 0})).ToArray()
	assert.Equal(t, []uint32{0, 3}, got)
}

func TestInvertedFileRankMatchesScan(t *testing.T) {
	dataset := invertedDataset()
	f, err := NewInvertedFile(dataset)
	require.NoError(t, err)

	queries := []*Histogram{
		New("q1", []float32{1, 1, 0, 0}),
		New("q2", []float32{0, 0, 1, 0}),
		New("q3", []float32{0, 0, 0, 0}),
		New("q4", []float32{0, 2, 2, 2}),
		New("q5", nil),
	}
	for _, q := range queries {
		for _, k := range []int{-2, 0, 1, 2, 3, 5, 6, 10} {
			want, err := q.Rank(dataset, k)
			require.NoError(t, err)
			got, err := f.Rank(q, dataset, k)
			require.NoError(t, err)
			assert.Equal(t, want, got, "query %s topK %d", q.Path, k)
		}
	}
}

func TestInvertedFileErrors(t *testing.T) {
	_, err := NewInvertedFile([]*Histogram{New("a", []float32{1, 2}), New("b", []float32{1})})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)

	_, err = NewInvertedFile([]*Histogram{New("a", []float32{1, -2})})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	dataset := invertedDataset()
	f, err := NewInvertedFile(dataset)
	require.NoError(t, err)
	_, err = f.Rank(New("q", []float32{1, 2}), dataset, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)
}

func TestInvertedFileAllEmpty(t *testing.T) {
	dataset := []*Histogram{New("a", nil), New("b", nil)}
	f, err := NewInvertedFile(dataset)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Words())

	got, err := f.Rank(New("q", []float32{1}), dataset, 1)
	require.NoError(t, err)
	assert.Equal(t, []Similarity{{Path: "a", Distance: 1}}, got)
}
