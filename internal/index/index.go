package index

import (
	"io"

	"bovw/internal/vector"
)

type IndexType string

// IndexConfig represents index configuration
type IndexConfig struct {
	IndexType   IndexType   // index type (e.g., "kdtree", "flat")
	Dimension   int         // vector dimension, 0 takes it from the codebook
	Compression Compression // codec used when the index is saved
}

// Searcher answers single nearest-neighbour queries over a fixed codebook.
type Searcher interface {
	// Nearest returns the row of the indexed codebook closest to query
	Nearest(query []float32) (int, error)
}

// VectorIndex is an accelerated search structure built over exactly one
// codebook snapshot.
type VectorIndex interface {
	Searcher

	// Type reports which structure backs the index
	Type() IndexType

	// Len returns the number of indexed rows
	Len() int

	// Dimension returns the vector dimension
	Dimension() int

	// Fingerprint identifies the codebook the index was built over
	Fingerprint() uint64

	// encode writes the uncompressed payload
	encode(w io.Writer) error

	// Close releases resources
	Close() error
}

// checkQuery validates a query against an index shape.
func checkQuery(query []float32, dim int) error {
	return checkShape(query, vector.Matrix{Rows: 1, Cols: dim})
}
