package index

import (
	"fmt"
	"math"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// Nearest returns the index of the candidate row closest to query.
//
// With a single candidate the answer is 0 and no distance is computed. When
// searcher is non-nil its answer is returned as is, otherwise the candidates
// are scanned exactly and ties go to the lowest row.
func Nearest(query []float32, candidates vector.Matrix, searcher Searcher) (int, error) {
	if err := checkShape(query, candidates); err != nil {
		return 0, err
	}
	if candidates.Rows == 1 {
		return 0, nil
	}
	if searcher != nil {
		return searcher.Nearest(query)
	}
	return scan(query, candidates), nil
}

func checkShape(query []float32, candidates vector.Matrix) error {
	if len(query) == 0 {
		return fmt.Errorf("query: %w", pkgerrors.ErrEmptyInput)
	}
	if candidates.Empty() {
		return fmt.Errorf("candidates: %w", pkgerrors.ErrEmptyInput)
	}
	if len(query) != candidates.Cols {
		return fmt.Errorf("query has %d values, candidates have %d: %w", len(query), candidates.Cols, pkgerrors.ErrInvalidDimension)
	}
	return nil
}

// scan is the exact linear search. Inputs are assumed valid.
func scan(query []float32, candidates vector.Matrix) int {
	best := 0
	minDist := float32(math.MaxFloat32)
	for i := 0; i < candidates.Rows; i++ {
		if d := EuclideanDistance(candidates.Row(i), query); d < minDist {
			minDist = d
			best = i
		}
	}
	return best
}
