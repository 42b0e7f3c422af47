// Package vector holds the row-major float32 matrix shared by clustering,
// nearest-neighbour search and histogram encoding.
package vector

import (
	"fmt"

	pkgerrors "bovw/pkg/errors"
)

// Matrix is an ordered set of Rows vectors of dimensionality Cols stored
// contiguously. The zero value is an empty set.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// FromRows copies rows into a matrix. Every row must share the length of the
// first one.
func FromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	if cols == 0 {
		return Matrix{}, fmt.Errorf("row 0: %w", pkgerrors.ErrEmptyInput)
	}
	m := Matrix{Rows: len(rows), Cols: cols, Data: make([]float32, 0, len(rows)*cols)}
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("row %d has %d values, want %d: %w", i, len(r), cols, pkgerrors.ErrInvalidDimension)
		}
		m.Data = append(m.Data, r...)
	}
	return m, nil
}

// Constant builds a rows x cols matrix where row i is filled with values[i].
func Constant(cols int, values ...float32) Matrix {
	m := New(len(values), cols)
	for i, v := range values {
		row := m.Row(i)
		for j := range row {
			row[j] = v
		}
	}
	return m
}

// Stack concatenates sets in order. Empty sets are skipped; the remaining
// ones must agree on dimensionality.
func Stack(sets ...Matrix) (Matrix, error) {
	var out Matrix
	for i, s := range sets {
		if s.Empty() {
			continue
		}
		if out.Cols == 0 {
			out.Cols = s.Cols
		} else if s.Cols != out.Cols {
			return Matrix{}, fmt.Errorf("set %d has dimension %d, want %d: %w", i, s.Cols, out.Cols, pkgerrors.ErrInvalidDimension)
		}
		out.Rows += s.Rows
		out.Data = append(out.Data, s.Data[:s.Rows*s.Cols]...)
	}
	return out, nil
}

// Row returns row i without copying.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

// Empty reports whether the matrix holds no vectors.
func (m Matrix) Empty() bool {
	return m.Rows == 0 || m.Cols == 0
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	c := Matrix{Rows: m.Rows, Cols: m.Cols}
	if m.Data != nil {
		c.Data = append([]float32(nil), m.Data[:m.Rows*m.Cols]...)
	}
	return c
}

// Equal reports bit-exact equality of shape and data.
func (m Matrix) Equal(o Matrix) bool {
	if m.Rows != o.Rows || m.Cols != o.Cols {
		return false
	}
	for i := 0; i < m.Rows*m.Cols; i++ {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// Validate checks that Data backs exactly Rows x Cols values.
func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 || len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%dx%d matrix with %d values: %w", m.Rows, m.Cols, len(m.Data), pkgerrors.ErrInvalidDimension)
	}
	return nil
}
