package errors

import (
	"errors"
	"fmt"
)

var (
	// Error kinds
	ErrInvalidInput = errors.New("invalid input")
	ErrIO           = errors.New("i/o error")

	// Vector errors
	ErrEmptyInput       = fmt.Errorf("%w: empty input", ErrInvalidInput)
	ErrInvalidDimension = fmt.Errorf("%w: invalid vector dimension", ErrInvalidInput)

	// Clustering errors
	ErrInvalidClusterCount = fmt.Errorf("%w: invalid number of clusters", ErrInvalidInput)

	// Vocabulary errors
	ErrEmptyCodebook        = fmt.Errorf("%w: empty codebook", ErrInvalidInput)
	ErrVocabularyNotReady   = errors.New("vocabulary not built")
	ErrUnsupportedIndexType = fmt.Errorf("%w: unsupported index type", ErrInvalidInput)
	ErrIndexMismatch        = errors.New("index was built for a different codebook")

	// File errors
	ErrMalformedFile = fmt.Errorf("%w: malformed file", ErrInvalidInput)

	// Dataset errors
	ErrNoDescriptors = errors.New("no valid descriptors found")
	ErrNoHistograms  = errors.New("no valid histogram files found")
)

// IOError wraps err with ErrIO so callers can test the kind with errors.Is
// while keeping the original cause reachable.
func IOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
