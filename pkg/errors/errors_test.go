package errors

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	for _, err := range []error{ErrEmptyInput, ErrInvalidDimension, ErrInvalidClusterCount, ErrEmptyCodebook, ErrMalformedFile, ErrUnsupportedIndexType} {
		assert.ErrorIs(t, err, ErrInvalidInput, err.Error())
	}
	assert.False(t, errors.Is(ErrIndexMismatch, ErrInvalidInput))
}

func TestIOError(t *testing.T) {
	assert.NoError(t, IOError("open", "x", nil))

	err := IOError("open", "/missing", os.ErrNotExist)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "/missing")
}
