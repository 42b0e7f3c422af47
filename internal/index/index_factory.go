package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

// New builds an index of the configured type over codebook. The codebook is
// referenced, not copied, so callers must not mutate it afterwards.
func New(config *IndexConfig, codebook vector.Matrix) (VectorIndex, error) {
	if config == nil {
		config = &IndexConfig{}
	}
	switch config.IndexType {
	case KDTreeIndex, "":
		return newKDTree(config, codebook)
	case FLATIndex:
		return newFlatIndex(config, codebook)
	default:
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedIndexType, config.IndexType)
	}
}

// Write serializes idx into a compressed blob.
func Write(w io.Writer, idx VectorIndex, compression Compression) error {
	var kind byte
	switch idx.Type() {
	case FLATIndex:
		kind = typeFlat
	case KDTreeIndex:
		kind = typeKDTree
	default:
		return fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedIndexType, idx.Type())
	}
	var raw bytes.Buffer
	if err := idx.encode(&raw); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return writeBlob(w, kind, raw.Bytes(), compression)
}

// Read restores an index previously written for codebook. A blob stamped
// with another codebook's fingerprint is rejected with ErrIndexMismatch.
func Read(r io.Reader, codebook vector.Matrix) (VectorIndex, error) {
	kind, payload, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	var idx VectorIndex
	switch kind {
	case typeFlat:
		idx, err = decodeFlat(payload, codebook)
	case typeKDTree:
		idx, err = decodeKDTree(payload, codebook)
	default:
		return nil, fmt.Errorf("index type %d: %w", kind, pkgerrors.ErrMalformedFile)
	}
	if err != nil {
		return nil, err
	}
	if idx.Fingerprint() != Fingerprint(codebook) {
		return nil, pkgerrors.ErrIndexMismatch
	}
	return idx, nil
}

// Save writes idx to filePath.
func Save(filePath string, idx VectorIndex, compression Compression) error {
	file, err := os.Create(filePath)
	if err != nil {
		return pkgerrors.IOError("create", filePath, err)
	}
	w := bufio.NewWriter(file)
	if err := Write(w, idx, compression); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return pkgerrors.IOError("write", filePath, err)
	}
	if err := file.Close(); err != nil {
		return pkgerrors.IOError("close", filePath, err)
	}
	logger.Debug("Saved vector index", "path", filePath, "type", idx.Type(), "rows", idx.Len())
	return nil
}

// Load reads an index for codebook from filePath.
func Load(filePath string, codebook vector.Matrix) (VectorIndex, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, pkgerrors.IOError("open", filePath, err)
	}
	defer file.Close()
	idx, err := Read(bufio.NewReader(file), codebook)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", filePath, err)
	}
	logger.Debug("Loaded vector index", "path", filePath, "type", idx.Type(), "rows", idx.Len())
	return idx, nil
}
