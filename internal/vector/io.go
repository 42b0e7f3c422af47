package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	pkgerrors "bovw/pkg/errors"
)

// TypeFloat32 is the element type tag written after the shape. The value
// matches OpenCV's CV_32F so files stay readable by its matrix loaders.
const TypeFloat32 int32 = 5

// maxElements caps what ReadMatrix will allocate from an untrusted header.
const maxElements = 1 << 28

// WriteMatrix writes rows, cols and the type tag as little-endian int32
// followed by the row-major values.
func WriteMatrix(w io.Writer, m Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	header := [3]int32{int32(m.Rows), int32(m.Cols), TypeFloat32}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if len(m.Data) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, m.Data)
}

// ReadMatrix reads a matrix written by WriteMatrix.
func ReadMatrix(r io.Reader) (Matrix, error) {
	var header [3]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Matrix{}, fmt.Errorf("matrix header: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	rows, cols, typ := int(header[0]), int(header[1]), header[2]
	if rows < 0 || cols < 0 || int64(rows)*int64(cols) > maxElements {
		return Matrix{}, fmt.Errorf("matrix shape %dx%d: %w", rows, cols, pkgerrors.ErrMalformedFile)
	}
	if typ != TypeFloat32 {
		return Matrix{}, fmt.Errorf("matrix element type %d: %w", typ, pkgerrors.ErrMalformedFile)
	}
	m := New(rows, cols)
	if len(m.Data) > 0 {
		if err := binary.Read(r, binary.LittleEndian, m.Data); err != nil {
			return Matrix{}, fmt.Errorf("matrix data: %w: %v", pkgerrors.ErrMalformedFile, err)
		}
	}
	return m, nil
}

// SaveMatrix writes m to path, replacing any existing file.
func SaveMatrix(path string, m Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return pkgerrors.IOError("create", path, err)
	}
	w := bufio.NewWriter(file)
	if err := WriteMatrix(w, m); err != nil {
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

// LoadMatrix reads a matrix file written by SaveMatrix.
func LoadMatrix(path string) (Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return Matrix{}, pkgerrors.IOError("open", path, err)
	}
	defer file.Close()
	m, err := ReadMatrix(bufio.NewReader(file))
	if err != nil {
		return Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
