package feature

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// DescriptorExtension is the suffix of persisted descriptor files.
const DescriptorExtension = ".bin"

const maxPathLen = 1 << 16

// Descriptor is the feature set extracted from one image.
type Descriptor struct {
	ImagePath string
	Features  vector.Matrix

	// Source is the file the descriptor was loaded from, empty when it was
	// never persisted. It is not written.
	Source string
}

// Write stores the features in matrix layout followed by the image path as
// an int32 length and raw bytes.
func (d *Descriptor) Write(w io.Writer) error {
	if err := vector.WriteMatrix(w, d.Features); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(d.ImagePath))); err != nil {
		return err
	}
	_, err := io.WriteString(w, d.ImagePath)
	return err
}

// ReadDescriptor reads a descriptor written by Write.
func ReadDescriptor(r io.Reader) (*Descriptor, error) {
	features, err := vector.ReadMatrix(r)
	if err != nil {
		return nil, err
	}
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("descriptor path length: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	if n < 0 || n > maxPathLen {
		return nil, fmt.Errorf("descriptor path length %d: %w", n, pkgerrors.ErrMalformedFile)
	}
	path := make([]byte, n)
	if _, err := io.ReadFull(r, path); err != nil {
		return nil, fmt.Errorf("descriptor path: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	return &Descriptor{ImagePath: string(path), Features: features}, nil
}

// Save writes d to path.
func (d *Descriptor) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return pkgerrors.IOError("create", path, err)
	}
	w := bufio.NewWriter(file)
	if err := d.Write(w); err != nil {
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

// LoadDescriptor reads a descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.IOError("open", path, err)
	}
	defer file.Close()
	d, err := ReadDescriptor(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Source = path
	return d, nil
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DescriptorPath names the descriptor file for imagePath inside dir.
func DescriptorPath(dir, imagePath string) string {
	return filepath.Join(dir, Stem(imagePath)+DescriptorExtension)
}
