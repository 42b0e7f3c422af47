// Package feature is the boundary to local-feature extraction. Descriptor
// computation itself happens outside this module; extractors hand back the
// per-image feature sets it produced.
package feature

import (
	"fmt"

	"bovw/internal/vector"
	"bovw/pkg/logger"
)

// Extractor produces the descriptor set of an image
type Extractor interface {
	Extract(imagePath string) (vector.Matrix, error)
	ExtractBatch(imagePaths []string) ([]vector.Matrix, error)
}

// FileExtractor resolves images to descriptor files precomputed into Dir,
// one <stem>.bin per image.
type FileExtractor struct {
	Dir string
}

func NewFileExtractor(dir string) *FileExtractor {
	return &FileExtractor{Dir: dir}
}

func (e *FileExtractor) Extract(imagePath string) (vector.Matrix, error) {
	path := DescriptorPath(e.Dir, imagePath)
	d, err := LoadDescriptor(path)
	if err != nil {
		return vector.Matrix{}, err
	}
	if d.ImagePath != "" && Stem(d.ImagePath) != Stem(imagePath) {
		logger.Warn("Descriptor file was written for another image", "file", path, "image", d.ImagePath)
	}
	return d.Features, nil
}

func (e *FileExtractor) ExtractBatch(imagePaths []string) ([]vector.Matrix, error) {
	out := make([]vector.Matrix, 0, len(imagePaths))
	for _, p := range imagePaths {
		m, err := e.Extract(p)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", p, err)
		}
		out = append(out, m)
	}
	return out, nil
}
