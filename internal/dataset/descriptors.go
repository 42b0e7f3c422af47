// Package dataset builds and loads the on-disk datasets of a retrieval run:
// per-image descriptor files and the histogram dataset with its codebook
// and IDF weights.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"bovw/internal/feature"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

const (
	DescriptorDirName = "descriptors"
	HistogramDirName  = "histograms"
	CodebookFilename  = "bow_codebook.dict"
	IDFFilename       = "histogram_dataset.idf"
	HistogramExt      = ".csv"
)

// LoadDescriptors reads every descriptor file of dir in name order. Files
// that fail to load are logged and skipped.
func LoadDescriptors(dir string) ([]*feature.Descriptor, error) {
	paths, err := listFiles(dir, feature.DescriptorExtension)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, pkgerrors.ErrNoDescriptors)
	}

	logger.Info("Loading descriptor dataset", "dir", dir, "files", len(paths))
	descs := make([]*feature.Descriptor, 0, len(paths))
	for _, p := range paths {
		d, err := feature.LoadDescriptor(p)
		if err != nil {
			logger.Error("Descriptors not loaded", "file", p, "error", err)
			continue
		}
		logger.Debug("Loaded descriptors", "file", p, "image", d.ImagePath, "rows", d.Features.Rows)
		descs = append(descs, d)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, pkgerrors.ErrNoDescriptors)
	}
	return descs, nil
}

// SaveDescriptors writes one <stem>.bin per descriptor into dir. Files
// already in dir are never removed or overwritten: descriptors loaded from
// dir are left in place and colliding names get a numeric suffix. Per-file
// failures are logged; the count of descriptors stored in dir is returned.
func SaveDescriptors(dir string, descs []*feature.Descriptor) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, pkgerrors.IOError("mkdir", dir, err)
	}
	existing, err := listFiles(dir, feature.DescriptorExtension)
	if err != nil {
		return 0, err
	}
	names := newStems()
	for _, p := range existing {
		names.reserve(feature.Stem(p))
	}

	saved, kept := 0, 0
	for _, d := range descs {
		if d.Source != "" && sameDir(filepath.Dir(d.Source), dir) {
			kept++
			continue
		}
		p := filepath.Join(dir, names.next(d.ImagePath)+feature.DescriptorExtension)
		if err := d.Save(p); err != nil {
			logger.Error("Descriptors not saved", "image", d.ImagePath, "error", err)
			continue
		}
		saved++
	}
	logger.Info("Saved descriptor dataset", "dir", dir, "files", saved, "kept", kept)
	return saved + kept, nil
}

// stems hands out file stems that are unique within one directory.
type stems struct {
	used map[string]bool
}

func newStems() *stems {
	return &stems{used: make(map[string]bool)}
}

func (s *stems) reserve(stem string) {
	s.used[stem] = true
}

// next returns the stem of imagePath, suffixed with _1, _2, ... when an
// earlier image already took it.
func (s *stems) next(imagePath string) string {
	stem := feature.Stem(imagePath)
	name := stem
	for i := 1; s.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", stem, i)
	}
	if name != stem {
		logger.Warn("File name already taken, using a suffixed one", "image", imagePath, "name", name)
	}
	s.used[name] = true
	return name
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// listFiles returns the regular files of dir with extension ext, sorted.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pkgerrors.IOError("read dir", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// resetDir replaces dir with an empty directory. Existing files are lost.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return pkgerrors.IOError("remove", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.IOError("mkdir", dir, err)
	}
	return nil
}
