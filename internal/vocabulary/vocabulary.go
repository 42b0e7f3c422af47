// Package vocabulary owns the visual vocabulary: the codebook of centroids
// and the optional accelerated index built over exactly that codebook.
package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"bovw/internal/cache"
	"bovw/internal/index"
	"bovw/internal/kmeans"
	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

// DefaultIndexFilename is the index file written next to the codebook when
// no explicit index path is given.
const DefaultIndexFilename = "bow_index_params.flann"

const DEFAULT_INDEX_CACHE_SIZE = 4

// Snapshot is one consistent (codebook, index) pair. Codebook must be
// treated as read-only.
type Snapshot struct {
	Codebook    vector.Matrix
	Index       index.VectorIndex // nil when no index was built
	Fingerprint uint64
}

// Nearest assigns query to a centroid, through the index when present.
func (s *Snapshot) Nearest(query []float32) (int, error) {
	if s.Codebook.Empty() {
		return 0, pkgerrors.ErrEmptyCodebook
	}
	var searcher index.Searcher
	if s.Index != nil {
		searcher = s.Index
	}
	return index.Nearest(query, s.Codebook, searcher)
}

// Vocabulary holds the current snapshot. Replacing it is atomic, so readers
// never see a codebook paired with another codebook's index.
type Vocabulary struct {
	state   atomic.Pointer[Snapshot]
	config  index.IndexConfig
	indexes *cache.LRUCache[uint64, index.VectorIndex]
}

// Options configures the accelerated index owned by a vocabulary.
type Options struct {
	Index     index.IndexConfig
	CacheSize int // indexes kept for recently seen codebooks
}

// New returns an empty vocabulary.
func New(opts Options) (*Vocabulary, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DEFAULT_INDEX_CACHE_SIZE
	}
	if opts.Index.IndexType == "" {
		opts.Index.IndexType = index.DEFAULT_INDEX_TYPE
	}
	if opts.Index.Compression == "" {
		opts.Index.Compression = index.DEFAULT_COMPRESSION
	}
	indexes, err := cache.NewLRUCache(opts.CacheSize, func(fp uint64, idx index.VectorIndex) {
		logger.Debug("Evicted cached index", "fingerprint", fp, "type", idx.Type())
	})
	if err != nil {
		return nil, fmt.Errorf("index cache: %w", err)
	}
	v := &Vocabulary{config: opts.Index, indexes: indexes}
	v.state.Store(&Snapshot{})
	return v, nil
}

// Build clusters the concatenation of sets into the codebook. An empty
// dataset leaves the vocabulary untouched.
func (v *Vocabulary) Build(ctx context.Context, sets []vector.Matrix, opts kmeans.Options, buildIndex bool) error {
	data, err := vector.Stack(sets...)
	if err != nil {
		return err
	}
	if data.Empty() {
		logger.Warn("No descriptors to build the vocabulary from")
		return nil
	}
	logger.Info("Building vocabulary", "vectors", data.Rows, "dimension", data.Cols, "clusters", opts.Clusters, "backend", opts.Backend)
	codebook, err := kmeans.Cluster(ctx, data, opts)
	if err != nil {
		return fmt.Errorf("cluster descriptors: %w", err)
	}
	return v.install(codebook, buildIndex)
}

// SetCodebook replaces the codebook with a copy of codebook. An empty
// codebook clears the vocabulary and drops the index.
func (v *Vocabulary) SetCodebook(codebook vector.Matrix, buildIndex bool) error {
	if err := codebook.Validate(); err != nil {
		return err
	}
	if codebook.Empty() {
		v.state.Store(&Snapshot{})
		return nil
	}
	return v.install(codebook.Clone(), buildIndex)
}

// install takes ownership of codebook.
func (v *Vocabulary) install(codebook vector.Matrix, buildIndex bool) error {
	snap := &Snapshot{Codebook: codebook, Fingerprint: index.Fingerprint(codebook)}
	if buildIndex {
		idx, err := v.indexFor(snap)
		if err != nil {
			return err
		}
		snap.Index = idx
	}
	v.state.Store(snap)
	return nil
}

func (v *Vocabulary) indexFor(snap *Snapshot) (index.VectorIndex, error) {
	if idx, ok := v.indexes.Get(snap.Fingerprint); ok && idx.Type() == v.config.IndexType {
		logger.Debug("Reusing cached index", "fingerprint", snap.Fingerprint)
		return idx, nil
	}
	idx, err := index.New(&v.config, snap.Codebook)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	v.indexes.Set(snap.Fingerprint, idx)
	return idx, nil
}

// Serialize writes the codebook to path. When an index is present it is
// saved to indexPath, or to DefaultIndexFilename next to path if empty.
func (v *Vocabulary) Serialize(path, indexPath string) error {
	snap := v.Snapshot()
	if err := vector.SaveMatrix(path, snap.Codebook); err != nil {
		return err
	}
	if snap.Index == nil {
		return nil
	}
	if indexPath == "" {
		indexPath = filepath.Join(filepath.Dir(path), DefaultIndexFilename)
	}
	return index.Save(indexPath, snap.Index, v.config.Compression)
}

// Deserialize loads the codebook from path. With buildIndex the saved index
// at indexPath (or the default location) is restored; if it is missing or
// was written for another codebook the index is rebuilt instead.
func (v *Vocabulary) Deserialize(path string, buildIndex bool, indexPath string) error {
	codebook, err := vector.LoadMatrix(path)
	if err != nil {
		return err
	}
	snap := &Snapshot{Codebook: codebook, Fingerprint: index.Fingerprint(codebook)}
	if buildIndex && !codebook.Empty() {
		if indexPath == "" {
			indexPath = filepath.Join(filepath.Dir(path), DefaultIndexFilename)
		}
		idx, err := index.Load(indexPath, codebook)
		switch {
		case err == nil:
			v.indexes.Set(snap.Fingerprint, idx)
		case errors.Is(err, os.ErrNotExist):
			logger.Info("Index file not found, rebuilding", "path", indexPath)
		default:
			logger.Warn("Discarding unusable index file", "path", indexPath, "error", err)
		}
		if idx == nil {
			if idx, err = v.indexFor(snap); err != nil {
				return err
			}
		}
		snap.Index = idx
	}
	v.state.Store(snap)
	logger.Info("Loaded vocabulary", "path", path, "words", codebook.Rows, "indexed", snap.Index != nil)
	return nil
}

// Snapshot returns the current consistent state.
func (v *Vocabulary) Snapshot() *Snapshot {
	return v.state.Load()
}

// Codebook returns the current centroids. The matrix is shared and must not
// be modified.
func (v *Vocabulary) Codebook() vector.Matrix {
	return v.Snapshot().Codebook
}

// Index returns the accelerated index, or nil when none is built.
func (v *Vocabulary) Index() index.VectorIndex {
	return v.Snapshot().Index
}

// Size returns the number of visual words.
func (v *Vocabulary) Size() int {
	return v.Snapshot().Codebook.Rows
}

func (v *Vocabulary) Empty() bool {
	return v.Snapshot().Codebook.Empty()
}

// Dimension returns the descriptor dimension, 0 when empty.
func (v *Vocabulary) Dimension() int {
	return v.Snapshot().Codebook.Cols
}
