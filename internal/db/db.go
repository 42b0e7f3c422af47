// Package db holds a retrieval session: the vocabulary, the histogram
// dataset built with it and the IDF weights, kept consistent with each other.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"bovw/internal/config"
	"bovw/internal/dataset"
	"bovw/internal/feature"
	"bovw/internal/histogram"
	"bovw/internal/vocabulary"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

type DB struct {
	conf *config.Config

	// build serializes rebuilds; mu guards the installed session only
	build  sync.Mutex
	mu     sync.RWMutex
	vocab  *vocabulary.Vocabulary
	corpus *dataset.Corpus
}

// Stats describes the loaded session.
type Stats struct {
	Words      int    `json:"words"`
	Dimension  int    `json:"dimension"`
	Indexed    bool   `json:"indexed"`
	IndexType  string `json:"index_type,omitempty"`
	Images     int    `json:"images"`
	Reweighted bool   `json:"reweighted"`
}

func New(conf *config.Config) (*DB, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	vocab, err := newVocabulary(conf)
	if err != nil {
		return nil, err
	}
	return &DB{
		conf:   conf,
		vocab:  vocab,
		corpus: &dataset.Corpus{IDF: &histogram.IDF{}},
	}, nil
}

func newVocabulary(conf *config.Config) (*vocabulary.Vocabulary, error) {
	return vocabulary.New(vocabulary.Options{
		Index:     conf.IndexConfig(),
		CacheSize: conf.IndexCacheSize,
	})
}

// Open loads the histogram dataset saved under the configured directory.
// A directory without a dataset leaves the session empty.
func (db *DB) Open() error {
	dir := db.conf.HistogramDir()
	vocab, err := newVocabulary(db.conf)
	if err != nil {
		return err
	}
	corpus, err := dataset.LoadCorpus(dir, vocab, db.conf.UseIndex)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNoHistograms) || errors.Is(err, os.ErrNotExist) {
			logger.Info("No histogram dataset found, starting empty", "dir", dir)
			return nil
		}
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.vocab = vocab
	db.corpus = corpus
	return nil
}

// Build replaces the session with a vocabulary and histogram dataset built
// from descs. The previous session keeps serving queries while the build
// runs and stays in place if it fails.
func (db *DB) Build(ctx context.Context, descs []*feature.Descriptor) error {
	db.build.Lock()
	defer db.build.Unlock()

	if db.conf.SaveDescriptors {
		if _, err := dataset.SaveDescriptors(db.conf.DescriptorDir(), descs); err != nil {
			return err
		}
	}

	vocab, err := newVocabulary(db.conf)
	if err != nil {
		return err
	}
	opts := dataset.BuildOptions{
		KMeans:     db.conf.KMeansOptions(),
		BuildIndex: db.conf.UseIndex,
		Reweight:   db.conf.Reweight,
		Workers:    db.conf.Workers,
	}
	if db.conf.SaveHistograms {
		opts.SaveDir = db.conf.HistogramDir()
	}
	corpus, err := dataset.BuildCorpus(ctx, descs, vocab, opts)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.vocab = vocab
	db.corpus = corpus
	return nil
}

// Encode computes the histogram of desc against the current vocabulary,
// reweighted when the session was built with IDF weights.
func (db *DB) Encode(desc *feature.Descriptor) (*histogram.Histogram, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.encode(desc)
}

func (db *DB) encode(desc *feature.Descriptor) (*histogram.Histogram, error) {
	if db.vocab.Empty() {
		return nil, pkgerrors.ErrVocabularyNotReady
	}
	return dataset.ComputeHistogram(desc, db.vocab, db.corpus.IDF, db.conf.Reweight)
}

// Query ranks the dataset against the histogram of desc. A zero topK uses
// the configured num_similar.
func (db *DB) Query(desc *feature.Descriptor, topK int) ([]histogram.Similarity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.corpus.Histograms) == 0 {
		return nil, pkgerrors.ErrNoHistograms
	}
	h, err := db.encode(desc)
	if err != nil {
		return nil, err
	}
	if topK == 0 {
		topK = db.conf.NumSimilar
	}
	ranked, err := db.corpus.Rank(h, topK)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", desc.ImagePath, err)
	}
	logger.Debug("Query ranked", "image", desc.ImagePath, "results", len(ranked))
	return ranked, nil
}

// Histograms returns the image identifiers of the dataset in order.
func (db *DB) Histograms() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, len(db.corpus.Histograms))
	for i, h := range db.corpus.Histograms {
		out[i] = h.Path
	}
	return out
}

func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	snap := db.vocab.Snapshot()
	s := Stats{
		Words:      snap.Codebook.Rows,
		Dimension:  snap.Codebook.Cols,
		Indexed:    snap.Index != nil,
		Images:     len(db.corpus.Histograms),
		Reweighted: !db.corpus.IDF.Empty(),
	}
	if snap.Index != nil {
		s.IndexType = string(snap.Index.Type())
	}
	return s
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	vocab, err := newVocabulary(db.conf)
	if err != nil {
		return err
	}
	db.vocab = vocab
	db.corpus = &dataset.Corpus{IDF: &histogram.IDF{}}
	return nil
}
