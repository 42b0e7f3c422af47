package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"bovw/internal/feature"
	"bovw/internal/histogram"
	"bovw/internal/kmeans"
	"bovw/internal/vector"
	"bovw/internal/vocabulary"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

// Corpus is a histogram dataset together with the IDF computed over it.
// IDF is empty when the corpus was built without reweighting. Inverted is
// nil when the histograms could not be indexed.
type Corpus struct {
	Histograms []*histogram.Histogram
	IDF        *histogram.IDF
	Inverted   *histogram.InvertedFile
}

// BuildOptions controls BuildCorpus.
type BuildOptions struct {
	KMeans     kmeans.Options
	BuildIndex bool   // build the accelerated index over the codebook
	Reweight   bool   // compute IDF and reweight every histogram
	SaveDir    string // histogram dataset directory, empty to keep it in memory
	Workers    int    // parallel encoders, 0 uses GOMAXPROCS
}

// BuildCorpus builds the vocabulary from descs, encodes every image and,
// when asked, reweights the histograms by the corpus IDF. With SaveDir set
// the directory is recreated and receives the codebook, the IDF weights and
// one CSV per image.
func BuildCorpus(ctx context.Context, descs []*feature.Descriptor, vocab *vocabulary.Vocabulary, opts BuildOptions) (*Corpus, error) {
	if len(descs) == 0 {
		return nil, pkgerrors.ErrNoDescriptors
	}
	sets := make([]vector.Matrix, len(descs))
	for i, d := range descs {
		sets[i] = d.Features
	}
	if err := vocab.Build(ctx, sets, opts.KMeans, opts.BuildIndex); err != nil {
		return nil, fmt.Errorf("build codebook: %w", err)
	}
	if vocab.Empty() {
		return nil, fmt.Errorf("build codebook: %w", pkgerrors.ErrNoDescriptors)
	}

	if opts.SaveDir != "" {
		if err := resetDir(opts.SaveDir); err != nil {
			return nil, err
		}
		if err := vocab.Serialize(filepath.Join(opts.SaveDir, CodebookFilename), ""); err != nil {
			logger.Error("Codebook not saved", "dir", opts.SaveDir, "error", err)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	hists := make([]*histogram.Histogram, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range descs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := histogram.Encode(d.ImagePath, d.Features, vocab)
			if err != nil {
				return fmt.Errorf("encode %s: %w", d.ImagePath, err)
			}
			hists[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus := &Corpus{Histograms: hists, IDF: &histogram.IDF{}}
	if opts.Reweight {
		idf, err := histogram.ComputeIDF(hists)
		if err != nil {
			return nil, fmt.Errorf("compute idf: %w", err)
		}
		corpus.IDF = idf
		if opts.SaveDir != "" {
			if err := idf.Save(filepath.Join(opts.SaveDir, IDFFilename)); err != nil {
				logger.Error("IDF not saved", "dir", opts.SaveDir, "error", err)
			}
		}
		for _, h := range hists {
			if err := h.Reweight(idf); err != nil {
				return nil, fmt.Errorf("reweight %s: %w", h.Path, err)
			}
		}
	}

	if opts.SaveDir != "" {
		names := newStems()
		for _, h := range hists {
			p := filepath.Join(opts.SaveDir, names.next(h.Path)+HistogramExt)
			if err := h.SaveCSV(p); err != nil {
				logger.Error("Histogram not saved", "image", h.Path, "error", err)
			}
		}
	}
	corpus.index()
	logger.Info("Built histogram dataset", "images", len(hists), "words", vocab.Size(), "reweighted", opts.Reweight, "dir", opts.SaveDir)
	return corpus, nil
}

// LoadCorpus restores a histogram dataset saved by BuildCorpus. The codebook
// must load; unreadable histograms are skipped and a missing IDF file only
// leaves the IDF empty.
func LoadCorpus(dir string, vocab *vocabulary.Vocabulary, buildIndex bool) (*Corpus, error) {
	paths, err := listFiles(dir, HistogramExt)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, pkgerrors.ErrNoHistograms)
	}
	if err := vocab.Deserialize(filepath.Join(dir, CodebookFilename), buildIndex, ""); err != nil {
		return nil, fmt.Errorf("codebook not loaded: %w", err)
	}

	corpus := &Corpus{Histograms: make([]*histogram.Histogram, 0, len(paths))}
	for _, p := range paths {
		h, err := histogram.LoadCSV(p)
		if err != nil {
			logger.Error("Histogram not loaded", "file", p, "error", err)
			continue
		}
		corpus.Histograms = append(corpus.Histograms, h)
	}

	idfPath := filepath.Join(dir, IDFFilename)
	corpus.IDF, err = histogram.LoadIDF(idfPath)
	if err != nil {
		logger.Warn("IDF not loaded, histograms will not be reweighted", "path", idfPath, "error", err)
		corpus.IDF = &histogram.IDF{}
	}
	corpus.index()
	logger.Info("Loaded histogram dataset", "dir", dir, "images", len(corpus.Histograms), "words", vocab.Size())
	return corpus, nil
}

// ComputeHistogram encodes a query image and reweights it by idf when
// reweight is set. Reweighting without IDF weights is skipped with a warning.
func ComputeHistogram(desc *feature.Descriptor, vocab *vocabulary.Vocabulary, idf *histogram.IDF, reweight bool) (*histogram.Histogram, error) {
	h, err := histogram.Encode(desc.ImagePath, desc.Features, vocab)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", desc.ImagePath, err)
	}
	if !reweight {
		return h, nil
	}
	if idf.Empty() {
		logger.Warn("IDF weights not available, histogram left unweighted", "image", desc.ImagePath)
		return h, nil
	}
	if err := h.Reweight(idf); err != nil {
		return nil, fmt.Errorf("reweight %s: %w", desc.ImagePath, err)
	}
	return h, nil
}

// index builds the inverted file over the histograms.
func (c *Corpus) index() {
	inv, err := histogram.NewInvertedFile(c.Histograms)
	if err != nil {
		logger.Warn("Inverted file not built, queries scan the whole dataset", "error", err)
		c.Inverted = nil
		return
	}
	c.Inverted = inv
}

// Rank returns the topK entries of corpus closest to h.
func (c *Corpus) Rank(h *histogram.Histogram, topK int) ([]histogram.Similarity, error) {
	if c.Inverted != nil {
		return c.Inverted.Rank(h, c.Histograms, topK)
	}
	return h.Rank(c.Histograms, topK)
}
