package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bovw/internal/dataset"
	"bovw/internal/index"
	"bovw/internal/kmeans"
	"bovw/internal/vocabulary"
	pkgerrors "bovw/pkg/errors"
	"bovw/pkg/logger"
)

type Config struct {
	Dir      string `yaml:"dir"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Vocabulary Config
	NumClusters   int     `yaml:"num_clusters"`
	MaxIter       int     `yaml:"max_iter"`
	Epsilon       float64 `yaml:"epsilon"`
	KMeansBackend string  `yaml:"kmeans_backend"`
	Workers       int     `yaml:"workers"`

	// Index Config
	UseIndex         bool   `yaml:"use_index"`
	IndexType        string `yaml:"index_type"`
	IndexCompression string `yaml:"index_compression"`
	IndexCacheSize   int    `yaml:"index_cache_size"`

	// Histogram Config
	Reweight        bool `yaml:"reweight"`
	SaveHistograms  bool `yaml:"save_histograms"`
	SaveDescriptors bool `yaml:"save_descriptors"`
	NumSimilar      int  `yaml:"num_similar"`

	ServerAddr string `yaml:"server_addr"`
}

// NewConfig returns the default configuration rooted at dir.
func NewConfig(dir string) (*Config, error) {
	conf := &Config{
		Dir:              dir,
		LogLevel:         logger.InfoLevel,
		NumClusters:      100,
		MaxIter:          kmeans.DEFAULT_MAX_ITER,
		Epsilon:          kmeans.DEFAULT_TOLERANCE,
		KMeansBackend:    string(kmeans.BackendBLAS),
		UseIndex:         true,
		IndexType:        string(index.DEFAULT_INDEX_TYPE),
		IndexCompression: string(index.DEFAULT_COMPRESSION),
		IndexCacheSize:   vocabulary.DEFAULT_INDEX_CACHE_SIZE,
		Reweight:         true,
		SaveHistograms:   true,
		NumSimilar:       1,
		ServerAddr:       ":8080",
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// FromFile reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.IOError("read config", path, err)
	}
	conf, err := NewConfig(".")
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is empty: %w", pkgerrors.ErrInvalidInput)
	}
	if c.NumClusters <= 0 {
		return fmt.Errorf("num_clusters=%d: %w", c.NumClusters, pkgerrors.ErrInvalidClusterCount)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon=%g: %w", c.Epsilon, pkgerrors.ErrInvalidInput)
	}
	if c.Workers < 0 || c.IndexCacheSize < 0 {
		return fmt.Errorf("workers=%d index_cache_size=%d: %w", c.Workers, c.IndexCacheSize, pkgerrors.ErrInvalidInput)
	}
	switch kmeans.Backend(c.KMeansBackend) {
	case kmeans.BackendBLAS, kmeans.BackendLloyd:
	default:
		return fmt.Errorf("kmeans_backend %q: %w", c.KMeansBackend, pkgerrors.ErrInvalidInput)
	}
	switch index.IndexType(c.IndexType) {
	case index.KDTreeIndex, index.FLATIndex:
	default:
		return fmt.Errorf("index_type %q: %w", c.IndexType, pkgerrors.ErrUnsupportedIndexType)
	}
	switch index.Compression(c.IndexCompression) {
	case index.CompressionNone, index.CompressionZstd, index.CompressionLZ4:
	default:
		return fmt.Errorf("index_compression %q: %w", c.IndexCompression, pkgerrors.ErrInvalidInput)
	}
	return nil
}

// KMeansOptions maps the vocabulary settings to clustering options.
func (c *Config) KMeansOptions() kmeans.Options {
	opts := kmeans.DefaultOptions(c.NumClusters)
	opts.MaxIterations = c.MaxIter
	opts.Tolerance = c.Epsilon
	opts.Backend = kmeans.Backend(c.KMeansBackend)
	opts.UseIndex = c.UseIndex
	opts.Workers = c.Workers
	return opts
}

// IndexConfig returns the configuration of the codebook index.
func (c *Config) IndexConfig() index.IndexConfig {
	return index.IndexConfig{
		IndexType:   index.IndexType(c.IndexType),
		Compression: index.Compression(c.IndexCompression),
	}
}

func (c *Config) DescriptorDir() string {
	return filepath.Join(c.Dir, dataset.DescriptorDirName)
}

func (c *Config) HistogramDir() string {
	return filepath.Join(c.Dir, dataset.HistogramDirName)
}
