// Package kmeans partitions a vector set into k centroids with Lloyd's
// algorithm. Two interchangeable backends share one contract: the native
// float32 loop and a BLAS backend built on gonum.
package kmeans

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

type Backend string

const (
	BackendLloyd Backend = "lloyd"
	BackendBLAS  Backend = "blas"
)

const (
	DEFAULT_MAX_ITER  = 25
	DEFAULT_TOLERANCE = 0.001

	// seeding is reproducible across runs
	seedValue = 42
)

// Options controls one clustering run.
type Options struct {
	Clusters      int     // number of centroids k
	MaxIterations int     // hard iteration cap, <= 0 returns the seeds
	Tolerance     float64 // stop once mean centroid displacement is at most this
	Backend       Backend // defaults to BackendLloyd
	UseIndex      bool    // assign through a kd-tree rebuilt every iteration (Lloyd only)
	Workers       int     // assignment parallelism, 0 uses GOMAXPROCS
}

// DefaultOptions returns options for k clusters with the stock limits.
func DefaultOptions(k int) Options {
	return Options{
		Clusters:      k,
		MaxIterations: DEFAULT_MAX_ITER,
		Tolerance:     DEFAULT_TOLERANCE,
		Backend:       BackendLloyd,
	}
}

// Cluster returns k centroids of dataset. When k equals the number of rows
// the dataset itself is returned (as a copy) in its original order.
func Cluster(ctx context.Context, dataset vector.Matrix, opts Options) (vector.Matrix, error) {
	if err := dataset.Validate(); err != nil {
		return vector.Matrix{}, err
	}
	if dataset.Empty() {
		return vector.Matrix{}, fmt.Errorf("dataset: %w", pkgerrors.ErrEmptyInput)
	}
	k := opts.Clusters
	if k <= 0 || k > dataset.Rows {
		return vector.Matrix{}, fmt.Errorf("%w: k=%d for %d vectors", pkgerrors.ErrInvalidClusterCount, k, dataset.Rows)
	}
	if k == dataset.Rows {
		return dataset.Clone(), nil
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	switch opts.Backend {
	case BackendLloyd, "":
		return lloyd(ctx, dataset, opts)
	case BackendBLAS:
		return blas(ctx, dataset, opts)
	default:
		return vector.Matrix{}, fmt.Errorf("backend %q: %w", opts.Backend, pkgerrors.ErrInvalidInput)
	}
}

// seedRows picks k row numbers by walking a fixed-seed permutation. Rows equal
// to an already chosen one are passed over while distinct rows remain, and
// used to fill up otherwise.
func seedRows(dataset vector.Matrix, k int) []int {
	perm := rand.New(rand.NewSource(seedValue)).Perm(dataset.Rows)
	chosen := make([]int, 0, k)
	var skipped []int
	for _, row := range perm {
		if len(chosen) == k {
			break
		}
		if duplicates(dataset, row, chosen) {
			skipped = append(skipped, row)
			continue
		}
		chosen = append(chosen, row)
	}
	for _, row := range skipped {
		if len(chosen) == k {
			break
		}
		chosen = append(chosen, row)
	}
	return chosen
}

func duplicates(dataset vector.Matrix, row int, chosen []int) bool {
	v := dataset.Row(row)
	for _, c := range chosen {
		if equalRows(v, dataset.Row(c)) {
			return true
		}
	}
	return false
}

func equalRows(a, b []float32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// seed copies the seeding rows into a fresh k x D matrix.
func seed(dataset vector.Matrix, k int) vector.Matrix {
	centroids := vector.New(k, dataset.Cols)
	for i, row := range seedRows(dataset, k) {
		copy(centroids.Row(i), dataset.Row(row))
	}
	return centroids
}

// chunks splits n rows into at most workers contiguous ranges.
func chunks(n, workers int) [][2]int {
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
