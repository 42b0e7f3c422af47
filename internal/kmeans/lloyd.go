package kmeans

import (
	"context"

	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/errgroup"

	"bovw/internal/index"
	"bovw/internal/vector"
	"bovw/pkg/logger"
)

func lloyd(ctx context.Context, dataset vector.Matrix, opts Options) (vector.Matrix, error) {
	k := opts.Clusters
	centroids := seed(dataset, k)
	labels := make([]int, dataset.Rows)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return vector.Matrix{}, err
		}

		var searcher index.Searcher
		if opts.UseIndex {
			tree, err := index.New(&index.IndexConfig{IndexType: index.KDTreeIndex}, centroids)
			if err != nil {
				return vector.Matrix{}, err
			}
			searcher = tree
		}
		if err := assign(ctx, dataset, centroids, searcher, labels, opts.Workers); err != nil {
			return vector.Matrix{}, err
		}

		next, shift := update(dataset, centroids, labels)
		centroids = next
		logger.Debug("K-means iteration", "iteration", iter+1, "shift", shift)
		if shift <= opts.Tolerance {
			logger.Debug("K-means converged", "iterations", iter+1, "clusters", k)
			break
		}
	}
	return centroids, nil
}

// assign labels every row with its nearest centroid. Rows are fanned out in
// contiguous ranges and each label is written by exactly one goroutine.
func assign(ctx context.Context, dataset, centroids vector.Matrix, searcher index.Searcher, labels []int, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range chunks(dataset.Rows, workers) {
		start, end := r[0], r[1]
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				c, err := index.Nearest(dataset.Row(i), centroids, searcher)
				if err != nil {
					return err
				}
				labels[i] = c
			}
			return nil
		})
	}
	return g.Wait()
}

// update moves each centroid to the mean of its members, accumulated in
// dataset order. Empty clusters keep their previous value. It returns the
// new centroids and the mean displacement over all k of them.
func update(dataset, centroids vector.Matrix, labels []int) (vector.Matrix, float64) {
	k := centroids.Rows
	sums := vector.New(k, dataset.Cols)
	counts := make([]int, k)
	for i, c := range labels {
		vek32.Add_Inplace(sums.Row(c), dataset.Row(i))
		counts[c]++
	}

	var shift float64
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			copy(sums.Row(c), centroids.Row(c))
			continue
		}
		vek32.DivNumber_Inplace(sums.Row(c), float32(counts[c]))
		shift += float64(index.EuclideanDistance(centroids.Row(c), sums.Row(c)))
	}
	return sums, shift / float64(k)
}
