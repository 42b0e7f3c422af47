package kmeans

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bovw/internal/vector"
	"bovw/pkg/logger"
)

// blasChunk bounds the rows multiplied against the centroids at once.
const blasChunk = 512

// blas runs the same seeding and stopping rule as lloyd, but scores
// assignments as |c|^2 - 2x.c with dense matrix products in float64.
func blas(ctx context.Context, dataset vector.Matrix, opts Options) (vector.Matrix, error) {
	n, d, k := dataset.Rows, dataset.Cols, opts.Clusters

	x := make([]float64, n*d)
	for i, v := range dataset.Data[:n*d] {
		x[i] = float64(v)
	}
	c := mat.NewDense(k, d, nil)
	for i, row := range seedRows(dataset, k) {
		for j, v := range dataset.Row(row) {
			c.Set(i, j, float64(v))
		}
	}
	labels := make([]int, n)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return vector.Matrix{}, err
		}

		norms := make([]float64, k)
		for j := range norms {
			r := c.RawRowView(j)
			norms[j] = floats.Dot(r, r)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for start := 0; start < n; start += blasChunk {
			end := min(start+blasChunk, n)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				block := mat.NewDense(end-start, d, x[start*d:end*d])
				var prod mat.Dense
				prod.Mul(block, c.T())
				for i := 0; i < end-start; i++ {
					best, bestScore := 0, norms[0]-2*prod.At(i, 0)
					for j := 1; j < k; j++ {
						if s := norms[j] - 2*prod.At(i, j); s < bestScore {
							best, bestScore = j, s
						}
					}
					labels[start+i] = best
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return vector.Matrix{}, err
		}

		sums := mat.NewDense(k, d, nil)
		counts := make([]int, k)
		for i, l := range labels {
			floats.Add(sums.RawRowView(l), x[i*d:(i+1)*d])
			counts[l]++
		}
		var shift float64
		for j := 0; j < k; j++ {
			next, prev := sums.RawRowView(j), c.RawRowView(j)
			if counts[j] == 0 {
				copy(next, prev)
				continue
			}
			floats.Scale(1/float64(counts[j]), next)
			shift += floats.Distance(prev, next, 2)
		}
		shift /= float64(k)
		c = sums

		logger.Debug("K-means iteration", "backend", BackendBLAS, "iteration", iter+1, "shift", shift)
		if shift <= opts.Tolerance {
			logger.Debug("K-means converged", "backend", BackendBLAS, "iterations", iter+1, "clusters", k)
			break
		}
	}

	centroids := vector.New(k, d)
	for j := 0; j < k; j++ {
		row := centroids.Row(j)
		for i, v := range c.RawRowView(j) {
			row[i] = float32(v)
		}
	}
	return centroids, nil
}
