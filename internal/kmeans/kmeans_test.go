package kmeans

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// dummyData is five groups of five constant 10-dim rows
func dummyData(t *testing.T) vector.Matrix {
	t.Helper()
	var sets []vector.Matrix
	for _, v := range []float32{0, 20, 40, 60, 80} {
		sets = append(sets, vector.Constant(10, v, v, v, v, v))
	}
	m, err := vector.Stack(sets...)
	require.NoError(t, err)
	return m
}

func randomData(n, dim int, seed int64) vector.Matrix {
	r := rand.New(rand.NewSource(seed))
	m := vector.New(n, dim)
	for i := range m.Data {
		m.Data[i] = r.Float32() * 100
	}
	return m
}

type variant struct {
	name string
	opts func(k int) Options
}

func variants() []variant {
	return []variant{
		{"lloyd", func(k int) Options { return DefaultOptions(k) }},
		{"lloyd-kdtree", func(k int) Options {
			o := DefaultOptions(k)
			o.UseIndex = true
			return o
		}},
		{"lloyd-single-worker", func(k int) Options {
			o := DefaultOptions(k)
			o.Workers = 1
			return o
		}},
		{"blas", func(k int) Options {
			o := DefaultOptions(k)
			o.Backend = BackendBLAS
			return o
		}},
	}
}

func TestClusterShape(t *testing.T) {
	data := randomData(300, 16, 1)
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			centroids, err := Cluster(context.Background(), data, v.opts(12))
			require.NoError(t, err)
			assert.Equal(t, 12, centroids.Rows)
			assert.Equal(t, 16, centroids.Cols)
			assert.Len(t, centroids.Data, 12*16)
		})
	}
}

func TestClusterRecoversGroups(t *testing.T) {
	data := dummyData(t)
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			centroids, err := Cluster(context.Background(), data, v.opts(5))
			require.NoError(t, err)
			require.Equal(t, 5, centroids.Rows)

			var firsts []float64
			for i := 0; i < centroids.Rows; i++ {
				row := centroids.Row(i)
				for _, x := range row {
					assert.InDelta(t, row[0], x, 1e-4, "centroid %d is not constant", i)
				}
				firsts = append(firsts, float64(row[0]))
			}
			sort.Float64s(firsts)
			assert.InDeltaSlice(t, []float64{0, 20, 40, 60, 80}, firsts, 1e-4)
		})
	}
}

func TestClusterIdentityWhenKEqualsRows(t *testing.T) {
	data := randomData(7, 3, 2)
	centroids, err := Cluster(context.Background(), data, DefaultOptions(7))
	require.NoError(t, err)
	assert.True(t, data.Equal(centroids))

	centroids.Data[0] = -1
	assert.NotEqual(t, float32(-1), data.Data[0], "result must not alias the dataset")
}

func TestClusterInvalidInput(t *testing.T) {
	ctx := context.Background()
	data := randomData(10, 2, 3)

	_, err := Cluster(ctx, vector.Matrix{}, DefaultOptions(1))
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	for _, k := range []int{0, -1, 11} {
		_, err := Cluster(ctx, data, DefaultOptions(k))
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidClusterCount, "k=%d", k)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput, "k=%d", k)
	}

	opts := DefaultOptions(2)
	opts.Backend = "gpu"
	_, err = Cluster(ctx, data, opts)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestClusterDeterministic(t *testing.T) {
	data := randomData(200, 8, 4)
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			a, err := Cluster(context.Background(), data, v.opts(10))
			require.NoError(t, err)
			b, err := Cluster(context.Background(), data, v.opts(10))
			require.NoError(t, err)
			assert.True(t, a.Equal(b))
		})
	}
}

func TestClusterZeroIterationsReturnsSeeds(t *testing.T) {
	data := randomData(50, 4, 5)
	opts := DefaultOptions(5)
	opts.MaxIterations = 0
	centroids, err := Cluster(context.Background(), data, opts)
	require.NoError(t, err)

	for i, row := range seedRows(data, 5) {
		assert.Equal(t, data.Row(row), centroids.Row(i))
	}
}

func TestClusterHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Cluster(ctx, randomData(20, 2, 6), DefaultOptions(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeedRowsSkipsDuplicates(t *testing.T) {
	rows := seedRows(dummyData(t), 5)
	require.Len(t, rows, 5)
	seen := map[int]bool{}
	for _, r := range rows {
		seen[r/5] = true
	}
	assert.Len(t, seen, 5, "every group should be seeded once")

	// fewer distinct rows than k falls back to duplicates
	rows = seedRows(vector.Constant(2, 1, 1, 1, 2), 3)
	assert.Len(t, rows, 3)
}

func TestCentroidsAreMembersMeans(t *testing.T) {
	data := vector.Constant(1, 0, 1, 2, 10, 11, 12)
	centroids, err := Cluster(context.Background(), data, DefaultOptions(2))
	require.NoError(t, err)

	got := []float64{float64(centroids.Data[0]), float64(centroids.Data[1])}
	sort.Float64s(got)
	assert.InDeltaSlice(t, []float64{1, 11}, got, 1e-5)
}

func TestUpdateKeepsEmptyCluster(t *testing.T) {
	data := vector.Constant(2, 1, 3)
	centroids := vector.Constant(2, 0, 100)
	next, shift := update(data, centroids, []int{0, 0})
	assert.Equal(t, []float32{2, 2}, next.Row(0))
	assert.Equal(t, []float32{100, 100}, next.Row(1))
	assert.InDelta(t, 1.41421356, shift, 1e-5) // (2*sqrt(2) + 0) / 2
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, chunks(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, chunks(2, 8))
}
