package db

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bovw/internal/config"
	"bovw/internal/dataset"
	"bovw/internal/feature"
	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)
	conf.NumClusters = 5
	return conf
}

func testDescriptors() []*feature.Descriptor {
	return []*feature.Descriptor{
		{ImagePath: "images/imgA.png", Features: vector.Constant(8, 0, 0, 20)},
		{ImagePath: "images/imgB.png", Features: vector.Constant(8, 40, 60, 60)},
		{ImagePath: "images/imgC.png", Features: vector.Constant(8, 80, 0)},
		{ImagePath: "images/imgD.png", Features: vector.Constant(8, 20, 40, 80)},
	}
}

func openDB(t *testing.T, conf *config.Config) *DB {
	t.Helper()
	db, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenEmpty(t *testing.T) {
	db := openDB(t, testConfig(t))

	assert.Equal(t, Stats{}, db.Stats())
	assert.Empty(t, db.Histograms())

	q := testDescriptors()[0]
	_, err := db.Query(q, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrNoHistograms)
	_, err = db.Encode(q)
	assert.ErrorIs(t, err, pkgerrors.ErrVocabularyNotReady)
}

func TestBuildAndQuery(t *testing.T) {
	db := openDB(t, testConfig(t))
	require.NoError(t, db.Build(context.Background(), testDescriptors()))

	stats := db.Stats()
	assert.Equal(t, 5, stats.Words)
	assert.Equal(t, 8, stats.Dimension)
	assert.True(t, stats.Indexed)
	assert.Equal(t, "kdtree", stats.IndexType)
	assert.Equal(t, 4, stats.Images)
	assert.True(t, stats.Reweighted)

	for _, d := range testDescriptors() {
		ranked, err := db.Query(d, 0)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, d.ImagePath, ranked[0].Path)
		assert.InDelta(t, 0, ranked[0].Distance, 1e-6)
	}

	ranked, err := db.Query(testDescriptors()[0], 10)
	require.NoError(t, err)
	assert.Len(t, ranked, 4)

	h, err := db.Encode(testDescriptors()[1])
	require.NoError(t, err)
	assert.Equal(t, 5, h.Len())
}

func TestReopen(t *testing.T) {
	conf := testConfig(t)
	first := openDB(t, conf)
	require.NoError(t, first.Build(context.Background(), testDescriptors()))
	assert.FileExists(t, filepath.Join(conf.HistogramDir(), "imgA.csv"))

	second := openDB(t, conf)
	assert.Equal(t, first.Stats(), second.Stats())
	assert.Equal(t, first.Histograms(), second.Histograms())

	want, err := first.Query(testDescriptors()[2], 4)
	require.NoError(t, err)
	got, err := second.Query(testDescriptors()[2], 4)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Path, got[i].Path)
		assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-6)
	}
}

func TestBuildFailureKeepsSession(t *testing.T) {
	db := openDB(t, testConfig(t))
	require.NoError(t, db.Build(context.Background(), testDescriptors()))
	before := db.Stats()

	few := []*feature.Descriptor{{ImagePath: "x.png", Features: vector.Constant(8, 1, 2)}}
	err := db.Build(context.Background(), few)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidClusterCount)
	assert.Equal(t, before, db.Stats())
}

func TestBuildSavesDescriptors(t *testing.T) {
	conf := testConfig(t)
	conf.SaveDescriptors = true
	conf.SaveHistograms = false
	conf.Reweight = false
	db := openDB(t, conf)
	require.NoError(t, db.Build(context.Background(), testDescriptors()))

	assert.FileExists(t, filepath.Join(conf.DescriptorDir(), "imgC.bin"))
	assert.NoDirExists(t, conf.HistogramDir())
	assert.False(t, db.Stats().Reweighted)
}

func TestBuildFromDescriptorDirKeepsFiles(t *testing.T) {
	conf := testConfig(t)
	conf.SaveDescriptors = true
	dir := conf.DescriptorDir()
	_, err := dataset.SaveDescriptors(dir, testDescriptors())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.bin"), []byte{7}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	descs, err := dataset.LoadDescriptors(dir)
	require.NoError(t, err)
	db := openDB(t, conf)
	require.NoError(t, db.Build(context.Background(), descs))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"broken.bin", "imgA.bin", "imgB.bin", "imgC.bin", "imgD.bin", "notes.txt"}, names)
}

func TestReopenWithDuplicateStems(t *testing.T) {
	conf := testConfig(t)
	descs := append(testDescriptors(), &feature.Descriptor{ImagePath: "other/imgB.jpg", Features: vector.Constant(8, 0, 80)})
	first := openDB(t, conf)
	require.NoError(t, first.Build(context.Background(), descs))
	require.Len(t, first.Histograms(), 5)

	second := openDB(t, conf)
	assert.ElementsMatch(t, first.Histograms(), second.Histograms())
	assert.Equal(t, first.Stats(), second.Stats())
}

func TestQueryDuringBuild(t *testing.T) {
	db := openDB(t, testConfig(t))
	require.NoError(t, db.Build(context.Background(), testDescriptors()))

	// a rebuild in progress must not hold up readers
	db.build.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := db.Query(testDescriptors()[0], 1)
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("query blocked behind build")
	}
	db.build.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, db.Build(context.Background(), testDescriptors()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			ranked, err := db.Query(testDescriptors()[1], 1)
			if assert.NoError(t, err) {
				assert.Equal(t, "images/imgB.png", ranked[0].Path)
			}
		}
	}()
	wg.Wait()
}
