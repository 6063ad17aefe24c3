package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() ([]Document, [][]float32) {
	docs := []Document{
		{ID: "revenue_by_month-0", Text: "Date: Jul 1, 2015 - Total revenue is 521.00.", Metadata: map[string]string{"category": "revenue_by_month"}},
		{ID: "top_countries-0", Text: "Country PRT had 2 bookings.", Metadata: map[string]string{"category": "top_countries"}},
		{ID: "bookings_by_month-0", Text: "In January, total bookings was 0.", Metadata: map[string]string{"category": "bookings_by_month"}},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.7, 0.7, 0},
	}
	return docs, vectors
}

func TestFlatIndex_Search(t *testing.T) {
	docs, vectors := fixture()
	idx, err := NewFlatIndex(docs, vectors)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	hits, err := idx.Search(context.Background(), []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "revenue_by_month-0", hits[0].ID)
	assert.Equal(t, "bookings_by_month-0", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = idx.Search(context.Background(), []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestNewFlatIndex_RejectsBadInput(t *testing.T) {
	docs, vectors := fixture()

	_, err := NewFlatIndex(nil, nil)
	assert.Error(t, err)

	_, err = NewFlatIndex(docs, vectors[:2])
	assert.Error(t, err)

	vectors[1] = []float32{1, 2}
	_, err = NewFlatIndex(docs, vectors)
	assert.Error(t, err)
}

func TestFlatIndex_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	docs, vectors := fixture()
	idx, err := NewFlatIndex(docs, vectors)
	require.NoError(t, err)

	path, err := idx.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SnapshotFile), path)

	loaded, err := LoadFlat(dir)
	require.NoError(t, err)
	assert.Equal(t, idx.Documents(), loaded.Documents())
	assert.Equal(t, idx.Dimension(), loaded.Dimension())
	assert.True(t, idx.createdAt.Equal(loaded.createdAt))

	query := []float32{0.2, 0.9, 0}
	want, err := idx.Search(context.Background(), query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(context.Background(), query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// 没有残留的临时文件
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadFlat_Missing(t *testing.T) {
	_, err := LoadFlat(t.TempDir())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadFlat_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFile), []byte("{not json"), 0o644))
	_, err := LoadFlat(dir)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestLocalBuilder_BuildThenRestore(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBuilder(dir, nil)

	_, err := b.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	docs, vectors := fixture()
	built, err := b.Build(context.Background(), docs, vectors)
	require.NoError(t, err)

	restored, err := b.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, built.Documents(), restored.Documents())
}

func TestLocalBuilder_NoDirSkipsPersistence(t *testing.T) {
	b := NewLocalBuilder("", nil)
	docs, vectors := fixture()
	_, err := b.Build(context.Background(), docs, vectors)
	require.NoError(t, err)

	_, err = b.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
