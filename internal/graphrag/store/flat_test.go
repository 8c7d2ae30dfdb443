package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/errors"
)

func newTestIndex(t *testing.T, dim int) *FlatIndex {
	t.Helper()
	idx, err := NewFlatIndex(filepath.Join(t.TempDir(), "index.json"), dim)
	require.NoError(t, err)
	return idx
}

func TestFlatIndexAddAssignsIDs(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	chunks := []*Chunk{
		{DocumentID: "doc-1", Content: "first"},
		{ChunkID: "existing-id", DocumentID: "doc-1", Content: "second"},
	}
	ids, err := idx.Add(ctx, chunks, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	assert.NotEmpty(t, ids[0])
	assert.Equal(t, "existing-id", ids[1])
	assert.Equal(t, 0, chunks[0].IndexPosition)
	assert.Equal(t, 1, chunks[1].IndexPosition)
}

func TestFlatIndexAddCountMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)

	_, err := idx.Add(context.Background(), []*Chunk{{Content: "a"}}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrVectorCountMismatch)
}

func TestFlatIndexAddDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)

	_, err := idx.Add(context.Background(), []*Chunk{{Content: "a"}}, [][]float32{{1, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestFlatIndexSearchScores(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*Chunk{
		{DocumentID: "doc-1", Content: "same direction"},
		{DocumentID: "doc-1", Content: "orthogonal"},
		{DocumentID: "doc-1", Content: "opposite"},
	}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{-1, 0, 0},
	})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{2, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// Identical direction scores 1, orthogonal 0.5, opposite clamps to 0.
	assert.Equal(t, "same direction", hits[0].Chunk.Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "orthogonal", hits[1].Chunk.Content)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)
	assert.Equal(t, "opposite", hits[2].Chunk.Content)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
}

func TestFlatIndexSearchDoesNotMutateQuery(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*Chunk{{Content: "a"}}, [][]float32{{3, 4}})
	require.NoError(t, err)

	query := []float32{3, 4}
	_, err = idx.Search(ctx, query, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, query)
}

func TestFlatIndexSearchEmpty(t *testing.T) {
	idx := newTestIndex(t, 3)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndexTopKCapped(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*Chunk{{Content: "a"}, {Content: "b"}}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestFlatIndexSoftDelete(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*Chunk{
		{DocumentID: "doc-1", Content: "a"},
		{DocumentID: "doc-2", Content: "b"},
	}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	deleted, err := idx.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Deleted chunks still surface in search, flagged for downstream filtering.
	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.True(t, hits[0].Chunk.Deleted)
	assert.False(t, hits[1].Chunk.Deleted)

	// Deleting again is a no-op.
	deleted, err = idx.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	// Unknown document affects nothing.
	deleted, err = idx.DeleteByDocument(ctx, "doc-404")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestFlatIndexPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	ctx := context.Background()

	idx, err := NewFlatIndex(path, 2)
	require.NoError(t, err)

	ids, err := idx.Add(ctx, []*Chunk{{DocumentID: "doc-1", Content: "persisted"}}, [][]float32{{1, 0}})
	require.NoError(t, err)

	// A fresh instance sees the persisted state.
	reloaded, err := NewFlatIndex(path, 2)
	require.NoError(t, err)

	hits, err := reloaded.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[0], hits[0].Chunk.ChunkID)
	assert.Equal(t, "persisted", hits[0].Chunk.Content)

	stats, err := reloaded.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVectors)
	assert.Equal(t, int64(1), stats.MetadataCount)
	assert.Equal(t, "flat", stats.IndexType)
}

func TestFlatIndexDimensionChangeDiscardsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	ctx := context.Background()

	idx, err := NewFlatIndex(path, 2)
	require.NoError(t, err)
	_, err = idx.Add(ctx, []*Chunk{{Content: "old"}}, [][]float32{{1, 0}})
	require.NoError(t, err)

	// Loading with a different dimension starts empty.
	reloaded, err := NewFlatIndex(path, 3)
	require.NoError(t, err)
	stats, err := reloaded.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalVectors)
}
