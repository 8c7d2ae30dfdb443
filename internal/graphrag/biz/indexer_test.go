package biz

import (
	"context"
	goerrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/errors"
)

func newTestIndexer(index *mockVectorIndex, graph *mockGraphStore) *Indexer {
	embedder := NewEmbedder(&mockEmbeddingProvider{embedding: []float32{1, 0, 0, 0}}, &EmbedderConfig{Dimension: 4})
	return NewIndexer(index, graph, embedder, &IndexerConfig{ChunkSize: 200, ChunkOverlap: 40})
}

func TestIngestDocumentEmptyText(t *testing.T) {
	indexer := newTestIndexer(&mockVectorIndex{}, &mockGraphStore{})

	_, err := indexer.IngestDocument(context.Background(), "", "   \n\t  ", nil)

	assert.ErrorIs(t, err, errors.ErrEmptyDocument)
}

func TestIngestDocumentAssignsDocumentID(t *testing.T) {
	index := &mockVectorIndex{}
	indexer := newTestIndexer(index, &mockGraphStore{})

	result, err := indexer.IngestDocument(context.Background(), "", "Some document content worth chunking into pieces.", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID)
	require.NotEmpty(t, index.added)
	for _, chunk := range index.added {
		assert.Equal(t, result.DocumentID, chunk.DocumentID)
	}
}

func TestIngestDocumentChunksAndStoresGraphContext(t *testing.T) {
	index := &mockVectorIndex{}
	graph := &mockGraphStore{available: true}
	indexer := newTestIndexer(index, graph)

	text := strings.Repeat("Alice Smith works at Acme Corp. Acme Corp is located in Berlin. Alice Smith leads the robotics team. ", 4)
	meta := map[string]any{"file_name": "acme.txt"}

	result, err := indexer.IngestDocument(context.Background(), "doc-1", text, meta)

	require.NoError(t, err)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Greater(t, result.ChunksCreated, 1)
	assert.Equal(t, result.ChunksCreated, len(index.added))
	assert.Equal(t, meta, index.added[0].Metadata)

	// Repeated mentions of Alice Smith and Acme Corp must reach the graph.
	assert.Greater(t, result.EntitiesExtracted, 0)
	assert.NotEmpty(t, graph.addedEntities)
}

func TestIngestDocumentRecordsChunkPositions(t *testing.T) {
	index := &mockVectorIndex{}
	indexer := newTestIndexer(index, &mockGraphStore{})

	text := strings.Repeat("Alice Smith works at Acme Corp. Acme Corp is located in Berlin. Alice Smith leads the robotics team. ", 4)

	result, err := indexer.IngestDocument(context.Background(), "doc-1", text, nil)

	require.NoError(t, err)
	require.Greater(t, result.ChunksCreated, 1)
	for i, chunk := range index.added {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, len(chunk.Content), chunk.ChunkLength)
		assert.Equal(t, result.ChunksCreated, chunk.TotalChunks)
	}
}

func TestIngestDocumentGraphUnavailableStillIngests(t *testing.T) {
	index := &mockVectorIndex{}
	graph := &mockGraphStore{available: false}
	indexer := newTestIndexer(index, graph)

	result, err := indexer.IngestDocument(context.Background(), "doc-1", "Alice Smith works at Acme Corp. Alice Smith and Acme Corp again.", nil)

	require.NoError(t, err)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.Zero(t, result.EntitiesExtracted)
	assert.Empty(t, graph.addedEntities)
}

func TestIngestDocumentVectorAddFailure(t *testing.T) {
	index := &mockVectorIndex{addErr: goerrors.New("disk full")}
	indexer := newTestIndexer(index, &mockGraphStore{})

	_, err := indexer.IngestDocument(context.Background(), "doc-1", "Some content to ingest here.", nil)

	assert.Error(t, err)
}

func TestDeleteDocument(t *testing.T) {
	index := &mockVectorIndex{deleted: 3}
	indexer := newTestIndexer(index, &mockGraphStore{})

	deleted, err := indexer.DeleteDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
}

func TestDeleteDocumentNotFound(t *testing.T) {
	index := &mockVectorIndex{deleted: 0}
	indexer := newTestIndexer(index, &mockGraphStore{})

	_, err := indexer.DeleteDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)
}
