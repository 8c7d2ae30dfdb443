package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/pkg/textutil"
	milvusclient "github.com/kart-io/graphrag/pkg/component/milvus"
	"github.com/kart-io/graphrag/pkg/errors"
	milvusopts "github.com/kart-io/graphrag/pkg/options/milvus"
)

// MilvusIndex implements VectorIndex on a Milvus collection.
// Unlike the flat engine, deletes are physical and deleted chunks never
// surface in search results.
type MilvusIndex struct {
	client     *milvusclient.Client
	collection string
	dimension  int
}

var _ VectorIndex = (*MilvusIndex)(nil)

// NewMilvusIndex connects to Milvus and ensures the chunk collection exists.
func NewMilvusIndex(opts *milvusopts.Options, dimension int) (*MilvusIndex, error) {
	client, err := milvusclient.New(opts)
	if err != nil {
		return nil, errors.ErrVectorStoreFailed.WithCause(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	if err := client.EnsureCollection(ctx, opts.Collection, dimension); err != nil {
		_ = client.Close(ctx)
		return nil, errors.ErrVectorStoreFailed.WithCause(err)
	}

	logger.Infow("Connected to Milvus vector index", "address", opts.Address, "collection", opts.Collection)
	return &MilvusIndex{
		client:     client,
		collection: opts.Collection,
		dimension:  dimension,
	}, nil
}

// Add stores chunks with their embeddings.
func (m *MilvusIndex) Add(ctx context.Context, chunks []*Chunk, embeddings [][]float32) ([]string, error) {
	if len(chunks) == 0 || len(embeddings) == 0 {
		return nil, nil
	}
	if len(chunks) != len(embeddings) {
		return nil, errors.ErrVectorCountMismatch.WithMessagef(
			"got %d chunks and %d embeddings", len(chunks), len(embeddings))
	}

	rows := make([]milvusclient.ChunkRow, len(chunks))
	for i, chunk := range chunks {
		if len(embeddings[i]) != m.dimension {
			return nil, errors.ErrDimensionMismatch.WithMessagef(
				"embedding %d has dimension %d, index expects %d", i, len(embeddings[i]), m.dimension)
		}
		if chunk.ChunkID == "" {
			chunk.ChunkID = uuid.NewString()
		}
		chunk.IndexPosition = i

		vec := make([]float32, m.dimension)
		copy(vec, embeddings[i])
		textutil.NormalizeL2(vec)

		rows[i] = milvusclient.ChunkRow{
			ChunkID:       chunk.ChunkID,
			DocumentID:    chunk.DocumentID,
			Content:       chunk.Content,
			IndexPosition: int64(chunk.IndexPosition),
			ChunkIndex:    int64(chunk.ChunkIndex),
			ChunkLength:   int64(chunk.ChunkLength),
			TotalChunks:   int64(chunk.TotalChunks),
			Embedding:     vec,
		}
	}

	if err := m.client.Insert(ctx, m.collection, rows); err != nil {
		return nil, errors.ErrVectorStoreFailed.WithCause(err)
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ChunkID
	}
	return ids, nil
}

// Search returns the topK most similar chunks.
func (m *MilvusIndex) Search(ctx context.Context, embedding []float32, topK int) ([]*SearchHit, error) {
	if len(embedding) != m.dimension {
		return nil, errors.ErrDimensionMismatch.WithMessagef(
			"query has dimension %d, index expects %d", len(embedding), m.dimension)
	}
	if topK <= 0 {
		topK = 1
	}

	query := make([]float32, m.dimension)
	copy(query, embedding)
	textutil.NormalizeL2(query)

	results, err := m.client.Search(ctx, m.collection, query, topK,
		[]string{"document_id", "content", "index_position", "chunk_index", "chunk_length", "total_chunks"})
	if err != nil {
		return nil, errors.ErrVectorStoreFailed.WithCause(err)
	}

	hits := make([]*SearchHit, 0, len(results))
	for _, r := range results {
		chunk := &Chunk{ChunkID: r.ChunkID}
		if v, ok := r.Metadata["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Metadata["content"].(string); ok {
			chunk.Content = v
		}
		if v, ok := r.Metadata["index_position"].(int64); ok {
			chunk.IndexPosition = int(v)
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			chunk.ChunkIndex = int(v)
		}
		if v, ok := r.Metadata["chunk_length"].(int64); ok {
			chunk.ChunkLength = int(v)
		}
		if v, ok := r.Metadata["total_chunks"].(int64); ok {
			chunk.TotalChunks = int(v)
		}

		// Milvus returns the L2 distance on normalized vectors.
		score := textutil.Clamp01(1.0 - float64(r.Score)/2.0)
		hits = append(hits, &SearchHit{Chunk: chunk, Score: score})
	}
	return hits, nil
}

// DeleteByDocument physically removes all chunks of a document.
func (m *MilvusIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := m.client.DeleteByDocument(ctx, m.collection, documentID)
	if err != nil {
		return 0, errors.ErrVectorStoreFailed.WithCause(err)
	}
	return int(count), nil
}

// Stats returns index statistics.
func (m *MilvusIndex) Stats(ctx context.Context) (*VectorStats, error) {
	count, err := m.client.Count(ctx, m.collection)
	if err != nil {
		return nil, errors.ErrVectorStoreFailed.WithCause(err)
	}
	return &VectorStats{
		TotalVectors:  count,
		Dimension:     m.dimension,
		MetadataCount: count,
		IndexType:     "milvus",
	}, nil
}

// Close closes the Milvus connection.
func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}
