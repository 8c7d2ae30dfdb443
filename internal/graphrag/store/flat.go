package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/pkg/textutil"
	"github.com/kart-io/graphrag/pkg/errors"
)

// FlatIndex is a file-backed exact-search vector index.
// Vectors are L2-normalized on insert and query, so the L2 distance on
// stored vectors maps directly to cosine similarity. The index and its
// chunk metadata are persisted to a single JSON file after every write.
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	path      string
	vectors   [][]float32
	chunks    []*Chunk
}

var _ VectorIndex = (*FlatIndex)(nil)

// persistedIndex is the on-disk representation.
type persistedIndex struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
	Chunks    []*Chunk    `json:"chunks"`
}

// NewFlatIndex creates a flat index persisted at path, loading any
// existing state from disk. A corrupt or incompatible file is discarded
// and the index starts empty.
func NewFlatIndex(path string, dimension int) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat index dimension must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	idx := &FlatIndex{
		dimension: dimension,
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read index file: %w", err)
		}
		logger.Infow("Created new flat vector index", "path", path, "dimension", dimension)
		return idx, nil
	}

	var persisted persistedIndex
	if err := sonic.Unmarshal(data, &persisted); err != nil || persisted.Dimension != dimension {
		logger.Warnw("Discarding incompatible vector index file", "path", path, "error", err)
		return idx, nil
	}

	idx.vectors = persisted.Vectors
	idx.chunks = persisted.Chunks
	logger.Infow("Loaded flat vector index", "path", path, "vectors", len(idx.vectors))
	return idx, nil
}

// Add stores chunks with their embeddings. Embeddings are copied and
// normalized; the caller's slices are not mutated. State is persisted
// before Add returns, and rolled back when persistence fails.
func (f *FlatIndex) Add(_ context.Context, chunks []*Chunk, embeddings [][]float32) ([]string, error) {
	if len(chunks) == 0 || len(embeddings) == 0 {
		return nil, nil
	}
	if len(chunks) != len(embeddings) {
		return nil, errors.ErrVectorCountMismatch.WithMessagef(
			"got %d chunks and %d embeddings", len(chunks), len(embeddings))
	}
	for i, e := range embeddings {
		if len(e) != f.dimension {
			return nil, errors.ErrDimensionMismatch.WithMessagef(
				"embedding %d has dimension %d, index expects %d", i, len(e), f.dimension)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prevVectors := len(f.vectors)
	prevChunks := len(f.chunks)

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		if chunk.ChunkID == "" {
			chunk.ChunkID = uuid.NewString()
		}
		ids[i] = chunk.ChunkID
		chunk.IndexPosition = prevChunks + i

		vec := make([]float32, f.dimension)
		copy(vec, embeddings[i])
		textutil.NormalizeL2(vec)

		f.vectors = append(f.vectors, vec)
		f.chunks = append(f.chunks, chunk)
	}

	if err := f.persistLocked(); err != nil {
		f.vectors = f.vectors[:prevVectors]
		f.chunks = f.chunks[:prevChunks]
		return nil, errors.ErrIndexPersist.WithCause(err)
	}

	logger.Infow("Added vectors to flat index", "count", len(chunks), "total", len(f.vectors))
	return ids, nil
}

// Search returns the topK nearest chunks by exact scan.
func (f *FlatIndex) Search(_ context.Context, embedding []float32, topK int) ([]*SearchHit, error) {
	if len(embedding) != f.dimension {
		return nil, errors.ErrDimensionMismatch.WithMessagef(
			"query has dimension %d, index expects %d", len(embedding), f.dimension)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return []*SearchHit{}, nil
	}
	if topK <= 0 {
		topK = 1
	}
	if topK > len(f.vectors) {
		topK = len(f.vectors)
	}

	query := make([]float32, f.dimension)
	copy(query, embedding)
	textutil.NormalizeL2(query)

	type candidate struct {
		position int
		distance float64
	}
	candidates := make([]candidate, len(f.vectors))
	for i, v := range f.vectors {
		candidates[i] = candidate{position: i, distance: textutil.SquaredL2(query, v)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	hits := make([]*SearchHit, 0, topK)
	for _, c := range candidates[:topK] {
		// Normalized vectors bound the squared L2 distance to [0, 4];
		// relevant matches live in [0, 2], mapped to a [0, 1] score.
		score := textutil.Clamp01(1.0 - c.distance/2.0)
		hits = append(hits, &SearchHit{
			Chunk: f.chunks[c.position],
			Score: score,
		})
	}
	return hits, nil
}

// DeleteByDocument marks all chunks of a document as deleted.
// The underlying vectors remain; results are filtered downstream.
func (f *FlatIndex) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for _, chunk := range f.chunks {
		if chunk.DocumentID == documentID && !chunk.Deleted {
			chunk.Deleted = true
			deleted++
		}
	}

	if deleted > 0 {
		if err := f.persistLocked(); err != nil {
			return 0, errors.ErrIndexPersist.WithCause(err)
		}
		logger.Infow("Soft-deleted document chunks", "document_id", documentID, "count", deleted)
	}
	return deleted, nil
}

// Stats returns index statistics.
func (f *FlatIndex) Stats(_ context.Context) (*VectorStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &VectorStats{
		TotalVectors:  int64(len(f.vectors)),
		Dimension:     f.dimension,
		MetadataCount: int64(len(f.chunks)),
		IndexType:     "flat",
	}, nil
}

// Close persists the current state.
func (f *FlatIndex) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persistLocked()
}

// persistLocked writes the index atomically. Callers must hold the lock.
func (f *FlatIndex) persistLocked() error {
	data, err := sonic.Marshal(&persistedIndex{
		Dimension: f.dimension,
		Vectors:   f.vectors,
		Chunks:    f.chunks,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}
