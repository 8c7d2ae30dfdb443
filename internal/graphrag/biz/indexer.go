package biz

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/internal/pkg/extract"
	"github.com/kart-io/graphrag/internal/pkg/textutil"
	"github.com/kart-io/graphrag/pkg/errors"
)

// IndexerConfig configures document ingestion.
type IndexerConfig struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int
	// ChunkOverlap is the character overlap carried between chunks.
	ChunkOverlap int
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocumentID         string   `json:"document_id"`
	ChunksCreated      int      `json:"chunks_created"`
	EntitiesExtracted  int      `json:"entities_extracted"`
	RelationsExtracted int      `json:"relations_extracted"`
	ChunkIDs           []string `json:"-"`
}

// Indexer ingests documents: chunking, embedding, vector storage, and
// entity/relation extraction into the knowledge graph.
type Indexer struct {
	vectorIndex store.VectorIndex
	graph       store.GraphStore
	embedder    *Embedder
	config      *IndexerConfig
}

// NewIndexer creates a document indexer.
func NewIndexer(
	vectorIndex store.VectorIndex,
	graph store.GraphStore,
	embedder *Embedder,
	config *IndexerConfig,
) *Indexer {
	return &Indexer{
		vectorIndex: vectorIndex,
		graph:       graph,
		embedder:    embedder,
		config:      config,
	}
}

// IngestDocument chunks the text, embeds the chunks into the vector index
// and extracts entities and relations into the knowledge graph. metadata is
// attached to every chunk. When documentID is empty a fresh UUID is used.
func (ix *Indexer) IngestDocument(ctx context.Context, documentID, text string, metadata map[string]any) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.ErrEmptyDocument
	}
	if documentID == "" {
		documentID = uuid.NewString()
	}

	pieces := textutil.ChunkText(text, ix.config.ChunkSize, ix.config.ChunkOverlap)
	if len(pieces) == 0 {
		return nil, errors.ErrEmptyDocument
	}

	chunks := make([]*store.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = &store.Chunk{
			DocumentID:  documentID,
			Content:     content,
			ChunkIndex:  i,
			ChunkLength: len(content),
			TotalChunks: len(pieces),
			Metadata:    metadata,
		}
	}

	embeddings := ix.embedder.Embed(ctx, pieces)
	chunkIDs, err := ix.vectorIndex.Add(ctx, chunks, embeddings)
	if err != nil {
		return nil, errors.ErrIngestFailed.WithCause(err)
	}

	entitiesStored, relationsStored := ix.storeGraphContext(ctx, documentID, text)

	logger.Infow("document ingested",
		"document_id", documentID,
		"chunks", len(chunks),
		"entities", entitiesStored,
		"relations", relationsStored)

	return &IngestResult{
		DocumentID:         documentID,
		ChunksCreated:      len(chunks),
		EntitiesExtracted:  entitiesStored,
		RelationsExtracted: relationsStored,
		ChunkIDs:           chunkIDs,
	}, nil
}

// storeGraphContext extracts entities and relations from the document text
// and upserts them into the graph. Graph failures do not fail ingestion; the
// vector side already holds the document.
func (ix *Indexer) storeGraphContext(ctx context.Context, documentID, text string) (int, int) {
	if !ix.graph.Available() {
		return 0, 0
	}

	entities, relations := extract.EntitiesAndRelations(text)

	storeEntities := make([]*store.Entity, len(entities))
	for i, e := range entities {
		storeEntities[i] = &store.Entity{Name: e.Name, Type: e.Type, Properties: e.Properties}
	}
	storeRelations := make([]*store.Relation, len(relations))
	for i, r := range relations {
		storeRelations[i] = &store.Relation{Source: r.Source, Target: r.Target, Type: r.Type, Properties: r.Properties}
	}

	entitiesStored, err := ix.graph.AddEntities(ctx, storeEntities)
	if err != nil {
		logger.Warnw("failed to store entities in knowledge graph",
			"document_id", documentID, "error", err.Error())
		return 0, 0
	}
	relationsStored, err := ix.graph.AddRelations(ctx, storeRelations)
	if err != nil {
		logger.Warnw("failed to store relations in knowledge graph",
			"document_id", documentID, "error", err.Error())
		return entitiesStored, 0
	}
	return entitiesStored, relationsStored
}

// DeleteDocument removes all chunks of a document from the vector index and
// returns how many were affected.
func (ix *Indexer) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := ix.vectorIndex.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, errors.ErrDocumentNotFound
	}
	logger.Infow("document deleted", "document_id", documentID, "chunks", deleted)
	return deleted, nil
}
