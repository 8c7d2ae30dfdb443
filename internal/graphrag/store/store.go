package store

import (
	"context"
)

// Chunk is a document fragment stored in the vector index.
type Chunk struct {
	// ChunkID is the unique chunk identifier (UUID).
	ChunkID string `json:"chunk_id"`

	// DocumentID is the owning document identifier.
	DocumentID string `json:"document_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// ChunkIndex is the chunk's zero-based position within its document.
	ChunkIndex int `json:"chunk_index"`

	// ChunkLength is the chunk text length in characters.
	ChunkLength int `json:"chunk_length"`

	// TotalChunks is the number of chunks the document was split into.
	TotalChunks int `json:"total_chunks"`

	// IndexPosition is the immutable position in the index.
	IndexPosition int `json:"index_position"`

	// Deleted marks soft-deleted chunks. They stay in the index
	// but are filtered out of retrieval results downstream.
	Deleted bool `json:"deleted,omitempty"`

	// Metadata carries additional document attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchHit is a chunk returned from similarity search with its score.
type SearchHit struct {
	// Chunk is the matched chunk.
	Chunk *Chunk

	// Score is the similarity score in [0, 1], higher is more similar.
	Score float64
}

// VectorStats describes the state of a vector index.
type VectorStats struct {
	TotalVectors  int64  `json:"total_vectors"`
	Dimension     int    `json:"dimension"`
	MetadataCount int64  `json:"metadata_count"`
	IndexType     string `json:"index_type"`
}

// VectorIndex stores chunk embeddings and answers similarity queries.
type VectorIndex interface {
	// Add stores chunks with their embeddings and returns the chunk IDs.
	// Chunks without an ID are assigned a fresh UUID. The index is
	// durably persisted before Add returns.
	Add(ctx context.Context, chunks []*Chunk, embeddings [][]float32) ([]string, error)

	// Search returns the topK most similar chunks for the query embedding.
	// Soft-deleted chunks may appear in results and carry the Deleted flag.
	Search(ctx context.Context, embedding []float32, topK int) ([]*SearchHit, error)

	// DeleteByDocument soft-deletes all chunks of a document and returns
	// the number of affected chunks.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Stats returns index statistics.
	Stats(ctx context.Context) (*VectorStats, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Entity is a node in the knowledge graph.
type Entity struct {
	// EntityID is the backend-assigned identifier.
	EntityID string `json:"entity_id,omitempty"`

	// Name is the entity name, unique per type.
	Name string `json:"name"`

	// Type is the entity label (Person, Organization, Location, Entity).
	Type string `json:"type"`

	// Properties carries additional node attributes.
	Properties map[string]any `json:"properties,omitempty"`
}

// Relation is a directed, typed edge between two entities.
type Relation struct {
	// Source is the source entity name.
	Source string `json:"source"`

	// Target is the target entity name.
	Target string `json:"target"`

	// Type is the relation type (IS_A, WORKS_AT, LOCATED_IN, ...).
	Type string `json:"type"`

	// Properties carries additional edge attributes.
	Properties map[string]any `json:"properties,omitempty"`
}

// PathNode is a single node on a path between two entities.
type PathNode struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GraphStats describes the state of the knowledge graph.
type GraphStats struct {
	TotalNodes         int64            `json:"total_nodes"`
	TotalRelationships int64            `json:"total_relationships"`
	NodeTypes          map[string]int64 `json:"node_types"`
}

// GraphStore stores entities and relations and answers traversal queries.
// Implementations may be unavailable (no backing database); in that case
// Available reports false and all operations are no-ops.
type GraphStore interface {
	// AddEntities upserts entities keyed by (type, name).
	// Entities with empty names are skipped silently.
	AddEntities(ctx context.Context, entities []*Entity) (int, error)

	// AddRelations upserts relations keyed by (source, type, target).
	// Relations with empty endpoints are skipped silently.
	AddRelations(ctx context.Context, relations []*Relation) (int, error)

	// Neighborhood traverses the graph from the given entity names up to
	// maxDepth and returns connected entities and the relations between
	// them. The starting names themselves are excluded from the results.
	Neighborhood(ctx context.Context, names []string, maxDepth, maxResults int) ([]*Entity, []*Relation, error)

	// MatchEntityNames returns names of stored entities that literally
	// appear as words in the text.
	MatchEntityNames(ctx context.Context, text string) ([]string, error)

	// ShortestPath returns the nodes on the shortest path between two
	// entities, or nil when no path exists within maxDepth.
	ShortestPath(ctx context.Context, source, target string, maxDepth int) ([]PathNode, error)

	// Stats returns graph statistics.
	Stats(ctx context.Context) (*GraphStats, error)

	// Available reports whether the graph backend is reachable.
	Available() bool

	// Close releases resources.
	Close(ctx context.Context) error
}
