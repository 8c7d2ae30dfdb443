package biz

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/internal/graphrag/store"
)

func newTestRetriever(index *mockVectorIndex, graph *mockGraphStore) *Retriever {
	embedder := NewEmbedder(&mockEmbeddingProvider{embedding: []float32{1, 0, 0, 0}}, &EmbedderConfig{Dimension: 4})
	return NewRetriever(index, graph, embedder, &RetrieverConfig{
		TopKVector: 5,
		TopKKG:     10,
		KGMaxDepth: 2,
	})
}

func someHits() []*store.SearchHit {
	return []*store.SearchHit{
		{Chunk: &store.Chunk{ChunkID: "c1", DocumentID: "d1", Content: "Alice Smith works at Acme Corp."}, Score: 0.9},
		{Chunk: &store.Chunk{ChunkID: "c2", DocumentID: "d1", Content: "Acme Corp is located in Berlin."}, Score: 0.8},
	}
}

func TestRetrieveContextFactualSkipsGraph(t *testing.T) {
	graph := &mockGraphStore{available: true, entities: []*store.Entity{{Name: "Acme Corp"}}}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	result, err := retriever.RetrieveContext(context.Background(), "What is Acme Corp?", QueryTypeFactual, true, 0)

	require.NoError(t, err)
	assert.Len(t, result.VectorResults, 2)
	assert.Empty(t, result.KGEntities)
	assert.Contains(t, result.Reasoning, "Retrieved 2 chunks from vector store")
	assert.Contains(t, result.Reasoning, "Factual query - prioritizing vector search over KG")
}

func TestRetrieveContextRelationalQueriesGraph(t *testing.T) {
	graph := &mockGraphStore{
		available: true,
		entities:  []*store.Entity{{Name: "Acme Corp", Type: "Organization"}},
		relations: []*store.Relation{{Source: "Alice Smith", Target: "Acme Corp", Type: "WORKS_AT"}},
	}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	result, err := retriever.RetrieveContext(context.Background(), "Who is related to Alice Smith?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	require.Len(t, result.KGEntities, 1)
	require.Len(t, result.KGRelations, 1)
	assert.Equal(t, "WORKS_AT", result.KGRelations[0].RelationType)
	assert.Contains(t, result.Reasoning, "Retrieved 1 entities and 1 relations from KG")
	assert.NotEmpty(t, result.TraversalPath)
	assert.Contains(t, result.TraversalPath[0], "Started from entities:")
}

func TestRetrieveContextUnionsGraphMatchedNames(t *testing.T) {
	// The capitalized-phrase heuristic cannot see a lowercase entity name;
	// names the graph already stores must still seed the traversal.
	graph := &mockGraphStore{
		available:    true,
		matchedNames: []string{"microsoft"},
		relations:    []*store.Relation{{Source: "Alice", Target: "microsoft", Type: "WORKS_AT"}},
	}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	_, err := retriever.RetrieveContext(context.Background(), "How is Alice related to microsoft?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	assert.Contains(t, graph.lastRoots, "microsoft")
	assert.Contains(t, graph.lastRoots, "Alice")
}

func TestRetrieveContextNameMatchDeduplicatesRoots(t *testing.T) {
	graph := &mockGraphStore{
		available:    true,
		matchedNames: []string{"Alice", "IBM"},
	}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	_, err := retriever.RetrieveContext(context.Background(), "How is Alice related to IBM?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	assert.Contains(t, graph.lastRoots, "IBM")
	count := 0
	for _, name := range graph.lastRoots {
		if name == "Alice" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRetrieveContextNameMatchErrorKeepsHeuristicRoots(t *testing.T) {
	graph := &mockGraphStore{
		available: true,
		matchErr:  goerrors.New("bolt connection reset"),
	}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	result, err := retriever.RetrieveContext(context.Background(), "Who is related to Alice Smith?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	assert.Contains(t, graph.lastRoots, "Alice Smith")
	assert.Contains(t, result.Reasoning, "Retrieved 0 entities and 0 relations from KG")
}

func TestRetrieveContextGraphUnavailable(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, &mockGraphStore{available: false})

	result, err := retriever.RetrieveContext(context.Background(), "Who is related to Alice Smith?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	assert.Empty(t, result.KGEntities)
	assert.Contains(t, result.Reasoning, "KG service unavailable - using vector search only")
}

func TestRetrieveContextGraphErrorDegradesToVector(t *testing.T) {
	graph := &mockGraphStore{available: true, neighborErr: goerrors.New("bolt connection reset")}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	result, err := retriever.RetrieveContext(context.Background(), "Who is related to Alice Smith?", QueryTypeRelational, true, 0)

	require.NoError(t, err)
	assert.Len(t, result.VectorResults, 2)
	assert.Empty(t, result.KGEntities)
	assert.Contains(t, result.Reasoning, "KG retrieval unavailable - using vector search only")
}

func TestRetrieveContextHybridDisabled(t *testing.T) {
	graph := &mockGraphStore{available: true, entities: []*store.Entity{{Name: "Acme Corp"}}}
	retriever := newTestRetriever(&mockVectorIndex{hits: someHits()}, graph)

	result, err := retriever.RetrieveContext(context.Background(), "Who is related to Alice Smith?", QueryTypeRelational, false, 0)

	require.NoError(t, err)
	assert.Empty(t, result.KGEntities)
}

func TestRetrieveContextVectorErrorPropagates(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{searchErr: goerrors.New("index closed")}, &mockGraphStore{})

	_, err := retriever.RetrieveContext(context.Background(), "anything", QueryTypeFactual, true, 0)

	assert.Error(t, err)
}

func TestMergeContextVectorOnly(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{}, &mockGraphStore{})

	merged, sources := retriever.MergeContext(&RetrievalResult{
		VectorResults: someHits(),
		QueryType:     QueryTypeFactual,
	})

	require.Len(t, sources, 2)
	assert.Equal(t, "c1", sources[0].ChunkID)
	assert.Equal(t, 0.9, sources[0].Score)
	assert.Equal(t, 0.9, sources[0].SimilarityScore)
	assert.True(t, strings.HasPrefix(merged, "[Vector Chunk 1]\nAlice Smith works at Acme Corp."))
	assert.Contains(t, merged, "\n\n---\n\n[Vector Chunk 2]\n")
}

func TestMergeContextSkipsDeletedChunks(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{}, &mockGraphStore{})
	hits := someHits()
	hits[0].Chunk.Deleted = true

	merged, sources := retriever.MergeContext(&RetrievalResult{
		VectorResults: hits,
		QueryType:     QueryTypeFactual,
	})

	require.Len(t, sources, 1)
	assert.Equal(t, "c2", sources[0].ChunkID)
	assert.NotContains(t, merged, "Alice Smith works at Acme Corp.")
	assert.True(t, strings.HasPrefix(merged, "[Vector Chunk 1]\n"))
}

func TestMergeContextRelationalPutsRelationsFirst(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{}, &mockGraphStore{})

	merged, _ := retriever.MergeContext(&RetrievalResult{
		VectorResults: someHits(),
		KGRelations: []*KGRelation{
			{SourceEntity: "Alice Smith", TargetEntity: "Acme Corp", RelationType: "WORKS_AT"},
		},
		KGEntities: []*KGEntity{{Name: "Acme Corp", EntityType: "Organization"}},
		QueryType:  QueryTypeRelational,
	})

	assert.True(t, strings.HasPrefix(merged, "Knowledge Graph Relations:\n- Alice Smith --[WORKS_AT]--> Acme Corp\n"))
	assert.Contains(t, merged, "Related Entities:\n- Acme Corp (Type: Organization)\n")
	// Entity list comes after the vector chunks.
	assert.Greater(t, strings.Index(merged, "Related Entities:"), strings.Index(merged, "[Vector Chunk 1]"))
}

func TestMergeContextReasoningAddsEntitiesButNotRelations(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{}, &mockGraphStore{})

	merged, _ := retriever.MergeContext(&RetrievalResult{
		VectorResults: someHits(),
		KGRelations: []*KGRelation{
			{SourceEntity: "Alice Smith", TargetEntity: "Acme Corp", RelationType: "WORKS_AT"},
		},
		KGEntities: []*KGEntity{{Name: "Acme Corp", EntityType: "Organization"}},
		QueryType:  QueryTypeReasoning,
	})

	assert.NotContains(t, merged, "Knowledge Graph Relations:")
	assert.Contains(t, merged, "Related Entities:")
}

func TestMergeContextLimitsGraphBlocks(t *testing.T) {
	retriever := newTestRetriever(&mockVectorIndex{}, &mockGraphStore{})

	var relations []*KGRelation
	for i := 0; i < 20; i++ {
		relations = append(relations, &KGRelation{
			SourceEntity: fmt.Sprintf("E%d", i), TargetEntity: "Hub", RelationType: "RELATED_TO",
		})
	}
	var entities []*KGEntity
	for i := 0; i < 20; i++ {
		entities = append(entities, &KGEntity{Name: fmt.Sprintf("E%d", i), EntityType: "Entity"})
	}

	merged, _ := retriever.MergeContext(&RetrievalResult{
		KGRelations: relations,
		KGEntities:  entities,
		QueryType:   QueryTypeRelational,
	})

	assert.Equal(t, 15, strings.Count(merged, "--[RELATED_TO]-->"))
	assert.Equal(t, 10, strings.Count(merged, "(Type: Entity)"))
}
