package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/internal/pkg/extract"
)

// RetrieverConfig configures dual-source retrieval.
type RetrieverConfig struct {
	// TopKVector is the number of chunks fetched from the vector index.
	TopKVector int
	// TopKKG is the maximum number of graph results per traversal.
	TopKKG int
	// KGMaxDepth bounds graph traversal depth.
	KGMaxDepth int
}

// Source is a retrieved chunk attributed in the final answer.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	// SimilarityScore duplicates Score for client compatibility.
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// KGEntity is a graph entity as exposed in query responses.
type KGEntity struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// KGRelation is a graph relationship as exposed in query responses.
type KGRelation struct {
	SourceEntity string         `json:"source_entity"`
	TargetEntity string         `json:"target_entity"`
	RelationType string         `json:"relation_type"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// KGContext groups the graph-side retrieval results of one query.
type KGContext struct {
	Entities      []*KGEntity   `json:"entities"`
	Relations     []*KGRelation `json:"relations"`
	TraversalPath []string      `json:"traversal_path"`
}

// RetrievalResult holds everything one retrieval pass produced.
type RetrievalResult struct {
	VectorResults []*store.SearchHit
	KGEntities    []*KGEntity
	KGRelations   []*KGRelation
	TraversalPath []string
	Reasoning     []string
	QueryType     string
}

// Retriever performs vector retrieval, graph traversal for relational and
// reasoning queries, and merges both into a single context string.
type Retriever struct {
	vectorIndex store.VectorIndex
	graph       store.GraphStore
	embedder    *Embedder
	config      *RetrieverConfig
}

// NewRetriever creates a dual-source retriever. graph may be an unavailable
// store; retrieval then degrades to vector search only.
func NewRetriever(
	vectorIndex store.VectorIndex,
	graph store.GraphStore,
	embedder *Embedder,
	config *RetrieverConfig,
) *Retriever {
	return &Retriever{
		vectorIndex: vectorIndex,
		graph:       graph,
		embedder:    embedder,
		config:      config,
	}
}

// RetrieveContext fetches context for a question. Vector search always runs;
// the knowledge graph is consulted only for relational and reasoning queries
// when hybrid mode is on and the graph is reachable. Each decision is
// recorded as a reasoning step.
func (r *Retriever) RetrieveContext(ctx context.Context, question, queryType string, useHybrid bool, topK int) (*RetrievalResult, error) {
	if topK <= 0 {
		topK = r.config.TopKVector
	}

	var reasoning []string

	queryEmbedding := r.embedder.EmbedSingle(ctx, question)
	hits, err := r.vectorIndex.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}
	reasoning = append(reasoning, fmt.Sprintf("Retrieved %d chunks from vector store", len(hits)))

	result := &RetrievalResult{
		VectorResults: hits,
		KGEntities:    []*KGEntity{},
		KGRelations:   []*KGRelation{},
		TraversalPath: []string{},
		QueryType:     queryType,
	}

	switch {
	case useHybrid && r.graph.Available() && (queryType == QueryTypeRelational || queryType == QueryTypeReasoning):
		entities, relations, path, kgErr := r.retrieveFromGraph(ctx, question)
		if kgErr != nil {
			logger.Warnw("knowledge graph retrieval failed", "error", kgErr.Error())
			reasoning = append(reasoning, "KG retrieval unavailable - using vector search only")
			break
		}
		result.KGEntities = entities
		result.KGRelations = relations
		result.TraversalPath = path
		reasoning = append(reasoning, fmt.Sprintf("Retrieved %d entities and %d relations from KG", len(entities), len(relations)))
		for i, step := range path {
			if i >= 3 {
				break
			}
			reasoning = append(reasoning, step)
		}
	case useHybrid && !r.graph.Available():
		reasoning = append(reasoning, "KG service unavailable - using vector search only")
	case queryType == QueryTypeFactual:
		reasoning = append(reasoning, "Factual query - prioritizing vector search over KG")
	}

	result.Reasoning = reasoning
	return result, nil
}

// retrieveFromGraph extracts entity names from the question, unions them
// with stored entity names that appear in the question text, and traverses
// their neighborhood, building a human-readable traversal path.
func (r *Retriever) retrieveFromGraph(ctx context.Context, question string) ([]*KGEntity, []*KGRelation, []string, error) {
	names := extract.QueryEntities(question)
	if len(names) == 0 {
		logger.Debugw("no entities found in query for KG retrieval")
		return []*KGEntity{}, []*KGRelation{}, []string{}, nil
	}

	// The heuristic misses lowercase and all-caps entity names; names the
	// graph already knows fill that gap.
	matched, err := r.graph.MatchEntityNames(ctx, question)
	if err != nil {
		logger.Warnw("entity name matching failed", "error", err.Error())
	} else {
		names = unionNames(names, matched)
	}

	storeEntities, storeRelations, err := r.graph.Neighborhood(ctx, names, r.config.KGMaxDepth, r.config.TopKKG)
	if err != nil {
		return nil, nil, nil, err
	}

	entities := make([]*KGEntity, 0, len(storeEntities))
	for _, e := range storeEntities {
		entityType := e.Type
		if entityType == "" {
			entityType = "Entity"
		}
		entities = append(entities, &KGEntity{
			EntityID:   e.EntityID,
			EntityType: entityType,
			Name:       e.Name,
			Properties: e.Properties,
		})
	}
	relations := make([]*KGRelation, 0, len(storeRelations))
	for _, rel := range storeRelations {
		relationType := rel.Type
		if relationType == "" {
			relationType = "RELATED_TO"
		}
		relations = append(relations, &KGRelation{
			SourceEntity: rel.Source,
			TargetEntity: rel.Target,
			RelationType: relationType,
			Properties:   rel.Properties,
		})
	}

	return entities, relations, buildTraversalPath(names, entities, relations), nil
}

// unionNames appends names from extra that are not already present,
// preserving order.
func unionNames(names, extra []string) []string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, n := range extra {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// buildTraversalPath renders the traversal for explainability.
func buildTraversalPath(startNames []string, entities []*KGEntity, relations []*KGRelation) []string {
	limit := len(startNames)
	if limit > 5 {
		limit = 5
	}
	path := []string{fmt.Sprintf("Started from entities: %s", strings.Join(startNames[:limit], ", "))}

	if len(relations) > 0 {
		path = append(path, fmt.Sprintf("Found %d relations", len(relations)))
		for i, rel := range relations {
			if i >= 3 {
				break
			}
			path = append(path, fmt.Sprintf("  - %s --[%s]--> %s", rel.SourceEntity, rel.RelationType, rel.TargetEntity))
		}
	}
	if len(entities) > 0 {
		path = append(path, fmt.Sprintf("Retrieved %d connected entities", len(entities)))
	}
	return path
}

// MergeContext combines vector chunks and graph context into one prompt
// context. Relational queries get graph relations first; relational and
// reasoning queries get a trailing entity list. Deleted chunks are skipped.
func (r *Retriever) MergeContext(result *RetrievalResult) (string, []*Source) {
	var (
		sources []*Source
		parts   []string
	)

	for _, hit := range result.VectorResults {
		if hit.Chunk.Deleted {
			continue
		}
		sources = append(sources, &Source{
			ChunkID:         hit.Chunk.ChunkID,
			DocumentID:      hit.Chunk.DocumentID,
			Content:         hit.Chunk.Content,
			Score:           hit.Score,
			SimilarityScore: hit.Score,
			Metadata:        hit.Chunk.Metadata,
		})
		parts = append(parts, fmt.Sprintf("[Vector Chunk %d]\n%s", len(parts)+1, hit.Chunk.Content))
	}

	if result.QueryType == QueryTypeRelational && len(result.KGRelations) > 0 {
		var b strings.Builder
		b.WriteString("Knowledge Graph Relations:\n")
		for i, rel := range result.KGRelations {
			if i >= 15 {
				break
			}
			fmt.Fprintf(&b, "- %s --[%s]--> %s\n", rel.SourceEntity, rel.RelationType, rel.TargetEntity)
		}
		// Graph relations lead for relational queries.
		parts = append([]string{b.String()}, parts...)
	}

	if (result.QueryType == QueryTypeRelational || result.QueryType == QueryTypeReasoning) && len(result.KGEntities) > 0 {
		var b strings.Builder
		b.WriteString("Related Entities:\n")
		for i, entity := range result.KGEntities {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "- %s (Type: %s)\n", entity.Name, entity.EntityType)
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n---\n\n"), sources
}
