package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/errors"
	"github.com/kart-io/graphrag/pkg/llm"
)

// agentArchitecture labels the pipeline layout in query responses.
const agentArchitecture = "multi-agent"

// QueryResponse is the full answer to one query.
type QueryResponse struct {
	Answer            string     `json:"answer"`
	Confidence        float64    `json:"confidence"`
	Sources           []*Source  `json:"sources"`
	KGContext         *KGContext `json:"kg_context,omitempty"`
	QueryType         string     `json:"query_type"`
	ReasoningSteps    []string   `json:"reasoning_steps"`
	AgentArchitecture string     `json:"agent_architecture"`
	Timestamp         time.Time  `json:"timestamp"`
	Rejected          bool       `json:"rejected"`
}

// HealthStatus reports readiness of each backend.
type HealthStatus struct {
	Status           string `json:"status"`
	VectorStoreReady bool   `json:"vector_store_ready"`
	KGStoreReady     bool   `json:"kg_store_ready"`
	LLMServiceReady  bool   `json:"llm_service_ready"`
	TotalChunks      int64  `json:"total_chunks"`
	TotalEntities    int64  `json:"total_entities"`
}

// Stats aggregates backend statistics and pipeline counters.
type Stats struct {
	VectorStore *store.VectorStats `json:"vector_store"`
	Graph       *store.GraphStats  `json:"graph,omitempty"`
	Pipeline    map[string]any     `json:"pipeline"`
}

// EntityPath is the shortest path between two graph entities.
type EntityPath struct {
	Source string           `json:"source"`
	Target string           `json:"target"`
	Nodes  []store.PathNode `json:"nodes"`
}

// Service is the GraphRAG service interface.
type Service interface {
	// Query answers a question with hybrid retrieval and hallucination control.
	Query(ctx context.Context, question string, useHybrid bool, topK int) (*QueryResponse, error)
	// IngestDocument ingests raw text under the given document ID.
	IngestDocument(ctx context.Context, documentID, text string, metadata map[string]any) (*IngestResult, error)
	// DeleteDocument removes a document's chunks from the vector index.
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	// EntityPath finds the shortest path between two entities.
	EntityPath(ctx context.Context, source, target string, maxDepth int) (*EntityPath, error)
	// Health reports readiness of the backends.
	Health(ctx context.Context) (*HealthStatus, error)
	// Stats returns backend and pipeline statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// GraphRAGService composes the classifier, retriever, generator and indexer
// into the full pipeline.
type GraphRAGService struct {
	classifier  *Classifier
	retriever   *Retriever
	generator   *Generator
	indexer     *Indexer
	vectorIndex store.VectorIndex
	graph       store.GraphStore
	metrics     *metrics.Metrics
	kgMaxDepth  int
}

var _ Service = (*GraphRAGService)(nil)

// ServiceConfig bundles component configs for service construction.
type ServiceConfig struct {
	EmbedderConfig  *EmbedderConfig
	RetrieverConfig *RetrieverConfig
	GuardConfig     *GuardConfig
	GeneratorConfig *GeneratorConfig
	IndexerConfig   *IndexerConfig
}

// NewGraphRAGService wires the pipeline components together.
func NewGraphRAGService(
	vectorIndex store.VectorIndex,
	graph store.GraphStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	config *ServiceConfig,
) *GraphRAGService {
	embedder := NewEmbedder(embedProvider, config.EmbedderConfig)
	guard := NewGuard(config.GuardConfig)

	return &GraphRAGService{
		classifier:  NewClassifier(chatProvider),
		retriever:   NewRetriever(vectorIndex, graph, embedder, config.RetrieverConfig),
		generator:   NewGenerator(chatProvider, guard, config.GeneratorConfig),
		indexer:     NewIndexer(vectorIndex, graph, embedder, config.IndexerConfig),
		vectorIndex: vectorIndex,
		graph:       graph,
		metrics:     metrics.Get(),
		kgMaxDepth:  config.RetrieverConfig.KGMaxDepth,
	}
}

// Query runs the pipeline: classify, retrieve, merge, generate, validate.
func (s *GraphRAGService) Query(ctx context.Context, question string, useHybrid bool, topK int) (*QueryResponse, error) {
	start := time.Now()

	queryType := s.classifier.Classify(ctx, question)
	reasoningSteps := []string{fmt.Sprintf("Query classified as: %s", queryType)}

	retrieval, err := s.retriever.RetrieveContext(ctx, question, queryType, useHybrid, topK)
	if err != nil {
		s.metrics.RecordQuery(queryType, false, time.Since(start), err)
		return nil, errors.ErrQueryFailed.WithCause(err)
	}
	reasoningSteps = append(reasoningSteps, retrieval.Reasoning...)

	mergedContext, sources := s.retriever.MergeContext(retrieval)
	reasoningSteps = append(reasoningSteps, fmt.Sprintf("Merged context length: %d characters", len(mergedContext)))

	generation, err := s.generator.GenerateAnswer(ctx, question, mergedContext, sources, queryType)
	if err != nil {
		s.metrics.RecordQuery(queryType, false, time.Since(start), err)
		return nil, errors.ErrQueryFailed.WithCause(err)
	}
	reasoningSteps = append(reasoningSteps, generation.Reasoning...)

	var kgContext *KGContext
	if len(retrieval.KGEntities) > 0 || len(retrieval.KGRelations) > 0 {
		kgContext = &KGContext{
			Entities:      retrieval.KGEntities,
			Relations:     retrieval.KGRelations,
			TraversalPath: retrieval.TraversalPath,
		}
	}

	s.metrics.RecordQuery(queryType, generation.Rejected, time.Since(start), nil)
	logger.Infow("query processed",
		"query_type", queryType,
		"confidence", generation.Confidence,
		"rejected", generation.Rejected,
		"sources", len(sources),
		"duration", time.Since(start).String())

	return &QueryResponse{
		Answer:            generation.Answer,
		Confidence:        generation.Confidence,
		Sources:           sources,
		KGContext:         kgContext,
		QueryType:         queryType,
		ReasoningSteps:    reasoningSteps,
		AgentArchitecture: agentArchitecture,
		Timestamp:         time.Now(),
		Rejected:          generation.Rejected,
	}, nil
}

// IngestDocument ingests raw document text.
func (s *GraphRAGService) IngestDocument(ctx context.Context, documentID, text string, metadata map[string]any) (*IngestResult, error) {
	result, err := s.indexer.IngestDocument(ctx, documentID, text, metadata)
	if err != nil {
		s.metrics.RecordIngest(0, err)
		return nil, err
	}
	s.metrics.RecordIngest(result.ChunksCreated, nil)
	return result, nil
}

// DeleteDocument removes a document from the vector index.
func (s *GraphRAGService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := s.indexer.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordDelete()
	return deleted, nil
}

// EntityPath finds the shortest path between two entities in the graph.
func (s *GraphRAGService) EntityPath(ctx context.Context, source, target string, maxDepth int) (*EntityPath, error) {
	if maxDepth <= 0 {
		maxDepth = s.kgMaxDepth
	}
	nodes, err := s.graph.ShortestPath(ctx, source, target, maxDepth)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		return nil, errors.ErrPathNotFound
	}
	return &EntityPath{Source: source, Target: target, Nodes: nodes}, nil
}

// Health checks backend readiness. The service is healthy only when every
// backend is ready, degraded otherwise.
func (s *GraphRAGService) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{LLMServiceReady: true}

	if vstats, err := s.vectorIndex.Stats(ctx); err == nil {
		status.VectorStoreReady = true
		status.TotalChunks = vstats.TotalVectors
	} else {
		logger.Warnw("vector store health check failed", "error", err.Error())
	}

	if s.graph.Available() {
		if gstats, err := s.graph.Stats(ctx); err == nil {
			status.KGStoreReady = true
			status.TotalEntities = gstats.TotalNodes
		} else {
			logger.Warnw("graph health check failed", "error", err.Error())
		}
	}

	if status.VectorStoreReady && status.KGStoreReady && status.LLMServiceReady {
		status.Status = "healthy"
	} else {
		status.Status = "degraded"
	}
	return status, nil
}

// Stats returns backend statistics plus pipeline counters.
func (s *GraphRAGService) Stats(ctx context.Context) (*Stats, error) {
	vstats, err := s.vectorIndex.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{VectorStore: vstats, Pipeline: s.metrics.Snapshot()}
	if s.graph.Available() {
		gstats, err := s.graph.Stats(ctx)
		if err != nil {
			logger.Warnw("graph stats unavailable", "error", err.Error())
		} else {
			stats.Graph = gstats
		}
	}
	return stats, nil
}
