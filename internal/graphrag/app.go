package graphrag

import (
	"github.com/kart-io/graphrag/pkg/app"

	// Register LLM providers
	_ "github.com/kart-io/graphrag/pkg/llm/ollama"
	_ "github.com/kart-io/graphrag/pkg/llm/openai"
)

const (
	appName        = "graphrag"
	appDescription = `GraphRAG Service

Hybrid question answering combining vector retrieval with a knowledge graph.

This server provides:
  - Document ingestion with chunking, embeddings and entity extraction
  - Query classification (factual / relational / reasoning)
  - Dual-source retrieval from a vector index and Neo4j
  - Hallucination-guarded answer generation with confidence scoring`
)

// NewApp creates the GraphRAG application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}
