// Package biz provides the business logic layer of the GraphRAG service.
//
// The package is split into cooperating components:
//   - Embedder: batched embedding gateway over an LLM embedding provider
//   - Classifier: query type classification (factual / relational / reasoning)
//   - Retriever: dual-source retrieval (vector index + knowledge graph) and context merging
//   - Guard: answer confidence scoring and rejection policy
//   - Generator: answer generation with rejection handling
//   - Indexer: document ingestion and deletion
//   - Service: composes the above into the full query pipeline
package biz
