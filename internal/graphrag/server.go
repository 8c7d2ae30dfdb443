package graphrag

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/router"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/errors"
	"github.com/kart-io/graphrag/pkg/llm"
	pipelineopts "github.com/kart-io/graphrag/pkg/options/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Run starts the GraphRAG server with the given options and blocks until
// shutdown.
func Run(opts *Options) error {
	// 1. Initialize logging
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting graphrag service...")

	// 2. Initialize LLM providers
	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return errors.ErrProviderUnavailable.WithCause(err)
	}
	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return errors.ErrProviderUnavailable.WithCause(err)
	}
	logger.Infow("LLM providers initialized",
		"embedding", embedProvider.Name(), "chat", chatProvider.Name())

	// 3. Initialize vector index
	vectorIndex, err := newVectorIndex(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}
	logger.Infow("Vector index initialized", "engine", opts.Pipeline.VectorEngine)

	// 4. Initialize knowledge graph
	graph, err := store.NewNeo4jGraph(opts.Neo4j)
	if err != nil {
		return fmt.Errorf("failed to initialize knowledge graph: %w", err)
	}
	if graph.Available() {
		logger.Infow("Knowledge graph connected", "uri", opts.Neo4j.URI)
	}

	// 5. Initialize business layer
	svc := biz.NewGraphRAGService(vectorIndex, graph, embedProvider, chatProvider, &biz.ServiceConfig{
		EmbedderConfig: &biz.EmbedderConfig{
			Dimension: opts.Pipeline.EmbeddingDim,
		},
		RetrieverConfig: &biz.RetrieverConfig{
			TopKVector: opts.Pipeline.TopKVector,
			TopKKG:     opts.Pipeline.TopKKG,
			KGMaxDepth: opts.Pipeline.KGMaxDepth,
		},
		GuardConfig: &biz.GuardConfig{
			ConfidenceThreshold: opts.Pipeline.ConfidenceThreshold,
			MinContextLength:    opts.Pipeline.MinContextLength,
		},
		GeneratorConfig: &biz.GeneratorConfig{
			MinContextLength:    opts.Pipeline.MinContextLength,
			ConfidenceThreshold: opts.Pipeline.ConfidenceThreshold,
			Strict:              true,
		},
		IndexerConfig: &biz.IndexerConfig{
			ChunkSize:    opts.Pipeline.ChunkSize,
			ChunkOverlap: opts.Pipeline.ChunkOverlap,
		},
	})
	logger.Info("Business layer initialized")

	// 6. Initialize HTTP server and routes
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, svc)

	server := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	// 7. Run until signalled, then shut down gracefully
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", opts.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infow("Shutting down...", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err.Error())
	}
	if err := vectorIndex.Close(ctx); err != nil {
		logger.Errorw("Vector index close failed", "error", err.Error())
	}
	if err := graph.Close(ctx); err != nil {
		logger.Errorw("Knowledge graph close failed", "error", err.Error())
	}
	logger.Info("Shutdown complete")
	return nil
}

// newVectorIndex builds the configured vector index backend.
func newVectorIndex(opts *Options) (store.VectorIndex, error) {
	switch opts.Pipeline.VectorEngine {
	case pipelineopts.EngineMilvus:
		return store.NewMilvusIndex(opts.Milvus, opts.Pipeline.EmbeddingDim)
	default:
		return store.NewFlatIndex(opts.Pipeline.IndexPath, opts.Pipeline.EmbeddingDim)
	}
}
