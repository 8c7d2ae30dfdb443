package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/pkg/llm"
)

// embedBatchSize is the maximum number of texts sent to the provider per call.
const embedBatchSize = 100

// EmbedderConfig configures the embedding gateway.
type EmbedderConfig struct {
	// Dimension is the expected embedding dimension, used to build
	// zero-vector fallbacks when the provider fails.
	Dimension int
}

// Embedder batches texts through an embedding provider. Provider failures on
// a batch degrade to zero vectors instead of failing the whole request, so
// the output always has one vector per input text, in input order.
type Embedder struct {
	provider llm.EmbeddingProvider
	config   *EmbedderConfig
}

// NewEmbedder creates an embedding gateway.
func NewEmbedder(provider llm.EmbeddingProvider, config *EmbedderConfig) *Embedder {
	return &Embedder{provider: provider, config: config}
}

// Embed returns one embedding per input text. Failed batches are filled with
// zero vectors of the configured dimension.
func (e *Embedder) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := e.provider.Embed(ctx, batch)
		if err != nil || len(vectors) != len(batch) {
			if err != nil {
				logger.Warnw("embedding batch failed, using zero vectors",
					"provider", e.provider.Name(),
					"batch_start", start,
					"batch_size", len(batch),
					"error", err.Error())
			} else {
				logger.Warnw("embedding batch returned wrong count, using zero vectors",
					"provider", e.provider.Name(),
					"expected", len(batch),
					"got", len(vectors))
			}
			for range batch {
				out = append(out, make([]float32, e.config.Dimension))
			}
			continue
		}
		out = append(out, vectors...)
	}
	return out
}

// EmbedSingle embeds one text, degrading to a zero vector on failure.
func (e *Embedder) EmbedSingle(ctx context.Context, text string) []float32 {
	return e.Embed(ctx, []string{text})[0]
}
