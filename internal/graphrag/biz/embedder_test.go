package biz

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedderPreservesOrderAndLength(t *testing.T) {
	provider := &mockEmbeddingProvider{embedding: []float32{0.1, 0.2, 0.3, 0.4}}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	texts := []string{"one", "two", "three"}
	vectors := embedder.Embed(context.Background(), texts)

	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, v)
	}
}

func TestEmbedderFailureFillsZeroVectors(t *testing.T) {
	provider := &mockEmbeddingProvider{err: goerrors.New("backend down")}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	vectors := embedder.Embed(context.Background(), []string{"a", "b"})

	require.Len(t, vectors, 2)
	for _, v := range vectors {
		assert.Equal(t, []float32{0, 0, 0, 0}, v)
	}
}

func TestEmbedderBatchesLargeInputs(t *testing.T) {
	provider := &mockEmbeddingProvider{embedding: []float32{1, 0, 0, 0}}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "text"
	}
	vectors := embedder.Embed(context.Background(), texts)

	require.Len(t, vectors, 250)
	// 250 inputs at batch size 100 means three provider calls.
	assert.Equal(t, 3, provider.calls)
}

func TestEmbedderPartialBatchFailure(t *testing.T) {
	// First batch succeeds, later batches fail and degrade to zeros.
	provider := &mockEmbeddingProvider{embedding: []float32{1, 0, 0, 0}, failAfter: 1}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = "text"
	}
	vectors := embedder.Embed(context.Background(), texts)

	require.Len(t, vectors, 150)
	assert.Equal(t, []float32{1, 0, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 0, 0, 0}, vectors[149])
}

func TestEmbedSingle(t *testing.T) {
	provider := &mockEmbeddingProvider{embedding: []float32{0.5, 0.5, 0, 0}}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	v := embedder.EmbedSingle(context.Background(), "hello")

	assert.Equal(t, []float32{0.5, 0.5, 0, 0}, v)
}

func TestEmbedderEmptyInput(t *testing.T) {
	provider := &mockEmbeddingProvider{embedding: []float32{1, 0, 0, 0}}
	embedder := NewEmbedder(provider, &EmbedderConfig{Dimension: 4})

	vectors := embedder.Embed(context.Background(), nil)

	assert.Empty(t, vectors)
	assert.Zero(t, provider.calls)
}
