package textutil

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	// Zero vector stays untouched.
	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 0, SquaredL2([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 2, SquaredL2([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.True(t, math.IsInf(SquaredL2([]float32{1}, []float32{1, 2}), 1))
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("Alice works at Acme. Bob lives in Paris! Where is Carol?")
	require.Len(t, sentences, 3)
	assert.Equal(t, "Alice works at Acme.", sentences[0])
	assert.Equal(t, "Bob lives in Paris!", sentences[1])
	assert.Equal(t, "Where is Carol?", sentences[2])
}

func TestChunkTextSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("This sentence fills the chunk with words. ", 10)
	chunks := ChunkText(text, 100, 20)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		// Chunks close at sentence boundaries, so size can slightly
		// exceed the target plus overlap carry-over.
		assert.LessOrEqual(t, len(c), 100+60)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
	assert.Greater(t, len(chunks), 1)
}

func TestChunkTextOverlapCarry(t *testing.T) {
	text := "First sentence goes here with some length. Second sentence also has length. Third one closes it."
	chunks := ChunkText(text, 60, 20)
	require.Greater(t, len(chunks), 1)

	// The second chunk starts with the tail of the first chunk.
	tail := chunks[0][len(chunks[0])-20:]
	assert.True(t, strings.HasPrefix(chunks[1], strings.TrimSpace(tail)))
}

func TestChunkTextNoSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := ChunkText(text, 100, 20)

	require.Len(t, chunks, 3)
	assert.Equal(t, 100, len(chunks[0]))
	assert.Equal(t, 100, len(chunks[1]))
	assert.Equal(t, 90, len(chunks[2]))
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("   ", 100, 20))
	assert.Nil(t, ChunkText("", 100, 20))
}

func TestSignificantWords(t *testing.T) {
	words := SignificantWords("The cat AND the big dog")
	assert.Contains(t, words, "cat")
	assert.Contains(t, words, "big")
	assert.Contains(t, words, "dog")
	assert.NotContains(t, words, "the") // stop word
	assert.NotContains(t, words, "and") // stop word
}

func TestTextOverlap(t *testing.T) {
	// Identical significant words: full overlap.
	assert.InDelta(t, 1.0, TextOverlap("quantum computing", "quantum computing"), 1e-9)

	// Disjoint words: zero.
	assert.InDelta(t, 0.0, TextOverlap("quantum physics", "cooking recipes"), 1e-9)

	// No significant words in the answer: zero.
	assert.InDelta(t, 0.0, TextOverlap("is a", "anything at all here"), 1e-9)

	// Partial overlap lands strictly between.
	mid := TextOverlap("quantum computing hardware", "quantum computing software")
	assert.Greater(t, mid, 0.0)
	assert.Less(t, mid, 1.0)
}
