package biz

import (
	"context"
	goerrors "errors"

	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/llm"
)

// === Mock implementations ===

// mockChatProvider scripts chat completions for pipeline tests. When
// responses is set, calls consume it in order; afterwards response is used.
type mockChatProvider struct {
	response     string
	responses    []string
	err          error
	lastMessages []llm.Message
	calls        int
}

func (m *mockChatProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (string, error) {
	m.calls++
	m.lastMessages = messages
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		return next, nil
	}
	return m.response, nil
}

func (m *mockChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, opts ...llm.CallOption) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockChatProvider) Name() string { return "mock-chat" }

var _ llm.ChatProvider = (*mockChatProvider)(nil)

// mockEmbeddingProvider returns a fixed embedding per text.
type mockEmbeddingProvider struct {
	embedding []float32
	err       error
	failAfter int // fail batches once this many calls happened; 0 disables
	calls     int
}

func (m *mockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.failAfter > 0 && m.calls > m.failAfter {
		return nil, goerrors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.embedding
	}
	return out, nil
}

func (m *mockEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbeddingProvider) Name() string { return "mock-embed" }

var _ llm.EmbeddingProvider = (*mockEmbeddingProvider)(nil)

// mockVectorIndex serves canned search hits and records writes.
type mockVectorIndex struct {
	hits       []*store.SearchHit
	searchErr  error
	addErr     error
	added      []*store.Chunk
	deleted    int
	deleteErr  error
	statsErr   error
	totalCount int64
}

func (m *mockVectorIndex) Add(ctx context.Context, chunks []*store.Chunk, embeddings [][]float32) ([]string, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	m.added = append(m.added, chunks...)
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	return ids, nil
}

func (m *mockVectorIndex) Search(ctx context.Context, embedding []float32, topK int) ([]*store.SearchHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockVectorIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleted, nil
}

func (m *mockVectorIndex) Stats(ctx context.Context) (*store.VectorStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return &store.VectorStats{TotalVectors: m.totalCount, Dimension: 4, IndexType: "mock"}, nil
}

func (m *mockVectorIndex) Close(ctx context.Context) error { return nil }

var _ store.VectorIndex = (*mockVectorIndex)(nil)

// mockGraphStore serves canned graph neighborhoods.
type mockGraphStore struct {
	available      bool
	entities       []*store.Entity
	relations      []*store.Relation
	neighborErr    error
	matchedNames   []string
	matchErr       error
	lastRoots      []string
	pathNodes      []store.PathNode
	entityCount    int64
	addedEntities  []*store.Entity
	addedRelations []*store.Relation
}

func (m *mockGraphStore) AddEntities(ctx context.Context, entities []*store.Entity) (int, error) {
	m.addedEntities = append(m.addedEntities, entities...)
	return len(entities), nil
}

func (m *mockGraphStore) AddRelations(ctx context.Context, relations []*store.Relation) (int, error) {
	m.addedRelations = append(m.addedRelations, relations...)
	return len(relations), nil
}

func (m *mockGraphStore) Neighborhood(ctx context.Context, names []string, maxDepth, maxResults int) ([]*store.Entity, []*store.Relation, error) {
	m.lastRoots = names
	if m.neighborErr != nil {
		return nil, nil, m.neighborErr
	}
	return m.entities, m.relations, nil
}

func (m *mockGraphStore) MatchEntityNames(ctx context.Context, text string) ([]string, error) {
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	return m.matchedNames, nil
}

func (m *mockGraphStore) ShortestPath(ctx context.Context, source, target string, maxDepth int) ([]store.PathNode, error) {
	return m.pathNodes, nil
}

func (m *mockGraphStore) Stats(ctx context.Context) (*store.GraphStats, error) {
	return &store.GraphStats{TotalNodes: m.entityCount}, nil
}

func (m *mockGraphStore) Available() bool { return m.available }

func (m *mockGraphStore) Close(ctx context.Context) error { return nil }

var _ store.GraphStore = (*mockGraphStore)(nil)
