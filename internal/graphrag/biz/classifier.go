package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/pkg/llm"
)

// Query types produced by the classifier.
const (
	QueryTypeFactual    = "factual"
	QueryTypeRelational = "relational"
	QueryTypeReasoning  = "reasoning"
)

const classifySystemPrompt = `You are a query classifier. Classify the user's question into one of these types:
- "factual": Questions asking for facts, definitions, or information about entities
- "relational": Questions asking about relationships between entities (who works with, what is related to)
- "reasoning": Questions requiring multi-step reasoning, comparisons, or complex logic

Respond with ONLY the type name (factual, relational, or reasoning).`

var (
	relationalKeywords = []string{"relationship", "related", "connected", "works with", "associated"}
	reasoningKeywords  = []string{"why", "how", "compare", "difference", "explain"}
)

// Classifier assigns a query type to incoming questions. Classification never
// fails: LLM errors and unrecognized outputs fall back to keyword heuristics.
type Classifier struct {
	chat llm.ChatProvider
}

// NewClassifier creates a query classifier.
func NewClassifier(chat llm.ChatProvider) *Classifier {
	return &Classifier{chat: chat}
}

// Classify returns one of QueryTypeFactual, QueryTypeRelational or
// QueryTypeReasoning for the given query.
func (c *Classifier) Classify(ctx context.Context, query string) string {
	prompt := fmt.Sprintf("Question: %s\nType:", query)
	raw, err := c.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: classifySystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.WithTemperature(0.1), llm.WithMaxTokens(10))
	if err != nil {
		logger.Warnw("query classification failed, falling back to keywords", "error", err.Error())
		return classifyByKeywords(query)
	}

	queryType := strings.ToLower(strings.TrimSpace(raw))
	switch queryType {
	case QueryTypeFactual, QueryTypeRelational, QueryTypeReasoning:
		return queryType
	}

	logger.Debugw("unrecognized classifier output, falling back to keywords", "output", raw)
	return classifyByKeywords(query)
}

// classifyByKeywords is the heuristic fallback used when the LLM is
// unavailable or returns an invalid type.
func classifyByKeywords(query string) string {
	lowered := strings.ToLower(query)
	for _, kw := range relationalKeywords {
		if strings.Contains(lowered, kw) {
			return QueryTypeRelational
		}
	}
	for _, kw := range reasoningKeywords {
		if strings.Contains(lowered, kw) {
			return QueryTypeReasoning
		}
	}
	return QueryTypeFactual
}
