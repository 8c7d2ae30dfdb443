package biz

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/llm"
)

func TestClassifyValidLLMOutput(t *testing.T) {
	chat := &mockChatProvider{response: "relational"}
	classifier := NewClassifier(chat)

	got := classifier.Classify(context.Background(), "Who works with Alice?")

	assert.Equal(t, QueryTypeRelational, got)
}

func TestClassifyNormalizesLLMOutput(t *testing.T) {
	chat := &mockChatProvider{response: "  Reasoning \n"}
	classifier := NewClassifier(chat)

	got := classifier.Classify(context.Background(), "Why did the project fail?")

	assert.Equal(t, QueryTypeReasoning, got)
}

func TestClassifyInvalidOutputFallsBackToKeywords(t *testing.T) {
	chat := &mockChatProvider{response: "I think this is about facts."}
	classifier := NewClassifier(chat)

	got := classifier.Classify(context.Background(), "What is related to the main topic?")

	assert.Equal(t, QueryTypeRelational, got)
}

func TestClassifyLLMErrorFallsBackToKeywords(t *testing.T) {
	chat := &mockChatProvider{err: goerrors.New("provider down")}
	classifier := NewClassifier(chat)

	tests := []struct {
		query string
		want  string
	}{
		{"What is the relationship between A and B?", QueryTypeRelational},
		{"Who is connected to the board?", QueryTypeRelational},
		{"Why does the system use caching?", QueryTypeReasoning},
		{"Compare approach A and approach B", QueryTypeReasoning},
		{"What is the capital of France?", QueryTypeFactual},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifier.Classify(context.Background(), tt.query), "query=%q", tt.query)
	}
}

func TestClassifySendsSystemPrompt(t *testing.T) {
	chat := &mockChatProvider{response: "factual"}
	classifier := NewClassifier(chat)

	classifier.Classify(context.Background(), "What is Go?")

	require.Len(t, chat.lastMessages, 2)
	assert.Equal(t, llm.RoleSystem, chat.lastMessages[0].Role)
	assert.Contains(t, chat.lastMessages[0].Content, "query classifier")
	assert.Equal(t, "Question: What is Go?\nType:", chat.lastMessages[1].Content)
}
