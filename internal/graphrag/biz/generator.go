package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/pkg/llm"
)

const strictSystemPrompt = `You are a confident question-answering assistant. Answer questions based on the provided context.

IMPORTANT: You MUST answer the question if the context contains relevant information. Do NOT say "I cannot answer" unless the context is completely empty or irrelevant.

RULES:
1. Answer directly using information from the provided context
2. Extract key facts and provide a clear, confident answer
3. Be concise but complete
4. Only express uncertainty if the context truly has NO relevant information

Examples:
- Context: "John Smith works at Tech Corp"
  Question: "Where does John work?"
  Answer: "John Smith works at Tech Corp"

- Context: "Sarah Johnson is the CEO of Tech Corp"
  Question: "Who is the CEO?"
  Answer: "Sarah Johnson is the CEO of Tech Corp"

Always provide an answer when context is available. Never default to "I cannot answer" if context exists.`

const relaxedSystemPrompt = `You are a helpful question-answering assistant. Answer the user's question based on the provided context. Be accurate and concise.`

const answerPromptTemplate = `Based on the following context, answer the question directly and confidently.

Context:
%s

Question: %s

Instructions:
- If the context contains information relevant to the question, provide a direct answer
- Extract the key information from the context
- Be specific and factual
- Do NOT say "I cannot answer" if the context has relevant information

Answer:`

// uncertaintyPhrases flag generated answers that hedge despite context being
// available, triggering extraction from the context itself.
var uncertaintyPhrases = []string{"cannot provide", "cannot answer", "insufficient", "i cannot", "i don't know"}

// Completion parameters for answer generation.
const (
	generateTemperature = 0.1
	generateMaxTokens   = 1000
)

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	// MinContextLength is the minimum context size needed to attempt an answer.
	MinContextLength int
	// ConfidenceThreshold is echoed into reasoning when answers are retained
	// below threshold.
	ConfidenceThreshold float64
	// Strict selects the anti-hedging system prompt. The relaxed prompt is
	// only useful for debugging prompt behavior.
	Strict bool
}

// GenerationResult is the outcome of one answer generation.
type GenerationResult struct {
	Answer     string
	Confidence float64
	Validation *Validation
	Reasoning  []string
	Rejected   bool
}

// Generator produces answers from merged context and applies the rejection
// policy against the guard's validation.
type Generator struct {
	chat   llm.ChatProvider
	guard  *Guard
	config *GeneratorConfig
}

// NewGenerator creates an answer generator.
func NewGenerator(chat llm.ChatProvider, guard *Guard, config *GeneratorConfig) *Generator {
	return &Generator{chat: chat, guard: guard, config: config}
}

// GenerateAnswer generates, validates and possibly rejects an answer.
//
// Empty or too-short context short-circuits to the rejection message. A
// high-quality source (score above 0.7) is trusted over the model: the
// answer is never rejected, confidence is floored at 70% of the best source
// score, and hedged answers are replaced with a sentence extracted from the
// context. Otherwise answers failing validation with confidence below 0.3
// are rejected, and retained (flagged but kept) above it.
func (g *Generator) GenerateAnswer(ctx context.Context, question, context0 string, sources []*Source, queryType string) (*GenerationResult, error) {
	var reasoning []string

	if len(strings.TrimSpace(context0)) < g.config.MinContextLength {
		reasoning = append(reasoning, "Insufficient context - rejecting answer")
		return &GenerationResult{
			Answer:     RejectionMessage,
			Confidence: 0.0,
			Validation: &Validation{NeedsRejection: true, Reasoning: "Insufficient context"},
			Reasoning:  reasoning,
			Rejected:   true,
		}, nil
	}

	reasoning = append(reasoning, "Generating answer using LLM")
	systemPrompt := strictSystemPrompt
	if !g.config.Strict {
		systemPrompt = relaxedSystemPrompt
	}
	answer, err := g.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(answerPromptTemplate, context0, question)},
	}, llm.WithTemperature(generateTemperature), llm.WithMaxTokens(generateMaxTokens))
	if err != nil {
		return nil, err
	}

	reasoning = append(reasoning, "Validating answer quality")
	validation := g.guard.ValidateAnswer(answer, context0, sources)
	reasoning = append(reasoning, fmt.Sprintf("Confidence score: %.2f", validation.Confidence))
	reasoning = append(reasoning, fmt.Sprintf("Validation factors: [%s]", strings.Join(factorNames, ", ")))

	var maxSourceScore float64
	for _, s := range sources {
		if score := sourceScore(s); score > maxSourceScore {
			maxSourceScore = score
		}
	}
	highQuality := maxSourceScore > highQualityScore

	rejected := false
	switch {
	case highQuality:
		// Trust the source over the model's uncertainty.
		if validation.Confidence < maxSourceScore*0.7 {
			validation.Confidence = maxSourceScore * 0.7
			reasoning = append(reasoning, fmt.Sprintf(
				"High-quality source detected (%.1f%%) - confidence boosted to %.1f%%",
				maxSourceScore*100, validation.Confidence*100))
		}
		if hasUncertaintyPhrase(answer) {
			reasoning = append(reasoning, fmt.Sprintf(
				"LLM generated uncertainty phrase but high-quality source (%.1f%%) overrides - extracting answer from context",
				maxSourceScore*100))
			if extracted, ok := extractAnswerFromContext(question, context0); ok {
				answer = extracted
				reasoning = append(reasoning, "Answer extracted from high-quality source context")
			}
		}
	case validation.NeedsRejection && validation.Confidence < 0.3:
		answer = RejectionMessage
		validation.Confidence = 0.0
		rejected = true
		reasoning = append(reasoning, "Answer rejected due to low confidence and low source quality")
	case validation.NeedsRejection:
		reasoning = append(reasoning, fmt.Sprintf(
			"Answer retained despite confidence below threshold (confidence: %.2f, threshold: %.2f)",
			validation.Confidence, g.config.ConfidenceThreshold))
	}

	logger.Debugw("answer generated",
		"query_type", queryType,
		"confidence", validation.Confidence,
		"rejected", rejected)

	return &GenerationResult{
		Answer:     answer,
		Confidence: validation.Confidence,
		Validation: validation,
		Reasoning:  reasoning,
		Rejected:   rejected,
	}, nil
}

func hasUncertaintyPhrase(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// extractAnswerFromContext picks the context sentence sharing the most
// question terms; ties go to the earliest match. Falls back to the first
// substantial sentence.
func extractAnswerFromContext(question, context string) (string, bool) {
	var questionWords []string
	for _, w := range strings.Fields(question) {
		if len(w) > 3 {
			questionWords = append(questionWords, strings.ToLower(w))
		}
	}

	var sentences []string
	for _, s := range strings.Split(context, ".") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	var (
		best      string
		bestScore int
	)
	for _, sentence := range sentences {
		lowered := strings.ToLower(sentence)
		score := 0
		for _, word := range questionWords {
			if strings.Contains(lowered, word) {
				score++
			}
		}
		if score > bestScore && len(sentence) > 20 {
			bestScore = score
			best = sentence
		}
	}
	if best != "" {
		if !strings.HasSuffix(best, ".") {
			best += "."
		}
		return best, true
	}

	for _, sentence := range sentences {
		if len(sentence) > 30 {
			return sentence + ".", true
		}
	}
	return "", false
}
