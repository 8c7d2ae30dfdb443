package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/pkg/textutil"
)

// RejectionMessage is the standard answer returned when a response is
// rejected as insufficiently grounded.
const RejectionMessage = "I cannot provide a confident answer based on the available information. The retrieved context does not contain sufficient details to answer this question accurately."

// highQualityScore is the source score above which a source is trusted over
// the model's own uncertainty.
const highQualityScore = 0.7

// rejectionPhrases mark answers in which the model expressed uncertainty.
var rejectionPhrases = []string{
	"i cannot answer",
	"i don't know",
	"not enough information",
	"cannot determine",
	"unclear from the context",
	"insufficient information",
}

// GuardConfig configures the hallucination guard.
type GuardConfig struct {
	// ConfidenceThreshold is the minimum confidence below which answers
	// from ordinary sources are rejected.
	ConfidenceThreshold float64
	// MinContextLength is the minimum context size (in bytes) required to
	// attempt an answer at all.
	MinContextLength int
}

// Validation is the outcome of scoring an answer against its context.
type Validation struct {
	IsValid        bool               `json:"is_valid"`
	Confidence     float64            `json:"confidence"`
	Reasoning      string             `json:"reasoning"`
	NeedsRejection bool               `json:"needs_rejection"`
	Factors        map[string]float64 `json:"factors"`
}

// Guard scores generated answers for groundedness and decides whether they
// should be rejected.
type Guard struct {
	config *GuardConfig
}

// NewGuard creates a hallucination guard.
func NewGuard(config *GuardConfig) *Guard {
	return &Guard{config: config}
}

// HasRejectionPhrase reports whether the answer contains a phrase expressing
// uncertainty.
func HasRejectionPhrase(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range rejectionPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// sourceScore returns the best of the two score fields carried by a source.
func sourceScore(s *Source) float64 {
	if s.SimilarityScore > s.Score {
		return s.SimilarityScore
	}
	return s.Score
}

// factorNames lists the confidence factors in computation order, for
// deterministic rendering in reasoning traces.
var factorNames = []string{
	"context_length",
	"source_count",
	"source_quality",
	"answer_length",
	"has_rejection",
	"text_overlap",
}

// ValidateAnswer computes a weighted confidence score from six factors and
// applies the rejection policy. A source scoring above highQualityScore
// shifts the weighting toward source quality and overrides uncertainty
// expressed by the model.
func (g *Guard) ValidateAnswer(answer, context string, sources []*Source) *Validation {
	hasRejection := HasRejectionPhrase(answer)

	factors := make(map[string]float64, 6)

	factors["context_length"] = minf(1.0, float64(len(context))/float64(g.config.MinContextLength*2))
	factors["source_count"] = minf(1.0, float64(len(sources))/5.0)

	var maxScore float64
	if len(sources) > 0 {
		var sum float64
		for _, s := range sources {
			score := sourceScore(s)
			sum += score
			if score > maxScore {
				maxScore = score
			}
		}
		avg := sum / float64(len(sources))
		if maxScore > highQualityScore {
			// Trust the best source when quality is high.
			avg = maxScore
		}
		factors["source_quality"] = avg
	} else {
		factors["source_quality"] = 0.0
	}

	factors["answer_length"] = minf(1.0, float64(len(answer))/100.0)

	if hasRejection {
		factors["has_rejection"] = 0.2
	} else {
		factors["has_rejection"] = 1.0
	}

	factors["text_overlap"] = textutil.TextOverlap(answer, context)

	highQuality := maxScore > highQualityScore

	weights := map[string]float64{
		"context_length": 0.1,
		"source_count":   0.1,
		"source_quality": 0.3,
		"answer_length":  0.1,
		"has_rejection":  0.2,
		"text_overlap":   0.2,
	}
	if highQuality {
		weights = map[string]float64{
			"context_length": 0.05,
			"source_count":   0.05,
			"source_quality": 0.6,
			"answer_length":  0.05,
			"has_rejection":  0.1,
			"text_overlap":   0.15,
		}
	}

	var confidence float64
	for name, score := range factors {
		confidence += weights[name] * score
	}
	confidence = clampf(confidence, 0.0, 1.0)

	needsRejection := (confidence < g.config.ConfidenceThreshold && !highQuality) ||
		(hasRejection && !highQuality) ||
		len(context) < g.config.MinContextLength

	if highQuality {
		if hasRejection {
			// Trust the source over the model's uncertainty.
			needsRejection = false
		}
		confidence = maxf(confidence, maxf(maxScore*0.7, 0.6))
		logger.Debugw("high-quality source, boosted confidence",
			"max_score", maxScore, "confidence", confidence)
	}

	return &Validation{
		IsValid:        !needsRejection,
		Confidence:     confidence,
		Reasoning:      fmt.Sprintf("Confidence: %.2f. Factors: %v", confidence, factors),
		NeedsRejection: needsRejection,
		Factors:        factors,
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
