// Package textutil provides text processing utilities for retrieval and scoring.
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// NormalizeL2 normalizes a vector to unit length in place.
// Zero vectors are left unchanged.
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// SquaredL2 computes the squared Euclidean distance between two vectors.
// Returns +Inf when lengths differ.
func SquaredL2(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Clamp01 clamps x to the [0, 1] range.
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// SplitSentences splits text on sentence-ending punctuation followed by
// whitespace. The punctuation stays attached to its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		sb.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			// Consume trailing whitespace and close the sentence.
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if j > i+1 || j == len(runes) {
				s := strings.TrimSpace(sb.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				sb.Reset()
				i = j - 1
			}
		}
	}

	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// ChunkText splits text into overlapping chunks, preferring sentence
// boundaries for coherence. Overlap carries the tail of the previous
// chunk into the next one. Falls back to fixed character windows when
// the text has no sentence boundaries.
func ChunkText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	sentences := SplitSentences(text)

	var chunks []string
	var current string
	for _, sentence := range sentences {
		if current != "" && len(current)+len(sentence)+1 > chunkSize {
			chunks = append(chunks, strings.TrimSpace(current))

			overlapText := current
			if len(current) > overlap {
				overlapText = current[len(current)-overlap:]
			}
			current = overlapText + " " + sentence
		} else {
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
		}
	}
	if s := strings.TrimSpace(current); s != "" {
		chunks = append(chunks, s)
	}

	// Single run of text with no sentence breaks: fixed windows.
	if len(chunks) == 0 {
		step := chunkSize - overlap
		for i := 0; i < len(text); i += step {
			end := i + chunkSize
			if end > len(text) {
				end = len(text)
			}
			if c := strings.TrimSpace(text[i:end]); c != "" {
				chunks = append(chunks, c)
			}
			if end == len(text) {
				break
			}
		}
	}

	return chunks
}

var wordRegex = regexp.MustCompile(`\b[a-z]{3,}\b`)

// stopWords are excluded from overlap scoring.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "for": {}, "with": {},
	"from": {}, "this": {}, "that": {}, "was": {}, "were": {}, "are": {},
	"is": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
}

// SignificantWords extracts lowercase words of three or more letters,
// excluding stop words.
func SignificantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range wordRegex.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[w]; !stop {
			words[w] = struct{}{}
		}
	}
	return words
}

// TextOverlap computes the Jaccard similarity between the significant
// words of the answer and the context. Returns 0 when the answer has no
// significant words.
func TextOverlap(answer, context string) float64 {
	answerWords := SignificantWords(answer)
	if len(answerWords) == 0 {
		return 0
	}
	contextWords := SignificantWords(context)

	intersection := 0
	for w := range answerWords {
		if _, ok := contextWords[w]; ok {
			intersection++
		}
	}
	union := len(answerWords) + len(contextWords) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
