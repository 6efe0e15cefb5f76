package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/groundwork/core"
)

const (
	noContextMarker = "No relevant documentation found."
	noSummaryMarker = "No previous conversation summary."
)

const systemPromptTemplate = `You are a helpful AI customer support assistant. Your role is to help customers
by answering their questions using the provided context from the company's documentation.

Rules:
- Only answer based on the provided context. If the context doesn't contain relevant information, say so.
- Be concise and professional.
- Cite your sources when possible by referencing the document section.
- If you're not confident in your answer, mention that a human agent might provide better assistance.

Context from documentation:
%s

Previous conversation summary:
%s`

// buildSystemPrompt renders the system prompt, substituting markers when
// there is no context or summary so the model is told explicitly rather
// than shown an empty section.
func buildSystemPrompt(contextText, summary string) string {
	if contextText == "" {
		contextText = noContextMarker
	}
	if summary == "" {
		summary = noSummaryMarker
	}
	return fmt.Sprintf(systemPromptTemplate, contextText, summary)
}

// buildContext formats retrieval results into the numbered source blocks
// referenced by the system prompt's citation rule.
func buildContext(results []*core.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, result := range results {
		sourceInfo := ""
		if section, ok := result.Metadata["section"].(string); ok && section != "" {
			sourceInfo = fmt.Sprintf(" (Section: %s)", section)
		}
		parts = append(parts, fmt.Sprintf("[Source %d%s] (relevance: %.2f)\n%s",
			i+1, sourceInfo, result.Score, result.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// extractSources converts retrieval results into citations stored on the
// assistant message.
func extractSources(results []*core.RetrievalResult) []core.Source {
	if len(results) == 0 {
		return nil
	}
	sources := make([]core.Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, core.Source{
			ChunkID:    result.ChunkID,
			DocumentID: result.DocumentID,
			Score:      round3(result.Score),
			Preview:    preview(result.Content, 200),
			Metadata:   result.Metadata,
		})
	}
	return sources
}

// calculateConfidence derives a confidence score from retrieval quality.
// No results means zero confidence. A single result's score is used
// directly; multiple results are combined with harmonic weights so the top
// result dominates.
func calculateConfidence(results []*core.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	if len(results) == 1 {
		return results[0].Score
	}

	var weighted, totalWeight float64
	for i, result := range results {
		w := 1.0 / float64(i+1)
		weighted += result.Score * w
		totalWeight += w
	}
	return round3(weighted / totalWeight)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
