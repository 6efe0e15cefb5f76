package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
)

const noContextMarker = "no relevant documentation"

// Completer is a deterministic stub for ai.Completer.
// It allows custom behavior injection via function fields.
type Completer struct {
	// CompleteFunc is called by Complete if set.
	// If nil, uses default templated behavior.
	CompleteFunc func(ctx context.Context, messages []ai.ChatMessage) (*ai.Completion, error)

	// SummarizeFunc is called by Summarize if set.
	// If nil, uses default templated behavior.
	SummarizeFunc func(ctx context.Context, transcript string) (string, error)

	model     string
	callCount atomic.Int64
}

// NewCompleter creates a stub completer reporting the given model name.
//
// Note: returns the concrete type so tests can reach CallCount and the
// injection fields.
func NewCompleter(model string) *Completer {
	if model == "" {
		model = "stub-chat"
	}
	return &Completer{model: model}
}

// Complete generates a templated response derived from the last user
// message. When the system prompt carries the no-documentation marker, the
// response recommends human follow-up instead of citing the knowledge base.
func (m *Completer) Complete(ctx context.Context, messages []ai.ChatMessage) (*ai.Completion, error) {
	m.callCount.Add(1)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}

	lastUser := "your question"
	hasContext := false
	promptWords := 0
	for _, msg := range messages {
		promptWords += len(strings.Fields(msg.Content))
		switch msg.Role {
		case core.RoleUser:
			lastUser = msg.Content
		case core.RoleSystem:
			lower := strings.ToLower(msg.Content)
			if strings.Contains(lower, "context") && !strings.Contains(lower, noContextMarker) {
				hasContext = true
			}
		}
	}
	// Truncate by runes so a multi-byte character is never split.
	if runes := []rune(lastUser); len(runes) > 80 {
		lastUser = string(runes[:80])
	}

	var content string
	if hasContext {
		content = fmt.Sprintf(
			"Based on the available documentation, here's what I found regarding "+
				"your question about '%s':\n\n"+
				"The documentation indicates that this topic is covered in our knowledge base. "+
				"The relevant information suggests a resolution is available.\n\n"+
				"**Key points:**\n"+
				"1. This is addressed in our documentation\n"+
				"2. The recommended approach follows best practices\n"+
				"3. Please let me know if you need more specific details\n\n"+
				"Is there anything else I can help you with?",
			lastUser,
		)
	} else {
		content = fmt.Sprintf(
			"I understand you're asking about '%s'. "+
				"I don't have specific documentation on this topic in my knowledge base. "+
				"I'd recommend checking our help center or reaching out to a human agent "+
				"for more detailed assistance.",
			lastUser,
		)
	}

	// Rough word-based token estimate, matching no particular tokenizer.
	completionTokens := len(strings.Fields(content)) * 2
	promptTokens := promptWords * 2

	return &ai.Completion{
		Content: content,
		Model:   m.model,
		Usage: ai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// Summarize returns a short templated summary of the transcript.
func (m *Completer) Summarize(ctx context.Context, transcript string) (string, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, transcript)
	}

	turns := strings.Count(transcript, "\n") + 1
	return fmt.Sprintf(
		"The conversation spans %d turns between a customer and the support assistant. "+
			"The customer asked product questions and the assistant answered from the documentation. "+
			"No unresolved questions remain.",
		turns,
	), nil
}

// CallCount returns the number of times any completion method was called.
func (m *Completer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *Completer) Reset() {
	m.callCount.Store(0)
	m.CompleteFunc = nil
	m.SummarizeFunc = nil
}
