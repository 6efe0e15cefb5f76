package ai

import (
	"context"

	"github.com/poiesic/groundwork/core"
)

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts, even if the underlying provider responds out of order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatMessage is a single role-tagged message in a completion prompt.
type ChatMessage struct {
	Role    core.Role
	Content string
}

// Usage reports token consumption for a completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a chat completion call.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Completer generates text from role-tagged message sequences.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete generates a response to the given message sequence.
	Complete(ctx context.Context, messages []ChatMessage) (*Completion, error)

	// Summarize condenses a conversation transcript into a 2-3 sentence
	// summary capturing the key topics and any unresolved questions.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// Completer instances, ensuring they share configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the chat completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
