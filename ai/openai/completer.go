package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const summarySystemPrompt = "You are a concise summarizer. Summarize the following conversation " +
	"in 2-3 sentences, capturing the key topics and any unresolved questions."

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	llm          llms.Model
	chatModel    string
	summaryModel string
	logger       *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Completer{
		llm:          client,
		chatModel:    config.ChatModel,
		summaryModel: config.SummaryModel,
		logger:       slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete generates a response to the given message sequence.
func (c *Completer) Complete(ctx context.Context, messages []ai.ChatMessage) (*ai.Completion, error) {
	return c.generate(ctx, messages, c.chatModel, 0.3, 1024)
}

// Summarize condenses a conversation transcript using the smaller summary
// model.
func (c *Completer) Summarize(ctx context.Context, transcript string) (string, error) {
	messages := []ai.ChatMessage{
		{Role: core.RoleSystem, Content: summarySystemPrompt},
		{Role: core.RoleUser, Content: transcript},
	}

	completion, err := c.generate(ctx, messages, c.summaryModel, 0.2, 256)
	if err != nil {
		return "", err
	}
	return completion.Content, nil
}

func (c *Completer) generate(ctx context.Context, messages []ai.ChatMessage, model string, temperature float64, maxTokens int) (*ai.Completion, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		c.logger.Error("completion failed", "model", model, "err", err)
		return nil, err
	}
	if len(response.Choices) == 0 {
		c.logger.Warn("completion returned no choices", "model", model)
		return &ai.Completion{Model: model}, nil
	}

	choice := response.Choices[0]
	usage := ai.Usage{
		PromptTokens:     generationInfoInt(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: generationInfoInt(choice.GenerationInfo, "CompletionTokens"),
		TotalTokens:      generationInfoInt(choice.GenerationInfo, "TotalTokens"),
	}

	c.logger.Debug("completion generated",
		"model", model,
		"promptTokens", usage.PromptTokens,
		"completionTokens", usage.CompletionTokens,
	)

	return &ai.Completion{
		Content: choice.Content,
		Model:   model,
		Usage:   usage,
	}, nil
}

func messageType(role core.Role) llms.ChatMessageType {
	switch role {
	case core.RoleSystem:
		return llms.ChatMessageTypeSystem
	case core.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func generationInfoInt(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	if v, ok := info[key].(int); ok {
		return v
	}
	return 0
}
