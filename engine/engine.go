// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retriever"
	"github.com/poiesic/groundwork/storage"
)

const (
	// DefaultSummaryInterval re-summarizes after this many total messages.
	DefaultSummaryInterval = 10
	// DefaultMaxContextMessages bounds the history window in the prompt.
	DefaultMaxContextMessages = 20
	// DefaultConfidenceThreshold is the confidence below which replies
	// carry a verification disclaimer.
	DefaultConfidenceThreshold = 0.5
)

const lowConfidenceDisclaimer = "\n\n⚠️ *I'm not fully confident in this answer based on the available documentation. You may want to verify with a human support agent.*"

// Reply is the outcome of processing one user message.
type Reply struct {
	// Message is the stored assistant message, disclaimer included.
	Message *core.Message
	// Sources cites the chunks the answer was grounded on.
	Sources []core.Source
	// Confidence is the retrieval-derived confidence in [0, 1].
	Confidence float64
	// Retrieved carries the raw retrieval results for callers that want
	// to render previews or debug relevance.
	Retrieved []*core.RetrievalResult
}

// Engine runs the retrieval-augmented conversation flow.
type Engine struct {
	conversations storage.ConversationStore
	messages      storage.MessageStore
	retriever     *retriever.Retriever
	completer     ai.Completer
	countTokens   func(string) int

	summaryInterval     int
	maxContextMessages  int
	confidenceThreshold float64
	logger              *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSummaryInterval sets how many total messages trigger a re-summary.
func WithSummaryInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.summaryInterval = n
		}
	}
}

// WithMaxContextMessages sets the prompt history window.
func WithMaxContextMessages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxContextMessages = n
		}
	}
}

// WithConfidenceThreshold sets the disclaimer threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.confidenceThreshold = threshold
	}
}

// New creates an Engine. countTokens may be nil, in which case token counts
// fall back to word counts.
func New(
	conversations storage.ConversationStore,
	messages storage.MessageStore,
	ret *retriever.Retriever,
	completer ai.Completer,
	countTokens func(string) int,
	opts ...Option,
) *Engine {
	if countTokens == nil {
		countTokens = func(s string) int { return len(strings.Fields(s)) }
	}
	e := &Engine{
		conversations:       conversations,
		messages:            messages,
		retriever:           ret,
		completer:           completer,
		countTokens:         countTokens,
		summaryInterval:     DefaultSummaryInterval,
		maxContextMessages:  DefaultMaxContextMessages,
		confidenceThreshold: DefaultConfidenceThreshold,
		logger:              slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage runs one turn of the conversation: store the user
// message, retrieve context, prompt the model, and store the scored reply.
// Messages to closed or archived conversations are rejected.
func (e *Engine) ProcessMessage(ctx context.Context, tenantID, conversationID uuid.UUID, userMessage string) (*Reply, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, core.ErrEmptyContent
	}

	conv, err := e.conversations.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.AcceptsMessages() {
		return nil, fmt.Errorf("%w: conversation is %s", core.ErrConversationNotActive, conv.Status)
	}

	// History is captured before the new user message is stored so it
	// appears exactly once in the prompt.
	history, err := e.messages.RecentMessages(ctx, tenantID, conversationID, e.maxContextMessages)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	userMsg := &core.Message{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Role:           core.RoleUser,
		Content:        userMessage,
		TokenCount:     e.countTokens(userMessage),
	}
	if err := e.messages.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("storing user message: %w", err)
	}
	if _, err := e.conversations.IncrementMessageCount(ctx, tenantID, conversationID); err != nil {
		return nil, fmt.Errorf("counting user message: %w", err)
	}

	retrieved, err := e.retriever.Retrieve(ctx, tenantID, userMessage)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	chatMessages := make([]ai.ChatMessage, 0, len(history)+2)
	chatMessages = append(chatMessages, ai.ChatMessage{
		Role:    core.RoleSystem,
		Content: buildSystemPrompt(buildContext(retrieved), conv.Summary),
	})
	for _, msg := range history {
		chatMessages = append(chatMessages, ai.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	chatMessages = append(chatMessages, ai.ChatMessage{Role: core.RoleUser, Content: userMessage})

	completion, err := e.completer.Complete(ctx, chatMessages)
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	sources := extractSources(retrieved)
	confidence := calculateConfidence(retrieved)

	content := completion.Content
	if confidence < e.confidenceThreshold {
		content += lowConfidenceDisclaimer
	}

	tokenCount := completion.Usage.CompletionTokens
	if tokenCount == 0 {
		tokenCount = e.countTokens(content)
	}
	assistantMsg := &core.Message{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Role:           core.RoleAssistant,
		Content:        content,
		Sources:        sources,
		Confidence:     &confidence,
		TokenCount:     tokenCount,
	}
	if err := e.messages.AddMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("storing assistant message: %w", err)
	}
	messageCount, err := e.conversations.IncrementMessageCount(ctx, tenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("counting assistant message: %w", err)
	}

	// A failed summary never fails the turn; the next interval retries
	// over the full transcript anyway.
	if messageCount > 0 && messageCount%e.summaryInterval == 0 {
		if _, err := e.SummarizeConversation(ctx, tenantID, conversationID); err != nil {
			e.logger.Warn("summary failed",
				"conversation_id", conversationID,
				"error", err)
		}
	}

	e.logger.Info("message processed",
		"conversation_id", conversationID,
		"confidence", confidence,
		"sources", len(sources))

	return &Reply{
		Message:    assistantMsg,
		Sources:    sources,
		Confidence: confidence,
		Retrieved:  retrieved,
	}, nil
}

// SummarizeConversation condenses the full transcript into a short rolling
// summary and stores it on the conversation. Returns the new summary, or
// an empty string for a conversation with no messages.
func (e *Engine) SummarizeConversation(ctx context.Context, tenantID, conversationID uuid.UUID) (string, error) {
	messages, err := e.messages.ListMessages(ctx, tenantID, conversationID)
	if err != nil {
		return "", fmt.Errorf("loading transcript: %w", err)
	}
	if len(messages) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(msg.Role)), msg.Content))
	}

	summary, err := e.completer.Summarize(ctx, strings.Join(lines, "\n"))
	if err != nil {
		return "", fmt.Errorf("summarizing transcript: %w", err)
	}

	if err := e.conversations.SetSummary(ctx, tenantID, conversationID, summary); err != nil {
		return "", fmt.Errorf("storing summary: %w", err)
	}

	e.logger.Info("conversation summarized", "conversation_id", conversationID)
	return summary, nil
}
