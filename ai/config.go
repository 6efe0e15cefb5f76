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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// APIKey authenticates against the completion and embedding APIs.
	// An empty or placeholder key selects the deterministic stub provider.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for an OpenAI-compatible
	// local server. Empty uses the provider default.
	BaseURL string

	// ChatModel is the model identifier for conversation completions.
	// Default: "gpt-4o-mini"
	ChatModel string

	// SummaryModel is the smaller/cheaper model used for rolling summaries.
	// Default: "gpt-3.5-turbo"
	SummaryModel string

	// EmbeddingModel is the model identifier for text embeddings.
	// Default: "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimensions is the width of produced embedding vectors.
	// Default: 1536
	EmbeddingDimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithChatModel sets the chat completion model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithSummaryModel sets the summarization model identifier.
func WithSummaryModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummaryModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimensions sets the embedding vector width.
func WithEmbeddingDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dim
	}
}

// DefaultConfig returns a Config with sensible defaults. Without an API key
// the configuration resolves to the deterministic stub provider.
func DefaultConfig() *Config {
	return &Config{
		ChatModel:           "gpt-4o-mini",
		SummaryModel:        "gpt-3.5-turbo",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// MockMode reports whether the deterministic stub provider should be used.
// This is the case when no real API key is configured.
func (c *Config) MockMode() bool {
	return c.APIKey == "" || strings.HasPrefix(c.APIKey, "sk-your-key")
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.SummaryModel == "" {
		return errors.New("ai config: SummaryModel is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("ai config: EmbeddingDimensions must be positive")
	}
	return nil
}
