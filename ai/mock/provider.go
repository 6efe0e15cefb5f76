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


package mock

import "github.com/poiesic/groundwork/ai"

// Provider is the deterministic stub implementation of ai.Provider.
// It aggregates stub embedder and completer instances.
type Provider struct {
	embedder  *Embedder
	completer *Completer
}

// NewProvider creates a stub provider with default deterministic services.
// The embedding width is taken from the config so stored vectors line up
// with whatever dimension the deployment expects.
//
// Returns ai.Provider interface for consistency with production
// constructors. Use GetEmbedder()/GetCompleter() to access concrete types
// for test assertions.
func NewProvider(config *ai.Config) ai.Provider {
	dim := DefaultDimensions
	if config != nil && config.EmbeddingDimensions > 0 {
		dim = config.EmbeddingDimensions
	}
	model := "stub-chat"
	if config != nil && config.ChatModel != "" {
		model = config.ChatModel
	}
	return &Provider{
		embedder:  NewEmbedder(dim),
		completer: NewCompleter(model),
	}
}

// NewProviderWithServices creates a stub provider with custom services.
// This allows full control over the behavior of each service in tests.
func NewProviderWithServices(embedder *Embedder, completer *Completer) ai.Provider {
	return &Provider{
		embedder:  embedder,
		completer: completer,
	}
}

// Embedder returns the stub embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the stub completer.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close is a no-op for the stub provider.
func (p *Provider) Close() error {
	return nil
}

// GetEmbedder returns the underlying stub embedder for test assertions.
func (p *Provider) GetEmbedder() *Embedder {
	return p.embedder
}

// GetCompleter returns the underlying stub completer for test assertions.
func (p *Provider) GetCompleter() *Completer {
	return p.completer
}
