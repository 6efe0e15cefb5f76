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


// Package ai provides abstractions for the AI services used in groundwork.
//
// This package defines interfaces for text embedding, chat completion, and
// token counting. The core pipeline depends only on these abstractions;
// concrete providers live in sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic stub implementation for offline and test use
//
// The stub provider is a first-class alternate implementation, not a test
// shim: it produces stable hash-seeded embeddings and templated completions
// so the full retrieval pipeline is exercisable without a live model.
// Provider selection is driven by Config.MockMode.
package ai
