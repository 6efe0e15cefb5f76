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


package core

import "errors"

// Domain validation errors. These surface to callers as client errors and are
// never retried.
var (
	// ErrEmptyContent indicates a document or message has no usable content.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNoChunks indicates chunking a document produced zero chunks.
	ErrNoChunks = errors.New("no chunks generated from document content")

	// ErrInvalidSourceType indicates an unknown document source type.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidRole indicates an unknown message role.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvalidTransition indicates an illegal document status transition.
	ErrInvalidTransition = errors.New("invalid document status transition")

	// ErrConversationNotActive indicates a message was sent to a closed or
	// archived conversation.
	ErrConversationNotActive = errors.New("conversation is not active")
)
