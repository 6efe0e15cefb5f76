package badger

import (
	"github.com/poiesic/groundwork/storage"
)

// Store aggregates the BadgerDB repositories behind storage.Store.
type Store struct {
	backend       *Backend
	documents     *DocumentRepository
	chunks        *ChunkRepository
	conversations *ConversationRepository
	messages      *MessageRepository
}

var _ storage.Store = (*Store)(nil)

// Open opens a BadgerDB-backed store at the given path. An empty path with
// inMemory=true creates a transient store.
func Open(path string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:       backend,
		documents:     NewDocumentRepository(backend),
		chunks:        NewChunkRepository(backend),
		conversations: NewConversationRepository(backend),
		messages:      NewMessageRepository(backend),
	}, nil
}

// Documents returns the document store.
func (s *Store) Documents() storage.DocumentStore {
	return s.documents
}

// Chunks returns the chunk store.
func (s *Store) Chunks() storage.ChunkStore {
	return s.chunks
}

// Conversations returns the conversation store.
func (s *Store) Conversations() storage.ConversationStore {
	return s.conversations
}

// Messages returns the message store.
func (s *Store) Messages() storage.MessageStore {
	return s.messages
}

// Close closes the underlying BadgerDB database.
func (s *Store) Close() error {
	return s.backend.Close()
}
