package badger

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentHashPrefix = "dochsh"
	documentPendPrefix = "docpnd"
	chunkPrefix        = "chkrec"
	conversationPrefix = "convrec"
	messagePrefix      = "msgrec"
)

// makeDocumentKey generates a key for a document.
// Format: prefix:tenantID:documentID
func makeDocumentKey(tenantID, id uuid.UUID) []byte {
	return joinKey([]byte(documentPrefix+":"), tenantID[:], id[:])
}

// makeDocumentHashKey generates a key for the tenant content-hash index.
// Format: prefix:tenantID:hash
func makeDocumentHashKey(tenantID uuid.UUID, hash string) []byte {
	return joinKey([]byte(documentHashPrefix+":"), tenantID[:], []byte(hash))
}

// makePendingKey generates a composite key for the pending-document index.
// Format: prefix:createdAt:documentID, BigEndian timestamp so lexicographic
// iteration yields oldest first.
func makePendingKey(createdAt time.Time, id uuid.UUID) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(createdAt.UnixMicro()))
	return joinKey([]byte(documentPendPrefix+":"), ts[:], id[:])
}

// makeChunkKey generates a key for a stored chunk.
// Format: prefix:tenantID:documentID:index, BigEndian index so chunks
// iterate in document order.
func makeChunkKey(tenantID, documentID uuid.UUID, index int) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(index))
	return joinKey([]byte(chunkPrefix+":"), tenantID[:], documentID[:], idx[:])
}

// makeChunkDocPrefix generates the key prefix covering all chunks of a
// document.
func makeChunkDocPrefix(tenantID, documentID uuid.UUID) []byte {
	return joinKey([]byte(chunkPrefix+":"), tenantID[:], documentID[:])
}

// makeChunkTenantPrefix generates the key prefix covering all chunks of a
// tenant. Similarity scans iterate this prefix, so cross-tenant reads are
// impossible at the key level.
func makeChunkTenantPrefix(tenantID uuid.UUID) []byte {
	return joinKey([]byte(chunkPrefix+":"), tenantID[:])
}

// makeConversationKey generates a key for a conversation.
// Format: prefix:tenantID:conversationID
func makeConversationKey(tenantID, id uuid.UUID) []byte {
	return joinKey([]byte(conversationPrefix+":"), tenantID[:], id[:])
}

// makeMessageKey generates a composite key for a message.
// Format: prefix:conversationID:createdAt:messageID, BigEndian timestamp
// so iteration yields chronological order.
func makeMessageKey(conversationID uuid.UUID, createdAt time.Time, id uuid.UUID) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(createdAt.UnixMicro()))
	return joinKey([]byte(messagePrefix+":"), conversationID[:], ts[:], id[:])
}

// makeMessageConvPrefix generates the key prefix covering all messages of a
// conversation.
func makeMessageConvPrefix(conversationID uuid.UUID) []byte {
	return joinKey([]byte(messagePrefix+":"), conversationID[:])
}

func joinKey(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
