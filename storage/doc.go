// Package storage defines the persistence interfaces for documents,
// chunks, conversations, and messages, plus the errors shared by all
// backends. Every read and write is scoped to a tenant; an ID that exists
// under another tenant is indistinguishable from one that does not exist.
//
// Two backends implement these interfaces: storage/postgres (pgvector, the
// production backend) and storage/badger (embedded, used for single-node
// deployments and tests).
package storage
