// Package postgres implements the storage interfaces on PostgreSQL with
// the pgvector extension. Similarity search runs in SQL against an ivfflat
// cosine index, with the tenant filter applied in the same query so
// isolation holds at the database level. This is the production backend.
package postgres
