// Package retriever turns a user query into ranked knowledge-base chunks.
// It embeds the query, runs a tenant-scoped similarity search, and caches
// non-empty result sets for a short TTL so repeated questions don't re-hit
// the embedding API. The cache is best-effort: any cache failure falls
// through to storage.
package retriever
