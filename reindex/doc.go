// Package reindex rebuilds the chunks and embeddings of a tenant's
// documents, typically after changing the chunking parameters or the
// embedding model. Documents are walked in batches, reset to pending, and
// driven back through the ingest pipeline, with progress reported to a
// writer.
package reindex
