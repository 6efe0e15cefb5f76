// Package ingest turns raw documents into searchable chunks: it chunks the
// content by source type, embeds the chunks in parallel batches, and
// atomically replaces the document's stored chunks before marking it ready.
// A failure at any stage parks the document in the failed state so the
// worker's retry schedule can pick it back up.
package ingest
