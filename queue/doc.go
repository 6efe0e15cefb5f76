// Package queue defines the ingestion job queue consumed by the worker.
// Jobs reference documents by ID; the document row is the source of truth,
// so a redelivered or stale job is harmless.
package queue
