// Package worker runs the background side of ingestion. The Worker
// consumes jobs from the queue and drives documents through the ingest
// pipeline, re-enqueueing failures on a backoff schedule. The Dispatcher
// polls storage for pending documents and feeds them to the queue, which
// also recovers documents whose jobs were lost to a restart.
package worker
