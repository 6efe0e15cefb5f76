// Package cache defines a minimal TTL byte cache used to short-circuit
// repeated retrievals. The retriever treats the cache as best-effort: a
// miss or an error falls through to storage.
package cache
