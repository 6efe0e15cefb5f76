// Package mock provides the deterministic stub implementation of the ai
// interfaces. It backs offline deployments (no API key configured) as well
// as unit tests.
//
// The embedder derives a seed from a BLAKE2b hash of the input text and
// expands it with a linear congruential generator, then L2-normalizes the
// vector. The same text therefore always maps to the same unit-length
// vector, which makes cosine-similarity behavior exercisable without a live
// embedding model. The completer returns templated responses derived from
// the last user message.
package mock
