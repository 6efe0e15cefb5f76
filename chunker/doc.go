// Package chunker splits document content into token-bounded chunks for
// embedding. Plain text is chunked on sentence boundaries with a sliding
// overlap, markdown is split on headings first so sections stay coherent,
// and HTML is reduced to block-level text before chunking.
package chunker
