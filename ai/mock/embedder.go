package mock

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/go-crypt/x/blake2b"
)

// DefaultDimensions matches the width of text-embedding-3-small vectors so
// stub and live embeddings are interchangeable at the storage layer.
const DefaultDimensions = 1536

// Embedder is a deterministic stub for ai.Embedder.
// It allows custom behavior injection via function fields.
type Embedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dimensions int
	callCount  atomic.Int64
}

// NewEmbedder creates a stub embedder producing vectors of the given width.
// A non-positive dim falls back to DefaultDimensions.
//
// Note: returns the concrete type so tests can reach CallCount and the
// injection fields.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dimensions: dim}
}

// EmbedText generates a deterministic unit-length embedding from a hash of
// the text.
func (m *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return DeterministicVector(text, m.dimensions), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts,
// preserving input order.
func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = DeterministicVector(text, m.dimensions)
	}
	return vectors, nil
}

// CallCount returns the number of times any embed method was called.
func (m *Embedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *Embedder) Reset() {
	m.callCount.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// DeterministicVector creates a pseudo-random embedding vector seeded by a
// BLAKE2b hash of the text, L2-normalized to unit length. The same text
// always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(text))
	seed := binary.LittleEndian.Uint64(h.Sum(nil))

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		// 64-bit LCG (Knuth MMIX constants), mapped onto [-1, 1)
		seed = seed*6364136223846793005 + 1442695040888963407
		vector[i] = float32(seed>>40)/float32(1<<23) - 1.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
