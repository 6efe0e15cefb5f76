package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/core"
)

// wordCount stands in for a real tokenizer so chunk boundaries are easy to
// reason about.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

func TestChunkText(t *testing.T) {
	t.Run("empty input yields no chunks", func(t *testing.T) {
		c := New(wordCount)
		assert.Empty(t, c.ChunkText(""))
		assert.Empty(t, c.ChunkText("   \n\t  "))
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		c := New(wordCount)
		chunks := c.ChunkText("Hello world. This is short.")
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, "Hello world. This is short.", chunks[0].Content)
		assert.Equal(t, 5, chunks[0].TokenCount)
	})

	t.Run("long text splits with overlap", func(t *testing.T) {
		c := New(wordCount, WithChunkSize(10), WithOverlap(5))
		text := "Alpha bravo charlie delta echo. " +
			"Foxtrot golf hotel india juliett. " +
			"Kilo lima mike november oscar. " +
			"Papa quebec romeo sierra tango."
		chunks := c.ChunkText(text)
		require.Len(t, chunks, 3)

		assert.Equal(t, "Alpha bravo charlie delta echo. Foxtrot golf hotel india juliett.", chunks[0].Content)
		assert.Equal(t, "Foxtrot golf hotel india juliett. Kilo lima mike november oscar.", chunks[1].Content)
		assert.Equal(t, "Kilo lima mike november oscar. Papa quebec romeo sierra tango.", chunks[2].Content)

		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Index)
			assert.LessOrEqual(t, chunk.TokenCount, 10)
		}
	})

	t.Run("oversized sentence is force-split by words", func(t *testing.T) {
		c := New(wordCount, WithChunkSize(10), WithOverlap(2))
		words := make([]string, 30)
		for i := range words {
			words[i] = "tok"
		}
		chunks := c.ChunkText(strings.Join(words, " "))
		require.GreaterOrEqual(t, len(chunks), 3)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, chunk.TokenCount, 10)
		}
	})

	t.Run("zero overlap shares nothing between chunks", func(t *testing.T) {
		c := New(wordCount, WithChunkSize(5), WithOverlap(0))
		chunks := c.ChunkText("One two three four five. Six seven eight nine ten.")
		require.Len(t, chunks, 2)
		assert.Equal(t, "One two three four five.", chunks[0].Content)
		assert.Equal(t, "Six seven eight nine ten.", chunks[1].Content)
	})
}

func TestChunkMarkdown(t *testing.T) {
	t.Run("sections become chunks with heading metadata", func(t *testing.T) {
		c := New(wordCount)
		text := "# Getting Started\nInstall the agent first.\n\n## Configuration\nEdit the config file."
		chunks := c.ChunkMarkdown(text)
		require.Len(t, chunks, 2)

		assert.Equal(t, "# Getting Started\nInstall the agent first.", chunks[0].Content)
		assert.Equal(t, "# Getting Started", chunks[0].Metadata["section"])
		assert.Equal(t, "## Configuration", chunks[1].Metadata["section"])
		assert.Equal(t, 1, chunks[1].Index)
	})

	t.Run("text before the first heading has no section", func(t *testing.T) {
		c := New(wordCount)
		chunks := c.ChunkMarkdown("Preamble text.\n\n# Later\nBody.")
		require.Len(t, chunks, 2)
		assert.NotContains(t, chunks[0].Metadata, "section")
		assert.Equal(t, "# Later", chunks[1].Metadata["section"])
	})

	t.Run("oversized section is sub-chunked and keeps its heading", func(t *testing.T) {
		c := New(wordCount, WithChunkSize(10), WithOverlap(2))
		body := strings.Repeat("Filler sentence with five words. ", 8)
		chunks := c.ChunkMarkdown("# Big Section\n" + body)
		require.Greater(t, len(chunks), 1)
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Index)
			assert.Equal(t, "# Big Section", chunk.Metadata["section"])
		}
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		c := New(wordCount)
		assert.Empty(t, c.ChunkMarkdown("  \n "))
	})
}

func TestChunkDispatch(t *testing.T) {
	c := New(wordCount)

	chunks, err := c.Chunk(core.SourceTypeMarkdown, "# H\nBody text.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "# H", chunks[0].Metadata["section"])

	chunks, err = c.Chunk(core.SourceTypeText, "Plain text body.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Metadata)

	chunks, err = c.Chunk(core.SourceTypeHTML, "<p>Hypertext body.</p>")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "html", chunks[0].Metadata["source_type"])
}
