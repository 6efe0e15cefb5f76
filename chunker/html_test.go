package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkHTML(t *testing.T) {
	t.Run("extracts block elements and drops scripts", func(t *testing.T) {
		c := New(wordCount)
		html := `<html><head><style>body { color: red; }</style>
			<script>var tracked = true;</script></head>
			<body><h1>Billing FAQ</h1><p>Invoices are sent monthly.</p>
			<p>Refunds take five days.</p></body></html>`

		chunks, err := c.ChunkHTML(html)
		require.NoError(t, err)
		require.Len(t, chunks, 1)

		content := chunks[0].Content
		assert.Contains(t, content, "# Billing FAQ")
		assert.Contains(t, content, "Invoices are sent monthly.")
		assert.Contains(t, content, "Refunds take five days.")
		assert.NotContains(t, content, "tracked")
		assert.NotContains(t, content, "color: red")
		assert.Equal(t, "html", chunks[0].Metadata["source_type"])
	})

	t.Run("heading depth maps to hash prefix", func(t *testing.T) {
		c := New(wordCount)
		chunks, err := c.ChunkHTML("<h3>Deep heading</h3><p>Body.</p>")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Contains(t, chunks[0].Content, "### Deep heading")
	})

	t.Run("falls back to full text without block elements", func(t *testing.T) {
		c := New(wordCount)
		chunks, err := c.ChunkHTML("<html><body>Bare text with no markup blocks.</body></html>")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Bare text with no markup blocks.", chunks[0].Content)
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		c := New(wordCount)
		chunks, err := c.ChunkHTML("   ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}
