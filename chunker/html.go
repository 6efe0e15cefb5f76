package chunker

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/poiesic/groundwork/core"
)

const blockSelector = "p, div, section, article, li, h1, h2, h3, h4, h5, h6, blockquote, pre, td, th"

// ChunkHTML strips scripts and styles, flattens block-level elements to
// text (headings keep a markdown-style prefix so section structure
// survives), and chunks the result. Documents without block elements fall
// back to whole-document text extraction.
func (c *Chunker) ChunkHTML(html string) ([]core.Chunk, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("script, style").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		name := goquery.NodeName(sel)
		if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
			text = strings.Repeat("#", int(name[1]-'0')) + " " + text
		}
		blocks = append(blocks, text)
	})

	if len(blocks) == 0 {
		return c.ChunkText(strings.TrimSpace(doc.Text())), nil
	}

	chunks := c.ChunkText(strings.Join(blocks, "\n\n"))
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any, 1)
		}
		chunks[i].Metadata["source_type"] = "html"
	}
	return chunks, nil
}
