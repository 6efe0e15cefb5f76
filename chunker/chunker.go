// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/poiesic/groundwork/core"
)

const (
	// DefaultChunkSize is the target chunk width in tokens.
	DefaultChunkSize = 512
	// DefaultOverlap is how many tokens of trailing context each chunk
	// shares with its successor.
	DefaultOverlap = 64
)

var markdownHeading = regexp.MustCompile(`^#{1,6}\s`)

// Chunker splits text into overlapping, token-bounded chunks.
type Chunker struct {
	chunkSize   int
	overlap     int
	countTokens func(string) int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum tokens per chunk.
func WithChunkSize(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithOverlap sets the token overlap carried between adjacent chunks.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a Chunker using countTokens to measure text. A nil counter
// falls back to whitespace-delimited word counting.
func New(countTokens func(string) int, opts ...Option) *Chunker {
	if countTokens == nil {
		countTokens = func(s string) int { return len(strings.Fields(s)) }
	}
	c := &Chunker{
		chunkSize:   DefaultChunkSize,
		overlap:     DefaultOverlap,
		countTokens: countTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk dispatches to the chunking strategy for the given source type.
// PDF and plain text share the sentence-based strategy; PDF extraction
// happens upstream of the chunker.
func (c *Chunker) Chunk(sourceType core.SourceType, text string) ([]core.Chunk, error) {
	switch sourceType {
	case core.SourceTypeMarkdown:
		return c.ChunkMarkdown(text), nil
	case core.SourceTypeHTML:
		return c.ChunkHTML(text)
	default:
		return c.ChunkText(text), nil
	}
}

// ChunkText splits text into overlapping chunks on sentence boundaries.
// Sentences longer than the chunk size are force-split by words. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) ChunkText(text string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []core.Chunk
	var current []string
	currentCount := 0

	flush := func() {
		content := strings.Join(current, " ")
		chunks = append(chunks, core.Chunk{
			Content:    content,
			Index:      len(chunks),
			TokenCount: c.countTokens(content),
		})
		current, currentCount = c.keepOverlap(current)
	}

	for _, sentence := range sentences {
		sentenceTokens := c.countTokens(sentence)

		// A single oversized sentence gets force-split by words.
		if sentenceTokens > c.chunkSize {
			if len(current) > 0 {
				flush()
			}
			for _, word := range strings.Fields(sentence) {
				wordTokens := c.countTokens(word)
				if currentCount+wordTokens > c.chunkSize && len(current) > 0 {
					flush()
				}
				current = append(current, word)
				currentCount += wordTokens
			}
			continue
		}

		if currentCount+sentenceTokens > c.chunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentCount += sentenceTokens
	}

	if len(current) > 0 {
		content := strings.Join(current, " ")
		chunks = append(chunks, core.Chunk{
			Content:    content,
			Index:      len(chunks),
			TokenCount: c.countTokens(content),
		})
	}

	return chunks
}

// ChunkMarkdown splits markdown on headings so each section becomes its own
// chunk, sub-chunking sections that exceed the chunk size. The heading line
// is recorded in chunk metadata under "section".
func (c *Chunker) ChunkMarkdown(text string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []core.Chunk
	for _, section := range splitMarkdownSections(text) {
		sectionText := section.body
		if section.header != "" {
			sectionText = section.header + "\n" + section.body
		}
		sectionText = strings.TrimSpace(sectionText)
		if sectionText == "" {
			continue
		}

		header := strings.TrimSpace(section.header)
		tokens := c.countTokens(sectionText)

		if tokens <= c.chunkSize {
			chunk := core.Chunk{
				Content:    sectionText,
				Index:      len(chunks),
				TokenCount: tokens,
			}
			if header != "" {
				chunk.Metadata = map[string]any{"section": header}
			}
			chunks = append(chunks, chunk)
			continue
		}

		for _, sub := range c.ChunkText(sectionText) {
			sub.Index = len(chunks)
			if header != "" {
				if sub.Metadata == nil {
					sub.Metadata = make(map[string]any, 1)
				}
				sub.Metadata["section"] = header
			}
			chunks = append(chunks, sub)
		}
	}

	return chunks
}

// keepOverlap retains the trailing parts whose combined token count fits
// within the overlap budget.
func (c *Chunker) keepOverlap(parts []string) ([]string, int) {
	if c.overlap <= 0 {
		return nil, 0
	}

	keptCount := 0
	i := len(parts)
	for i > 0 {
		tc := c.countTokens(parts[i-1])
		if keptCount+tc > c.overlap {
			break
		}
		keptCount += tc
		i--
	}
	if i == len(parts) {
		return nil, 0
	}

	kept := make([]string, len(parts)-i)
	copy(kept, parts[i:])
	return kept, keptCount
}

// splitSentences splits on sentence-terminating punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			j := i + 1
			if j >= len(runes) || !unicode.IsSpace(runes[j]) {
				continue
			}
			if s := strings.TrimSpace(string(runes[start:j])); s != "" {
				sentences = append(sentences, s)
			}
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

type markdownSection struct {
	header string
	body   string
}

func splitMarkdownSections(text string) []markdownSection {
	var sections []markdownSection
	currentHeader := ""
	var currentBody []string

	for _, line := range strings.Split(text, "\n") {
		if markdownHeading.MatchString(line) {
			if len(currentBody) > 0 || currentHeader != "" {
				sections = append(sections, markdownSection{
					header: currentHeader,
					body:   strings.Join(currentBody, "\n"),
				})
			}
			currentHeader = line
			currentBody = nil
			continue
		}
		currentBody = append(currentBody, line)
	}
	if len(currentBody) > 0 || currentHeader != "" {
		sections = append(sections, markdownSection{
			header: currentHeader,
			body:   strings.Join(currentBody, "\n"),
		})
	}

	return sections
}
