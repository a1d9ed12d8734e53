// Package chunker provides the fixed-size text chunking capability.
package chunker

import (
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Chunker implements the port.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits source text into fixed-size chunks with overlap,
// preferring to break at sentence boundaries near the target size.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkForEmbedding splits text into ordered chunks. Whitespace-only text
// produces no chunks. The content type is accepted for parity with richer
// chunkers; the fixed-size strategy treats all types the same.
func (c *Chunker) ChunkForEmbedding(text string, _ domain.SourceType) []driven.TextChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []driven.TextChunk
	index := 0
	start := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = snapToBoundary(text, start, end)
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, driven.TextChunk{Index: index, Text: piece})
			index++
		}

		if end == len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// snapToBoundary moves the cut point back to the nearest sentence or word
// boundary within the last quarter of the chunk, so chunks don't split
// mid-sentence when a boundary is close by.
func snapToBoundary(text string, start, end int) int {
	floor := end - (end-start)/4
	if floor < start+1 {
		floor = start + 1
	}

	for i := end - 1; i >= floor; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := end - 1; i >= floor; i-- {
		if text[i] == ' ' {
			return i + 1
		}
	}
	return end
}
