package driven

import "github.com/custodia-labs/recall-cli/internal/core/domain"

// TextChunk is one ordered slice of a source's text.
type TextChunk struct {
	// Index is the ordinal position within the source.
	Index int

	// Text is the chunk content.
	Text string
}

// Chunker splits source text into ordered, bounded-size chunks: the unit
// of embedding and indexing.
type Chunker interface {
	// ChunkForEmbedding splits text into ordered chunks sized for the
	// embedding model. The content type may adjust boundary heuristics.
	ChunkForEmbedding(text string, contentType domain.SourceType) []TextChunk
}
