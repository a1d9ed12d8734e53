package domain

import (
	"fmt"
	"time"
)

// SourceType identifies the kind of content an entry was extracted from.
type SourceType string

// Supported source types.
const (
	SourceTypeArticle SourceType = "article"
	SourceTypeEmail   SourceType = "email"
	SourceTypePDF     SourceType = "pdf"
)

// Valid reports whether the source type is one of the supported kinds.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeArticle, SourceTypeEmail, SourceTypePDF:
		return true
	}
	return false
}

// EntryMetadata carries the provenance of an indexed entry.
// It is what downstream generators need to produce citations.
type EntryMetadata struct {
	// SourceID identifies the source the entry was extracted from.
	SourceID string `json:"sourceId"`

	// SourceURL is the original location of the source, if known.
	SourceURL string `json:"sourceUrl,omitempty"`

	// SourceType is the kind of source (article, email, pdf).
	SourceType SourceType `json:"sourceType"`

	// Title is the human-readable title of the source.
	Title string `json:"title"`

	// ChunkIndex is the ordinal position of this chunk within the source.
	ChunkIndex int `json:"chunkIndex"`

	// TotalChunks is the number of chunks the source was split into.
	TotalChunks int `json:"totalChunks"`

	// IsSummary marks an entry holding a condensed summary of the source.
	// Summaries are preferred over raw chunks during result fusion.
	IsSummary bool `json:"isSummary,omitempty"`
}

// Entry is a single indexed unit: one chunk of a source's text together
// with its provenance. Entries are immutable after creation; re-indexing a
// source creates new entries which supersede the old ones logically via
// content-hash comparison, never by in-place edits.
type Entry struct {
	// ID is the stable unique identifier, derived from source type,
	// source ID and chunk index. See EntryID.
	ID string `json:"id"`

	// Type is the kind of source the entry came from.
	Type SourceType `json:"type"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Metadata carries provenance for citation assembly.
	Metadata EntryMetadata `json:"metadata"`

	// Timestamp is when the entry was created.
	Timestamp time.Time `json:"timestamp"`
}

// EntryID derives the stable identifier for a chunk.
func EntryID(sourceType SourceType, sourceID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%s:%d", sourceType, sourceID, chunkIndex)
}

// SummarySourceID derives the source ID under which a source's summary
// entry is indexed, keeping it distinct from the source's raw chunks.
func SummarySourceID(sourceID string) string {
	return sourceID + ":summary"
}
