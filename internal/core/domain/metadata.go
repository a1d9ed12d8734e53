package domain

import "time"

// SourceMetadata records the indexing state of one source. There is one
// record per indexed source, not per chunk.
//
// A source is considered up to date iff ContentHash equals the hash of the
// current text AND the vector store verifiably contains at least one entry
// for the source. Presence is re-verified rather than trusted blindly so a
// crashed or partial prior indexing pass cannot mask missing entries.
type SourceMetadata struct {
	// SourceID identifies the source.
	SourceID string `json:"sourceId"`

	// ContentHash is the cheap fingerprint of the source text that was
	// indexed. See ContentHash in the services package.
	ContentHash string `json:"contentHash"`

	// SimHash is the locality-sensitive fingerprint of the source text,
	// used to distinguish light edits from full replacements.
	SimHash uint64 `json:"simHash,omitempty"`

	// ChunkCount is the number of chunks produced for the source.
	ChunkCount int `json:"chunkCount"`

	// Timestamp is when the source was last successfully indexed.
	Timestamp time.Time `json:"timestamp"`
}

// IndexMetadata describes the source being indexed.
type IndexMetadata struct {
	// SourceID identifies the source being indexed.
	SourceID string

	// SourceURL is the original location of the source, if known.
	SourceURL string

	// SourceType is the kind of source.
	SourceType SourceType

	// Title is the human-readable title of the source.
	Title string
}
