package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ProgressFunc receives progress updates during an indexing pass.
type ProgressFunc func(domain.IndexProgress)

// Retriever is the top-level retrieval-and-indexing orchestrator:
// content-hash incremental indexing, hybrid search with fusion and
// reranking, a query result cache, and context/citation assembly.
type Retriever interface {
	// Index indexes a source's text. Convenience wrapper around
	// IndexChunks with no progress callback.
	Index(ctx context.Context, text string, meta domain.IndexMetadata) (domain.IndexStats, error)

	// IndexChunks chunks, embeds and stores a source's text. Unchanged
	// content (by cheap hash, verified against actual index presence) is
	// skipped. Concurrent calls for the same source ID share one pass.
	// onProgress may be nil.
	IndexChunks(ctx context.Context, text string, meta domain.IndexMetadata, onProgress ProgressFunc) (domain.IndexStats, error)

	// IndexSummary indexes a short summary as a single high-priority
	// entry, idempotently. Summary entries outrank raw chunks in fusion.
	IndexSummary(ctx context.Context, summary string, meta domain.IndexMetadata) (domain.IndexStats, error)

	// Search runs hybrid (semantic + keyword) search. Failures degrade to
	// an empty result set; a conversational caller never hard-fails on a
	// search error.
	Search(ctx context.Context, query string, limit int) []domain.SearchResult

	// SearchWithContext returns concatenated, titled context blocks for
	// the best matches, optionally scoped to a single source URL.
	// Returns the empty string when nothing survives filtering.
	SearchWithContext(ctx context.Context, query string, limit int, sourceURL string) string

	// SearchWithSources returns a numbered context block plus the source
	// list a generator needs to produce citation-annotated answers.
	SearchWithSources(ctx context.Context, query string, limit int) domain.SourcedContext

	// HasIndexedContent reports whether any entries exist for a source.
	HasIndexedContent(ctx context.Context, sourceID string) bool

	// LastStats returns the statistics of the most recent indexing pass.
	LastStats() domain.IndexStats

	// MetadataCount returns the number of sources with metadata records.
	MetadataCount() int

	// ActiveIndexingCount returns the number of in-flight indexing passes.
	ActiveIndexingCount() int
}

// SessionRetriever is the ephemeral, single-document counterpart of
// Retriever for "search only within the open document". State lives fully
// in memory with no cross-session carryover.
type SessionRetriever interface {
	// SetDocument indexes the open document, replacing any previous one.
	// Unchanged content (by cheap hash) is not re-embedded.
	SetDocument(ctx context.Context, text string, meta domain.IndexMetadata) error

	// Search runs the session-local hybrid search.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)

	// Clear drops all session state.
	Clear()
}
