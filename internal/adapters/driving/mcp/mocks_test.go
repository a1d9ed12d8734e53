package mcp

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// mockRetriever is a configurable test double for the Retriever port.
type mockRetriever struct {
	searchResults []domain.SearchResult
	sourced       domain.SourcedContext
	indexStats    domain.IndexStats
	indexErr      error

	lastQuery string
	lastLimit int
	lastMeta  domain.IndexMetadata
	lastText  string
}

var _ driving.Retriever = (*mockRetriever)(nil)

func (m *mockRetriever) Index(ctx context.Context, text string, meta domain.IndexMetadata) (domain.IndexStats, error) {
	m.lastText = text
	m.lastMeta = meta
	return m.indexStats, m.indexErr
}

func (m *mockRetriever) IndexChunks(ctx context.Context, text string, meta domain.IndexMetadata, _ driving.ProgressFunc) (domain.IndexStats, error) {
	return m.Index(ctx, text, meta)
}

func (m *mockRetriever) IndexSummary(ctx context.Context, summary string, meta domain.IndexMetadata) (domain.IndexStats, error) {
	return m.indexStats, m.indexErr
}

func (m *mockRetriever) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	m.lastQuery = query
	m.lastLimit = limit
	return m.searchResults
}

func (m *mockRetriever) SearchWithContext(ctx context.Context, query string, limit int, sourceURL string) string {
	return ""
}

func (m *mockRetriever) SearchWithSources(ctx context.Context, query string, limit int) domain.SourcedContext {
	m.lastQuery = query
	m.lastLimit = limit
	return m.sourced
}

func (m *mockRetriever) HasIndexedContent(ctx context.Context, sourceID string) bool { return false }
func (m *mockRetriever) LastStats() domain.IndexStats                                { return m.indexStats }
func (m *mockRetriever) MetadataCount() int                                          { return 0 }
func (m *mockRetriever) ActiveIndexingCount() int                                    { return 0 }
