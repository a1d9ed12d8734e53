package cli

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// fakeRetriever is a configurable Retriever double for command tests.
type fakeRetriever struct {
	results    []domain.SearchResult
	sourced    domain.SourcedContext
	stats      domain.IndexStats
	indexErr   error
	hasContent bool
	metaCount  int

	lastQuery string
	lastLimit int
	lastText  string
	lastMeta  domain.IndexMetadata
}

var _ driving.Retriever = (*fakeRetriever)(nil)

func (f *fakeRetriever) Index(ctx context.Context, text string, meta domain.IndexMetadata) (domain.IndexStats, error) {
	return f.IndexChunks(ctx, text, meta, nil)
}

func (f *fakeRetriever) IndexChunks(_ context.Context, text string, meta domain.IndexMetadata, _ driving.ProgressFunc) (domain.IndexStats, error) {
	f.lastText = text
	f.lastMeta = meta
	return f.stats, f.indexErr
}

func (f *fakeRetriever) IndexSummary(_ context.Context, _ string, _ domain.IndexMetadata) (domain.IndexStats, error) {
	return f.stats, f.indexErr
}

func (f *fakeRetriever) Search(_ context.Context, query string, limit int) []domain.SearchResult {
	f.lastQuery = query
	f.lastLimit = limit
	return f.results
}

func (f *fakeRetriever) SearchWithContext(_ context.Context, _ string, _ int, _ string) string {
	return ""
}

func (f *fakeRetriever) SearchWithSources(_ context.Context, query string, limit int) domain.SourcedContext {
	f.lastQuery = query
	f.lastLimit = limit
	return f.sourced
}

func (f *fakeRetriever) HasIndexedContent(_ context.Context, _ string) bool { return f.hasContent }
func (f *fakeRetriever) LastStats() domain.IndexStats                       { return f.stats }
func (f *fakeRetriever) MetadataCount() int                                 { return f.metaCount }
func (f *fakeRetriever) ActiveIndexingCount() int                           { return 0 }

// setupTestServices installs a fake retriever and returns it with a
// cleanup restoring the previous wiring.
func setupTestServices(f *fakeRetriever) func() {
	oldRetriever := retriever
	oldConfig := configStore
	retriever = f
	configStore = nil
	return func() {
		retriever = oldRetriever
		configStore = oldConfig
	}
}
