package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		retriever := &mockRetriever{
			searchResults: []domain.SearchResult{
				{
					Entry: domain.Entry{
						ID:      "article:a1:0",
						Type:    domain.SourceTypeArticle,
						Content: "This is the content",
						Metadata: domain.EntryMetadata{
							Title:     "Test Article",
							SourceURL: "https://example.com/a1",
						},
					},
					Score:     95,
					MatchType: domain.MatchHybrid,
				},
			},
		}

		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		input := SearchInput{Query: "test", Limit: 10}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "article:a1:0", output.Results[0].EntryID)
		assert.Equal(t, "Test Article", output.Results[0].Title)
		assert.Equal(t, "https://example.com/a1", output.Results[0].URL)
		assert.Equal(t, "article", output.Results[0].Type)
		assert.Equal(t, 95.0, output.Results[0].Score)
		assert.Equal(t, "hybrid", output.Results[0].MatchType)
		assert.Equal(t, "This is the content", output.Results[0].Content)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		retriever := &mockRetriever{}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Limit: 0})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 10, retriever.lastLimit)
	})
}

func TestServer_handleIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes content", func(t *testing.T) {
		retriever := &mockRetriever{
			indexStats: domain.IndexStats{
				SourceID:   "a1",
				ChunkCount: 3,
				Duration:   1500 * time.Millisecond,
			},
		}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		input := IndexInput{
			Text:     "some text",
			SourceID: "a1",
			Type:     "article",
			Title:    "Title",
			URL:      "https://example.com/a1",
		}
		_, output, err := server.handleIndex(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "a1", output.SourceID)
		assert.Equal(t, 3, output.ChunkCount)
		assert.False(t, output.Skipped)
		assert.Equal(t, int64(1500), output.DurationMS)
		assert.Equal(t, "some text", retriever.lastText)
		assert.Equal(t, domain.SourceTypeArticle, retriever.lastMeta.SourceType)
	})

	t.Run("reports skip reason", func(t *testing.T) {
		retriever := &mockRetriever{
			indexStats: domain.IndexStats{SourceID: "a1", Skipped: true, SkipReason: domain.SkipUnchanged},
		}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleIndex(ctx, nil, IndexInput{Text: "x", SourceID: "a1", Type: "article"})

		require.NoError(t, err)
		assert.True(t, output.Skipped)
		assert.Equal(t, "unchanged", output.SkipReason)
	})

	t.Run("rejects unknown source type", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		_, _, err = server.handleIndex(ctx, nil, IndexInput{Text: "x", SourceID: "a1", Type: "spreadsheet"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("propagates indexing errors", func(t *testing.T) {
		retriever := &mockRetriever{indexErr: errors.New("embedding backend offline")}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, _, err = server.handleIndex(ctx, nil, IndexInput{Text: "x", SourceID: "a1", Type: "article"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding backend offline")
	})
}

func TestServer_handleContext(t *testing.T) {
	ctx := context.Background()

	retriever := &mockRetriever{
		sourced: domain.SourcedContext{
			Context: "[1] Title\ncontent",
			Sources: []domain.SourceRef{
				{Index: 1, Title: "Title", URL: "https://example.com", Type: domain.SourceTypeArticle, Score: 80, Snippet: "content"},
			},
		},
	}
	server, err := NewServer(&Ports{Retriever: retriever})
	require.NoError(t, err)

	_, output, err := server.handleContext(ctx, nil, ContextInput{Query: "question"})
	require.NoError(t, err)
	assert.Equal(t, "[1] Title\ncontent", output.Context)
	require.Len(t, output.Sources, 1)
	assert.Equal(t, 5, retriever.lastLimit, "default limit is 5")
}

func TestNewServer_RequiresRetriever(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.ErrorIs(t, err, ErrMissingRetriever)
}
