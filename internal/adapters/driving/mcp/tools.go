package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// SearchInput is the input schema for the recall_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find saved content"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the recall_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	EntryID   string  `json:"entry_id"`
	Title     string  `json:"title"`
	URL       string  `json:"url,omitempty"`
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type"`
	Content   string  `json:"content"`
}

// IndexInput is the input schema for the recall_index tool.
type IndexInput struct {
	Text     string `json:"text" jsonschema:"the full text to index"`
	SourceID string `json:"source_id" jsonschema:"stable identifier for the source"`
	Type     string `json:"type" jsonschema:"source type: article, email or pdf"`
	Title    string `json:"title,omitempty" jsonschema:"human-readable title"`
	URL      string `json:"url,omitempty" jsonschema:"original location of the source"`
}

// IndexOutput is the output schema for the recall_index tool.
type IndexOutput struct {
	SourceID   string `json:"source_id"`
	ChunkCount int    `json:"chunk_count"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ContextInput is the input schema for the recall_context tool.
type ContextInput struct {
	Query string `json:"query" jsonschema:"the question to gather cited context for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of sources (default 5)"`
}

// ContextOutput is the output schema for the recall_context tool.
type ContextOutput struct {
	Context string             `json:"context"`
	Sources []domain.SourceRef `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_search",
		Description: "Search across all saved and indexed content",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_index",
		Description: "Index new content so it becomes searchable",
	}, s.handleIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_context",
		Description: "Gather citation-ready context blocks for a question",
	}, s.handleContext)
}

// handleSearch handles the recall_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results := s.ports.Retriever.Search(ctx, input.Query, limit)

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			EntryID:   results[i].Entry.ID,
			Title:     results[i].Entry.Metadata.Title,
			URL:       results[i].Entry.Metadata.SourceURL,
			Type:      string(results[i].Entry.Type),
			Score:     results[i].Score,
			MatchType: string(results[i].MatchType),
			Content:   results[i].Entry.Content,
		}
	}

	return nil, output, nil
}

// handleIndex handles the recall_index tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	sourceType := domain.SourceType(input.Type)
	if !sourceType.Valid() {
		return nil, IndexOutput{}, fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, input.Type)
	}

	meta := domain.IndexMetadata{
		SourceID:   input.SourceID,
		SourceURL:  input.URL,
		SourceType: sourceType,
		Title:      input.Title,
	}

	stats, err := s.ports.Retriever.Index(ctx, input.Text, meta)
	if err != nil {
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{
		SourceID:   stats.SourceID,
		ChunkCount: stats.ChunkCount,
		Skipped:    stats.Skipped,
		SkipReason: stats.SkipReason,
		DurationMS: stats.Duration.Milliseconds(),
	}, nil
}

// handleContext handles the recall_context tool invocation.
func (s *Server) handleContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	sourced := s.ports.Retriever.SearchWithSources(ctx, input.Query, limit)
	return nil, ContextOutput{
		Context: sourced.Context,
		Sources: sourced.Sources,
	}, nil
}
