package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	searchLimit   int
	searchJSON    bool
	searchSources bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed content",
	Long: `Performs hybrid search across all indexed content.
Combines keyword (inverted index) and semantic (vector) search, fuses the
two rankings and reranks by literal term matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchSources, "sources", false, "output a cited context block instead of a result list")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retriever == nil {
		return errors.New("retriever not configured")
	}

	ctx := cmd.Context()

	if searchSources {
		return outputSourcedContext(cmd, retriever.SearchWithSources(ctx, query, searchLimit))
	}

	results := retriever.Search(ctx, query, searchLimit)

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Entry.Metadata.Title
		if title == "" {
			title = results[i].Entry.ID
		}

		cmd.Printf("  [%d] %s (%.0f, %s)\n", i+1, title, results[i].Score, results[i].MatchType)
		if results[i].Entry.Metadata.SourceURL != "" {
			cmd.Printf("      %s\n", results[i].Entry.Metadata.SourceURL)
		}
		snippet := results[i].Entry.Content
		if len(snippet) > 160 {
			snippet = snippet[:160] + "..."
		}
		cmd.Printf("      %s\n", snippet)
		cmd.Println()
	}

	return nil
}

func outputSourcedContext(cmd *cobra.Command, sourced domain.SourcedContext) error {
	if len(sourced.Sources) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(sourced.Context)
	cmd.Println()
	cmd.Println("Sources:")
	for _, src := range sourced.Sources {
		cmd.Printf("  [%d] %s", src.Index, src.Title)
		if src.URL != "" {
			cmd.Printf(" <%s>", src.URL)
		}
		cmd.Println()
	}
	return nil
}
