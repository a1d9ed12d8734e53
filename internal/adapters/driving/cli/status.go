package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [source-id]",
	Short: "Show index status",
	Long: `Shows how many sources are indexed and the statistics of the most
recent indexing pass. With a source ID argument, reports whether that
source has indexed content.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	if len(args) == 1 {
		sourceID := args[0]
		if retriever.HasIndexedContent(cmd.Context(), sourceID) {
			cmd.Printf("%s: indexed\n", sourceID)
		} else {
			cmd.Printf("%s: not indexed\n", sourceID)
		}
		return nil
	}

	cmd.Printf("Indexed sources:   %d\n", retriever.MetadataCount())
	cmd.Printf("Active indexing:   %d\n", retriever.ActiveIndexingCount())

	last := retriever.LastStats()
	if last.SourceID != "" {
		cmd.Println()
		cmd.Printf("Last pass:         %s\n", last.SourceID)
		if last.Skipped {
			cmd.Printf("  skipped:         %s\n", last.SkipReason)
		} else {
			cmd.Printf("  chunks:          %d\n", last.ChunkCount)
			cmd.Printf("  embed time:      %s\n", last.EmbedTime)
			cmd.Printf("  persist time:    %s\n", last.PersistTime)
			cmd.Printf("  total:           %s\n", last.Duration)
		}
	}

	if configStore != nil {
		cmd.Println()
		cmd.Printf("Config:            %s\n", configStore.Path())
	}

	return nil
}
