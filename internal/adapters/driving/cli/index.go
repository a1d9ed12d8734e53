package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	indexSourceID string
	indexType     string
	indexTitle    string
	indexURL      string
	indexSummary  string
	indexProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [file]",
	Short: "Index a file's content",
	Long: `Chunks, embeds and indexes the content of a file so it becomes
searchable. Pass "-" to read from stdin.

Unchanged content (detected by content hash) is skipped. Re-indexing a
changed source replaces its previous chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexSourceID, "source-id", "", "stable source identifier (default: derived from file name)")
	indexCmd.Flags().StringVarP(&indexType, "type", "t", "article", "source type: article, email or pdf")
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "human-readable title (default: file name)")
	indexCmd.Flags().StringVar(&indexURL, "url", "", "original location of the source")
	indexCmd.Flags().StringVar(&indexSummary, "summary", "", "optional summary indexed as a high-priority entry")
	indexCmd.Flags().BoolVar(&indexProgress, "progress", false, "print progress while indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	sourceType := domain.SourceType(indexType)
	if !sourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, indexType)
	}

	text, name, err := readIndexInput(args[0])
	if err != nil {
		return err
	}

	meta := domain.IndexMetadata{
		SourceID:   indexSourceID,
		SourceURL:  indexURL,
		SourceType: sourceType,
		Title:      indexTitle,
	}
	if meta.SourceID == "" {
		meta.SourceID = name
	}
	if meta.Title == "" {
		meta.Title = name
	}

	var onProgress func(domain.IndexProgress)
	if indexProgress {
		onProgress = func(p domain.IndexProgress) {
			cmd.Printf("\r%3d%% %s", p.Percent, p.Stage)
			if p.Percent >= 100 {
				cmd.Println()
			}
		}
	}

	stats, err := retriever.IndexChunks(cmd.Context(), text, meta, onProgress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if stats.Skipped {
		cmd.Printf("Skipped %s (%s)\n", stats.SourceID, stats.SkipReason)
	} else {
		cmd.Printf("Indexed %s: %d chunks in %s\n", stats.SourceID, stats.ChunkCount, stats.Duration.Round(time.Millisecond))
	}

	if indexSummary != "" {
		sumStats, err := retriever.IndexSummary(cmd.Context(), indexSummary, meta)
		if err != nil {
			return fmt.Errorf("indexing summary failed: %w", err)
		}
		if sumStats.Skipped {
			cmd.Printf("Summary skipped (%s)\n", sumStats.SkipReason)
		} else {
			cmd.Println("Summary indexed")
		}
	}

	return nil
}

// readIndexInput returns the text plus a name usable as default source ID
// and title. Stdin input gets a generated ID, since there is no file name
// to derive a stable one from.
func readIndexInput(arg string) (text, name string, err error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin-" + uuid.NewString()[:8], nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", arg, err)
	}

	base := filepath.Base(arg)
	return string(data), strings.TrimSuffix(base, filepath.Ext(base)), nil
}
