// Package cli provides the cobra command tree for the recall binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Commands check for nil so the tree can be exercised
// in tests without full wiring.
var (
	retriever   driving.Retriever
	configStore driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Index saved content and search it with hybrid retrieval",
	Long: `Recall indexes articles, emails and PDFs you have saved, then answers
queries with hybrid retrieval: semantic vector search fused with keyword
search, reranked by literal term matches.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the command tree needs.
type Services struct {
	Retriever driving.Retriever
	Config    driven.ConfigStore
}

// SetServices injects the service implementations used by the commands.
func SetServices(s Services) {
	retriever = s.Retriever
	configStore = s.Config
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
