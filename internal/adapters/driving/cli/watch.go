package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// watchDebounce coalesces the burst of write events most editors emit
// when saving a file.
const watchDebounce = 500 * time.Millisecond

var defaultWatchExtensions = []string{".md", ".txt"}

var watchType string

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and index changed files",
	Long: `Watches a directory and re-indexes files as they are created or
modified. Only files whose extension is in watch.extensions (config key,
default .md and .txt) are indexed. Unchanged saves are detected by
content hash and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchType, "type", "t", "article", "source type for indexed files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	sourceType := domain.SourceType(watchType)
	if !sourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, watchType)
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	extensions := defaultWatchExtensions
	if configStore != nil {
		if configured := configStore.GetStringSlice("watch.extensions"); len(configured) > 0 {
			extensions = configured
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s for %s files (Ctrl+C to stop)\n", dir, strings.Join(extensions, ", "))

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	indexPath := func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Reading %s: %v", path, err)
			return
		}

		base := filepath.Base(path)
		meta := domain.IndexMetadata{
			SourceID:   strings.TrimSuffix(base, filepath.Ext(base)),
			SourceType: sourceType,
			Title:      base,
		}

		stats, err := retriever.Index(cmd.Context(), string(data), meta)
		switch {
		case err != nil:
			cmd.PrintErrf("Indexing %s failed: %v\n", base, err)
		case stats.Skipped:
			logger.Debug("Skipped %s (%s)", base, stats.SkipReason)
		default:
			cmd.Printf("Indexed %s: %d chunks\n", base, stats.ChunkCount)
		}
	}

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := timers[path]; ok {
			timer.Stop()
		}
		timers[path] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			indexPath(path)
		})
	}

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			for _, want := range extensions {
				if ext == want {
					schedule(event.Name)
					break
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}
