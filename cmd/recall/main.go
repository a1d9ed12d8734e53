// Command recall is the entry point for the Recall CLI: it wires the
// storage, embedding and retrieval layers together and hands control to
// the cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/ann/bruteforce"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/compress"
	configfile "github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall-cli/internal/chunker"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	kv, err := sqlite.NewStore(config.GetString(configfile.KeyDataDir, ""))
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer kv.Close()

	embedder := embedding.NewRetryClient(newEmbedder(config))
	defer embedder.Close()

	store := services.NewVectorStore(bruteforce.New(), kv, compress.NewGzip())
	defer store.Close()

	retriever := services.NewRetrievalService(store, embedder, chunker.New(), kv)

	cli.SetServices(cli.Services{
		Retriever: retriever,
		Config:    config,
	})

	return cli.Execute()
}

// newEmbedder builds the embedding service the config asks for. Anything
// other than "openai" selects the local Ollama backend.
func newEmbedder(config driven.ConfigStore) driven.EmbeddingService {
	provider := config.GetString(configfile.KeyEmbeddingProvider, "ollama")

	if provider == "openai" {
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey: config.GetString(configfile.KeyOpenAIAPIKey, os.Getenv("OPENAI_API_KEY")),
			Model:  config.GetString(configfile.KeyEmbeddingModel, openai.DefaultModel),
		})
		if err == nil {
			return svc
		}
		fmt.Fprintln(os.Stderr, "Warning: OpenAI embedding unavailable, falling back to Ollama:", err)
	}

	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL: config.GetString(configfile.KeyOllamaBaseURL, ollama.DefaultBaseURL),
		Model:   config.GetString(configfile.KeyEmbeddingModel, ollama.DefaultModel),
	})
}
