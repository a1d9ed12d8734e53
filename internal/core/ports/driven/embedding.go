package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The query flag lets the backing model apply query-vs-document prefixing
// or pooling differences; retrieval-tuned models embed questions and
// passages into slightly different regions of the same space.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string, query bool) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one backend
	// call. Implementations must not fall back to looping over Embed when
	// the backend offers a batch endpoint.
	EmbedBatch(ctx context.Context, texts []string, query bool) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
