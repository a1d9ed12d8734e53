package driven

import "context"

// VectorBackend provides approximate nearest neighbour operations over an
// in-memory index. The backend is volatile: it can be torn down and
// recreated at any time, in which case it comes back with an empty index
// and a new identity token. The durable snapshot (see Serialize/Load) plus
// the document store are authoritative, never the backend's memory.
type VectorBackend interface {
	// Add inserts a vector for the given entry ID.
	Add(ctx context.Context, id string, embedding []float32, title, url string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Serialize returns an opaque snapshot of the whole index, suitable
	// for persisting and handing back to Load.
	Serialize(ctx context.Context) ([]byte, error)

	// Load restores the in-memory index from a Serialize snapshot,
	// replacing any current state.
	Load(ctx context.Context, snapshot []byte) error

	// IdentityToken returns an opaque value that changes when the backend
	// instance is recreated. Callers compare tokens across calls to detect
	// restarts and force a reload from durable storage.
	IdentityToken() string

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched entry ID.
	ID string

	// Score is the similarity score (higher is closer).
	Score float64
}
