package driven

import "context"

// KVStore persists opaque records under namespaced keys. It is the only
// resource safely shared across vector store generations (e.g., after the
// compute backend restarts), so it must support binary blobs and full
// namespace scans for index rebuilds.
type KVStore interface {
	// Get retrieves the value stored under namespace/key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Put stores value under namespace/key, replacing any existing value.
	Put(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes namespace/key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// GetAll returns every record in a namespace, keyed by key.
	GetAll(ctx context.Context, namespace string) (map[string][]byte, error)

	// Clear removes every record in a namespace.
	Clear(ctx context.Context, namespace string) error

	// Close releases resources.
	Close() error
}
