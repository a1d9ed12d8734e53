package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreClosed indicates the vector store has been closed and can
	// accept no further operations.
	ErrStoreClosed = errors.New("vector store closed")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or cannot be reached. Semantic search is disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrBackendUnavailable indicates the vector backend rejected an
	// operation, typically because it is mid-restart.
	ErrBackendUnavailable = errors.New("vector backend unavailable")

	// ErrSnapshotFormat indicates a persisted index snapshot could not be
	// recognised. The snapshot envelope carries a version tag precisely so
	// that format evolution fails loudly instead of silently misparsing.
	ErrSnapshotFormat = errors.New("unrecognised snapshot format")
)
