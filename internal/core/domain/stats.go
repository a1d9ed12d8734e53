package domain

import "time"

// Skip reasons reported by an indexing pass. Skips are first-class
// outcomes, not errors: a skipped pass still reports 100% progress.
const (
	// SkipUnchanged means the source's content hash matched the stored
	// hash and presence in the index was verified.
	SkipUnchanged = "unchanged"

	// SkipNoChunks means the chunker produced no chunks for the text.
	SkipNoChunks = "no_chunks"

	// SkipAlreadyIndexed means a summary entry already exists.
	SkipAlreadyIndexed = "already_indexed"
)

// IndexStats records the outcome of one indexing pass for observability.
type IndexStats struct {
	// SourceID identifies the source the pass ran for.
	SourceID string

	// Duration is the wall-clock time of the whole pass.
	Duration time.Duration

	// EmbedTime is the time spent in embedding calls.
	EmbedTime time.Duration

	// PersistTime is the time spent writing to the vector store.
	PersistTime time.Duration

	// ChunkCount is the number of chunks embedded and stored.
	ChunkCount int

	// Skipped reports whether the pass skipped without embedding.
	Skipped bool

	// SkipReason is set when Skipped is true.
	SkipReason string

	// Err is the error that aborted the pass, if any.
	Err error
}

// EmbedStats records the last embedding call for observability.
type EmbedStats struct {
	// Attempts is the number of attempts the last call took.
	Attempts int

	// Duration is the wall-clock time of the last call, retries included.
	Duration time.Duration

	// LastErr is the most recent error observed, nil after a clean call.
	LastErr error
}

// IndexProgress is reported to the optional progress callback during an
// indexing pass. Percent runs 0-100; embedding and storing occupy the
// 20-90 band, reserving the edges for setup and persistence.
type IndexProgress struct {
	// SourceID identifies the source being indexed.
	SourceID string

	// Percent is the overall progress, 0-100.
	Percent int

	// Stage names the current phase (hashing, chunking, embedding, saving, done).
	Stage string
}
