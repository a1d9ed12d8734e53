package driven

// Compressor compresses and decompresses byte streams. Used for the ANN
// index snapshot, which compresses well and is written often enough for
// size to matter.
type Compressor interface {
	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)

	// Decompress reverses Compress.
	Decompress(data []byte) ([]byte, error)
}
