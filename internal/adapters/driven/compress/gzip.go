// Package compress provides the byte-stream compression capability used
// for persisted index snapshots.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Gzip implements the port.
var _ driven.Compressor = (*Gzip)(nil)

// Gzip compresses with the standard gzip format at default level.
type Gzip struct{}

// NewGzip creates a gzip compressor.
func NewGzip() *Gzip {
	return &Gzip{}
}

// Compress returns the gzip-compressed form of data.
func (g *Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func (g *Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
