// Package domain defines the core business entities for Recall.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entry: An indexed chunk of a source's text
//   - SearchResult: A scored, attributable search hit
//   - SourceMetadata: Per-source indexing state (content hash, chunk count)
//   - IndexStats / EmbedStats: Observability records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
