// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - EmbeddingService: Text to vector, with query/document asymmetry
//   - VectorBackend: Approximate nearest neighbour compute (volatile,
//     restartable; detected via its identity token)
//   - KVStore: Durable namespaced key-value persistence
//   - Chunker: Splits text into ordered embedding-sized chunks
//   - Compressor: Byte-stream compression for index snapshots
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
