// Package file implements the ConfigStore port backed by a TOML file.
//
// Configuration is stored at ~/.recall/config.toml by default. Nested
// TOML tables are flattened to dot-notation keys ("embedding.provider")
// in memory and rebuilt into tables on save. Writes are atomic.
package file
