// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Recall. It lets AI assistants index saved content and search it for
// grounded answers.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
