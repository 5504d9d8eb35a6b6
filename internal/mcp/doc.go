// Package mcp exposes the local document index over the Model Context
// Protocol (JSON-RPC 2.0 on stdio).
//
// Three tools are registered:
//   - search: semantic search over the indexed documents (query, top_k)
//   - reindex: run a differential update of the index
//   - status: report file and chunk counts and the last update time
//
// Failures are returned as *MCPError with JSON-RPC style codes: -32004
// for an empty query, -32602 for a bad top_k, -32002 when an index
// update fails and -32603 for anything else. The error message carries
// the underlying cause.
//
// Stdout belongs to the protocol. All logging goes through zerolog to
// stderr or a log file.
package mcp
