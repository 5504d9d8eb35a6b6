// Package types provides shared type definitions for the localrag MCP server.
//
// This package defines the domain types passed between the scanner, chunker,
// indexer, searcher and storage layers.
//
// # Core Types
//
// FileRecord is the persisted state of one indexed document. It is the unit of
// change detection: a file is re-embedded only when its modification time and
// its content hash both differ from the stored record.
//
//	rec := types.FileRecord{
//	    Path:    "guides/setup.md",
//	    Hash:    "9f86d081884c7d65...",
//	    ModTime: 1718000000.25,
//	}
//
// Chunk is one bounded, trimmed piece of a document, labeled with the markdown
// heading it belongs to (empty for plain text and preambles):
//
//	chunk := types.Chunk{
//	    Content:    "# Setup\n\nInstall the binary...",
//	    ChunkIndex: 0,
//	    Heading:    "# Setup",
//	}
//
// # Synchronization Results
//
// ScanResult partitions every known or present path into exactly one of the
// New, Updated, Deleted and Unchanged sets. UpdateSummary reports the outcome of
// one synchronization cycle, including how many embedding batches were issued.
//
// # Search Results
//
// QueryResult is what a vector store returns (distance, ascending). SearchResult
// is what callers see: Score is always 1 - Distance and the store's order is kept.
//
// # Errors
//
// Error categories are sentinel values wrapped with fmt.Errorf and classified
// with errors.Is:
//
//	if errors.Is(err, types.ErrValidation) {
//	    // reject the request
//	}
package types
