package types

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one retrieval unit cut from a document. Chunks are transient: they
// are produced by the chunker, embedded, handed to the vector store and dropped.
type Chunk struct {
	Content    string // trimmed, never empty
	ChunkIndex int    // dense 0..n-1 within one file, after size filtering
	Heading    string // literal markdown heading line, or "" when unlabeled
}

// Len returns the content length in characters (runes), the unit used by all
// chunk size limits.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Content)
}

// Validate checks if the chunk is usable for embedding.
func (c Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	if c.ChunkIndex < 0 {
		return ErrNegativeIdx
	}
	return nil
}
