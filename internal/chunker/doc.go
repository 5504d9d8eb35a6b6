// Package chunker divides documents into bounded, heading-labeled chunks for
// embedding and search.
//
// # Basic Usage
//
//	c := chunker.New(chunker.Config{MaxChars: 3000, MinChars: 50, HeadingLevels: []int{1, 2, 3}})
//	chunks := c.ChunkFile("guides/setup.md", content)
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%d %q (%d chars)\n", chunk.ChunkIndex, chunk.Heading, chunk.Len())
//	}
//
// # Chunking Strategy
//
// Markdown files (.md, .markdown) are split at heading lines whose depth is in
// the configured set. Text before the first retained heading becomes an
// unlabeled section; every other section starts with, and is labeled by, its
// heading line. All other files are split into paragraphs at blank lines.
//
// Sections longer than MaxChars are cut at the latest sentence boundary inside
// the window ("。", ".", "\n\n", "\n"), or forced at exactly MaxChars when the
// window contains none. Pieces shorter than MinChars after trimming are dropped,
// and ChunkIndex counts surviving chunks only.
//
// All lengths are measured in characters (runes), not bytes.
package chunker
