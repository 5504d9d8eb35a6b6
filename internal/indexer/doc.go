// Package indexer keeps the search index in step with a documentation
// directory.
//
// # Basic Usage
//
//	engine, err := indexer.New(indexer.Options{
//	    Scanner:  scanner.New(cfg.DocsDir, scanCfg, logger),
//	    Chunker:  chunker.New(chunkCfg),
//	    Embedder: client,
//	    Vectors:  stores.Vectors,
//	    Meta:     stores.Meta,
//	    Lock:     lock,
//	    Logger:   logger,
//	})
//
//	summary, err := engine.Update(ctx)
//	fmt.Printf("%d added, %d updated, %d deleted\n",
//	    summary.Added, summary.Updated, summary.Deleted)
//
// # Update Cycle
//
// Update runs a differential sync:
//
//  1. Acquire the writer lock (in-process semaphore plus a file lock)
//  2. Scan: list files, compare mtime, hash only when mtime moved
//  3. Deleted files: drop chunks, then the metadata record
//  4. New files, then updated files: drop old chunks (updates only), read,
//     decode, chunk, embed, store chunks, then write the metadata record
//
// Unchanged files are never read. Calling Update twice with no filesystem
// change issues no embedding requests the second time.
//
// # Failure Isolation
//
// A file that fails to read, decode, embed or store is logged and counted in
// UpdateSummary.Failed; the cycle continues. Its metadata record is left as
// it was, so the next cycle classifies it as new or updated again.
//
// Only context cancellation and scan errors abort a cycle.
//
// # Decoding
//
// Content is decoded as UTF-8 (BOM stripped), falling back to ISO-8859-1,
// which accepts any byte sequence.
package indexer
