// Package storage persists index state: one FileRecord per document in
// SQLite and one vector entry per chunk in a pluggable VectorStore.
//
// # Metadata
//
// SQLiteStorage owns files.db. The files table holds path, content hash and
// mtime (REAL, Unix seconds) and is versioned with semver migrations. The
// driver is modernc.org/sqlite by default or github.com/mattn/go-sqlite3 when
// built with -tags sqlite_cgo.
//
// # Vector backends
//
//   - chromem: persistent chromem-go collection (default)
//   - hnsw: coder/hnsw graph with lazy deletion, flushed via Flusher
//   - sqlite: chunks table in files.db, brute-force cosine scan
//
// Every backend keys entries by ChunkID(path, index) and stores the chunk
// text plus file_path, chunk_index and heading. Query results carry cosine
// distance in ascending order.
//
// # Basic Usage
//
//	stores, err := storage.Open(ctx, storage.Options{
//	    Backend:      storage.BackendChromem,
//	    MetadataPath: cfg.MetadataPath(),
//	    ChromemPath:  cfg.ChromemPath(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer stores.Close()
//
//	hits, err := stores.Vectors.Query(ctx, embedding, 5)
//
// All stores are safe for concurrent use. Errors wrap types.ErrStorage.
package storage
