package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/localrag-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrLengthMismatch is returned when chunks and embeddings don't pair up
	ErrLengthMismatch = errors.New("chunks and embeddings length mismatch")
)

// MetadataStore persists one FileRecord per indexed document.
type MetadataStore interface {
	// GetAll returns every record keyed by relative path
	GetAll(ctx context.Context) (map[string]types.FileRecord, error)
	// Upsert inserts or replaces the record for rec.Path
	Upsert(ctx context.Context, rec types.FileRecord) error
	// Delete removes the record for path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// VectorStore holds one entry per chunk, keyed by ChunkID.
type VectorStore interface {
	// Add stores chunks[i] with embeddings[i]. Existing IDs are overwritten.
	Add(ctx context.Context, filePath string, chunks []types.Chunk, embeddings [][]float32) error
	// DeleteByFile removes every entry whose file_path equals filePath
	DeleteByFile(ctx context.Context, filePath string) error
	// Query returns up to topK nearest entries ordered by ascending cosine distance
	Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Flusher is implemented by vector stores that buffer writes in memory and
// persist them on demand.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ChunkID returns the vector store identity of a chunk.
func ChunkID(filePath string, chunkIndex int) string {
	return fmt.Sprintf("%s::chunk_%d", filePath, chunkIndex)
}

// Backend names accepted by Open.
const (
	BackendChromem = "chromem"
	BackendHNSW    = "hnsw"
	BackendSQLite  = "sqlite"
)

// Options configures Open.
type Options struct {
	Backend        string
	MetadataPath   string // files.db
	ChromemPath    string // directory of the chromem collection
	HNSWPath       string // graph file, the metadata lives at HNSWPath+".meta"
	CollectionName string
	HNSW           HNSWConfig
}

// Stores bundles the metadata store with the selected vector backend.
type Stores struct {
	Meta    *SQLiteStorage
	Vectors VectorStore
}

// Open creates the metadata store and the configured vector store.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	meta, err := NewSQLiteStorage(ctx, opts.MetadataPath)
	if err != nil {
		return nil, err
	}

	var vectors VectorStore
	switch opts.Backend {
	case BackendChromem, "":
		vectors, err = NewChromemStore(opts.ChromemPath, opts.CollectionName)
	case BackendHNSW:
		vectors, err = NewHNSWStore(opts.HNSWPath, opts.HNSW)
	case BackendSQLite:
		vectors = NewSQLiteVectorStore(meta)
	default:
		err = fmt.Errorf("%w: unknown vector store backend %q", types.ErrConfiguration, opts.Backend)
	}
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	return &Stores{Meta: meta, Vectors: vectors}, nil
}

// Close closes the vector store, flushing it first when supported, then the
// metadata store.
func (s *Stores) Close() error {
	var errs []error
	if f, ok := s.Vectors.(Flusher); ok {
		errs = append(errs, f.Flush(context.Background()))
	}
	errs = append(errs, s.Vectors.Close(), s.Meta.Close())
	return errors.Join(errs...)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", types.ErrStorage, op, err)
}

func validateAdd(chunks []types.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %w: %d chunks, %d embeddings",
			types.ErrStorage, ErrLengthMismatch, len(chunks), len(embeddings))
	}
	return nil
}
