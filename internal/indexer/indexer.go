package indexer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/internal/chunker"
	"github.com/dshills/localrag-mcp/internal/embedder"
	"github.com/dshills/localrag-mcp/internal/scanner"
	"github.com/dshills/localrag-mcp/internal/storage"
	"github.com/dshills/localrag-mcp/pkg/types"
)

// DocumentEmbedder embeds chunk texts. *embedder.Client satisfies it.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) (*embedder.BatchResponse, error)
	// DocumentBatches is the running count of document batch requests
	DocumentBatches() int64
}

// Options wires the engine's collaborators.
type Options struct {
	Scanner  *scanner.Scanner
	Chunker  *chunker.Chunker
	Embedder DocumentEmbedder
	Vectors  storage.VectorStore
	Meta     storage.MetadataStore
	Lock     *WriterLock // nil gives an in-process lock
	Logger   zerolog.Logger
}

// Engine keeps the vector store and the metadata store in step with the
// files under the docs root.
type Engine struct {
	scanner  *scanner.Scanner
	chunker  *chunker.Chunker
	embedder DocumentEmbedder
	vectors  storage.VectorStore
	meta     storage.MetadataStore
	lock     *WriterLock
	logger   zerolog.Logger

	mu          sync.RWMutex
	lastUpdate  time.Time
	lastSummary *types.UpdateSummary
}

// Status reports the size of the index and the last completed update.
type Status struct {
	DocsDir     string               `json:"docs_dir"`
	TotalFiles  int                  `json:"total_files"`
	TotalChunks int                  `json:"total_chunks"`
	LastUpdate  *time.Time           `json:"last_update,omitempty"`
	LastSummary *types.UpdateSummary `json:"last_summary,omitempty"`
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Scanner == nil || opts.Chunker == nil || opts.Embedder == nil ||
		opts.Vectors == nil || opts.Meta == nil {
		return nil, fmt.Errorf("%w: indexer requires scanner, chunker, embedder and both stores", types.ErrConfiguration)
	}
	lock := opts.Lock
	if lock == nil {
		lock, _ = NewWriterLock("")
	}
	return &Engine{
		scanner:  opts.Scanner,
		chunker:  opts.Chunker,
		embedder: opts.Embedder,
		vectors:  opts.Vectors,
		meta:     opts.Meta,
		lock:     lock,
		logger:   opts.Logger.With().Str("component", "indexer").Logger(),
	}, nil
}

// Scan classifies the files under the docs root against the metadata store
// without modifying anything.
func (e *Engine) Scan(ctx context.Context) (*types.ScanResult, error) {
	known, err := e.meta.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return e.scanner.Scan(ctx, known)
}

// Update runs one differential synchronization cycle. Calls are serialized;
// a second call waits for the first to finish.
func (e *Engine) Update(ctx context.Context) (*types.UpdateSummary, error) {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	defer release()

	start := time.Now()
	batchesBefore := e.embedder.DocumentBatches()
	e.logger.Info().Msg("starting index update")

	scan, err := e.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	e.logger.Info().
		Int("new", len(scan.New)).
		Int("updated", len(scan.Updated)).
		Int("deleted", len(scan.Deleted)).
		Int("unchanged", len(scan.Unchanged)).
		Msg("scan complete")

	summary := &types.UpdateSummary{
		Added:     len(scan.New),
		Updated:   len(scan.Updated),
		Deleted:   len(scan.Deleted),
		Unchanged: len(scan.Unchanged),
	}

	for _, path := range scan.Deleted {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("update cancelled: %w", err)
		}
		if err := e.removeFile(ctx, path); err != nil {
			summary.Failed++
			e.logger.Error().Err(err).Str("path", path).Msg("failed to delete file from index")
		}
	}

	// Stores that buffer writes get their metadata committed only after a
	// successful Flush, so a record never points at unpersisted vectors.
	flusher, buffered := e.vectors.(storage.Flusher)
	var pending []types.FileRecord
	commit := func(rec types.FileRecord) {
		if err := e.meta.Upsert(ctx, rec); err != nil {
			summary.Failed++
			e.logger.Error().Err(err).Str("path", rec.Path).Msg("failed to record file")
		}
	}

	process := func(paths []string, isUpdate bool) error {
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("update cancelled: %w", err)
			}
			rec, err := e.processFile(ctx, path, isUpdate)
			if err != nil {
				summary.Failed++
				e.logger.Error().Err(err).Str("path", path).Msg("failed to process file")
				continue
			}
			switch {
			case rec == nil:
			case buffered:
				pending = append(pending, *rec)
			default:
				commit(*rec)
			}
		}
		return nil
	}
	if err := process(scan.New, false); err != nil {
		return nil, err
	}
	if err := process(scan.Updated, true); err != nil {
		return nil, err
	}

	if buffered {
		if err := flusher.Flush(ctx); err != nil {
			return nil, fmt.Errorf("failed to flush vector store: %w", err)
		}
		for _, rec := range pending {
			commit(rec)
		}
	}

	// Touched files kept their content; refreshing the mtime lets the next
	// scan skip hashing them.
	for _, rec := range scan.Touched {
		if err := e.meta.Upsert(ctx, rec); err != nil {
			e.logger.Warn().Err(err).Str("path", rec.Path).Msg("failed to refresh modification time")
		}
	}

	total, err := e.vectors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	summary.TotalChunks = total
	summary.APICallCount = int(e.embedder.DocumentBatches() - batchesBefore)
	summary.Duration = time.Since(start)

	e.mu.Lock()
	e.lastUpdate = time.Now()
	e.lastSummary = summary
	e.mu.Unlock()

	e.logger.Info().
		Int("added", summary.Added).
		Int("updated", summary.Updated).
		Int("deleted", summary.Deleted).
		Int("failed", summary.Failed).
		Int("total_chunks", summary.TotalChunks).
		Int("api_calls", summary.APICallCount).
		Dur("duration", summary.Duration).
		Msg("index update complete")

	return summary, nil
}

// removeFile drops a vanished file. The metadata record is only removed once
// its chunks are gone, so a failure is retried next cycle.
func (e *Engine) removeFile(ctx context.Context, path string) error {
	e.logger.Debug().Str("path", path).Msg("deleting")
	if err := e.vectors.DeleteByFile(ctx, path); err != nil {
		return err
	}
	return e.meta.Delete(ctx, path)
}

// processFile (re)indexes one new or updated file and returns the record to
// commit once its chunks are stored, or nil when the file yields no chunks.
// Any chunks already stored for the path are dropped first, including those
// left by an earlier attempt that never got its record.
func (e *Engine) processFile(ctx context.Context, path string, isUpdate bool) (*types.FileRecord, error) {
	abs := e.scanner.AbsPath(path)
	e.logger.Debug().Str("path", path).Bool("update", isUpdate).Msg("processing")

	if err := e.vectors.DeleteByFile(ctx, path); err != nil {
		return nil, err
	}

	// The record describes the bytes that were chunked. The mtime is taken
	// first, so an edit racing the read shows up as a change next cycle.
	mtime, err := scanner.Stat(abs)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFileAccess, err)
	}
	rec := &types.FileRecord{Path: path, Hash: scanner.HashBytes(raw), ModTime: mtime}

	content, encoding, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if encoding != decodeStrategies[0].name {
		e.logger.Debug().Str("path", path).Str("encoding", encoding).Msg("decoded with fallback encoding")
	}

	chunks := e.chunker.ChunkFile(path, content)
	if len(chunks) == 0 {
		e.logger.Warn().Str("path", path).Msg("no chunks generated")
		return nil, nil
	}
	e.logger.Debug().Str("path", path).Int("chunks", len(chunks)).Msg("chunked")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	resp, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(resp.Vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", types.ErrEmbeddingService, len(resp.Vectors), len(chunks))
	}

	if err := e.vectors.Add(ctx, path, chunks, resp.Vectors); err != nil {
		return nil, err
	}
	return rec, nil
}

// Status returns index counts and the outcome of the last update.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	files, err := e.meta.Count(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := e.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{DocsDir: e.scanner.Root(), TotalFiles: files, TotalChunks: chunks}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.lastUpdate.IsZero() {
		t := e.lastUpdate
		st.LastUpdate = &t
		s := *e.lastSummary
		st.LastSummary = &s
	}
	return st, nil
}
