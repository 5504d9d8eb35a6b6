package storage

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// Metadata keys stored with every chromem document.
const (
	metaFilePath   = "file_path"
	metaChunkIndex = "chunk_index"
	metaHeading    = "heading"
)

// ChromemStore is a persistent chromem-go collection. Every write is flushed
// to disk by chromem itself.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	path       string
}

// NewChromemStore opens (creating if needed) the collection name under dir.
func NewChromemStore(dir, name string) (*ChromemStore, error) {
	if name == "" {
		name = "documents"
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, storageErr("open chromem database", err)
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	c, err := db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, storageErr("open chromem collection", err)
	}

	return &ChromemStore{db: db, collection: c, path: dir}, nil
}

// Add stores one document per chunk.
func (s *ChromemStore) Add(ctx context.Context, filePath string, chunks []types.Chunk, embeddings [][]float32) error {
	if err := validateAdd(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		emb := make([]float32, len(embeddings[i]))
		copy(emb, embeddings[i])
		normalizeVectorInPlace(emb)
		docs[i] = chromem.Document{
			ID:      ChunkID(filePath, c.ChunkIndex),
			Content: c.Content,
			Metadata: map[string]string{
				metaFilePath:   filePath,
				metaChunkIndex: strconv.Itoa(c.ChunkIndex),
				metaHeading:    c.Heading,
			},
			Embedding: emb,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return storageErr("add documents", err)
	}
	return nil
}

// DeleteByFile removes every document whose file_path metadata equals filePath.
func (s *ChromemStore) DeleteByFile(ctx context.Context, filePath string) error {
	if err := s.collection.Delete(ctx, map[string]string{metaFilePath: filePath}, nil); err != nil {
		return storageErr("delete documents", err)
	}
	return nil
}

// Query returns the nearest documents. chromem rejects nResults larger than
// the collection, so topK is clamped.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryResult, error) {
	n := min(topK, s.collection.Count())
	if n <= 0 {
		return []types.QueryResult{}, nil
	}

	q := make([]float32, len(embedding))
	copy(q, embedding)
	normalizeVectorInPlace(q)

	hits, err := s.collection.QueryEmbedding(ctx, q, n, nil, nil)
	if err != nil {
		return nil, storageErr("query collection", err)
	}

	results := make([]types.QueryResult, 0, len(hits))
	for _, h := range hits {
		idx, err := strconv.Atoi(h.Metadata[metaChunkIndex])
		if err != nil {
			return nil, storageErr("decode chunk index", fmt.Errorf("document %s: %w", h.ID, err))
		}
		results = append(results, types.QueryResult{
			FilePath:   h.Metadata[metaFilePath],
			Content:    h.Content,
			Heading:    h.Metadata[metaHeading],
			ChunkIndex: idx,
			Distance:   1 - float64(h.Similarity),
		})
	}
	return results, nil
}

// Count returns the number of documents in the collection.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close is a no-op, chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}

var _ VectorStore = (*ChromemStore)(nil)
