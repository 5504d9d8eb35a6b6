package storage

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// HNSWConfig holds the graph parameters.
type HNSWConfig struct {
	M        int     // max neighbors per node
	EfSearch int     // candidate list size during search
	Ml       float64 // level generation factor
}

// HNSWStore implements VectorStore on a coder/hnsw graph with chunk payloads
// kept alongside in a gob file.
//
// Deletion is lazy: removed keys disappear from the entry map but their
// nodes stay in the graph until the store is rebuilt.
type HNSWStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	path  string

	entries map[uint64]hnswEntry
	byID    map[string]uint64
	nextKey uint64
	dim     int

	dirty  bool
	closed bool
}

type hnswEntry struct {
	ID         string
	FilePath   string
	ChunkIndex int
	Heading    string
	Content    string
}

// hnswMetadata is the persisted form of everything but the graph.
type hnswMetadata struct {
	Entries   map[uint64]hnswEntry
	NextKey   uint64
	Dimension int
}

// NewHNSWStore creates the store, loading path and path+".meta" when both exist.
func NewHNSWStore(path string, cfg HNSWConfig) (*HNSWStore, error) {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	if cfg.Ml == 0 {
		cfg.Ml = 0.25
	}

	s := &HNSWStore{
		graph:   newGraph(cfg),
		path:    path,
		entries: make(map[uint64]hnswEntry),
		byID:    make(map[string]uint64),
	}

	if _, err := os.Stat(path + ".meta"); err == nil {
		if err := s.load(); err != nil {
			return nil, storageErr("load hnsw index", err)
		}
		// Import restores the parameters saved with the graph.
		applyGraphConfig(s.graph, cfg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, storageErr("stat hnsw index", err)
	}

	return s, nil
}

func newGraph(cfg HNSWConfig) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	applyGraphConfig(g, cfg)
	return g
}

func applyGraphConfig(g *hnsw.Graph[uint64], cfg HNSWConfig) {
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = cfg.Ml
}

// Add inserts one node per chunk. A chunk ID that already exists is
// orphaned and re-added under a fresh key.
func (s *HNSWStore) Add(_ context.Context, filePath string, chunks []types.Chunk, embeddings [][]float32) error {
	if err := validateAdd(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %w", types.ErrStorage, ErrClosed)
	}

	dim := s.dim
	for _, e := range embeddings {
		if dim == 0 {
			dim = len(e)
		}
		if len(e) != dim || dim == 0 {
			return dimensionErr(dim, len(e))
		}
	}
	s.dim = dim

	for i, c := range chunks {
		id := ChunkID(filePath, c.ChunkIndex)
		if old, ok := s.byID[id]; ok {
			delete(s.entries, old)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		normalizeVectorInPlace(vec)
		s.graph.Add(hnsw.MakeNode(key, vec))

		s.entries[key] = hnswEntry{
			ID:         id,
			FilePath:   filePath,
			ChunkIndex: c.ChunkIndex,
			Heading:    c.Heading,
			Content:    c.Content,
		}
		s.byID[id] = key
	}
	s.dirty = true

	return nil
}

// DeleteByFile orphans every node belonging to filePath.
func (s *HNSWStore) DeleteByFile(_ context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %w", types.ErrStorage, ErrClosed)
	}

	for key, e := range s.entries {
		if e.FilePath == filePath {
			delete(s.entries, key)
			delete(s.byID, e.ID)
			s.dirty = true
		}
	}
	return nil
}

// Query searches the graph, widening k by the orphan count so lazily
// deleted nodes cannot crowd out live ones.
func (s *HNSWStore) Query(_ context.Context, embedding []float32, topK int) ([]types.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, ErrClosed)
	}
	if topK <= 0 || len(s.entries) == 0 {
		return []types.QueryResult{}, nil
	}
	if len(embedding) != s.dim {
		return nil, dimensionErr(s.dim, len(embedding))
	}

	q := make([]float32, len(embedding))
	copy(q, embedding)
	normalizeVectorInPlace(q)

	orphans := s.graph.Len() - len(s.entries)
	k := min(topK+orphans, s.graph.Len())

	nodes := s.graph.Search(q, k)
	results := make([]types.QueryResult, 0, min(topK, len(nodes)))
	for _, n := range nodes {
		e, ok := s.entries[n.Key]
		if !ok {
			continue
		}
		results = append(results, types.QueryResult{
			FilePath:   e.FilePath,
			Content:    e.Content,
			Heading:    e.Heading,
			ChunkIndex: e.ChunkIndex,
			Distance:   float64(s.graph.Distance(q, n.Value)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of live entries.
func (s *HNSWStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Orphans returns the number of lazily deleted graph nodes.
func (s *HNSWStore) Orphans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.graph.Len() - len(s.entries)
}

// Flush persists the graph and metadata when they changed since the last flush.
func (s *HNSWStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.dirty {
		return nil
	}
	if err := s.save(); err != nil {
		return storageErr("save hnsw index", err)
	}
	s.dirty = false
	return nil
}

// Close flushes pending changes and releases the graph.
func (s *HNSWStore) Close() error {
	if err := s.Flush(context.Background()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

// save writes the graph and the metadata via temp file + rename.
func (s *HNSWStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	err := writeAtomic(s.path, func(f *os.File) error {
		return s.graph.Export(f)
	})
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	meta := hnswMetadata{Entries: s.entries, NextKey: s.nextKey, Dimension: s.dim}
	err = writeAtomic(s.path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return nil
}

func (s *HNSWStore) load() error {
	mf, err := os.Open(s.path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = mf.Close() }()

	var meta hnswMetadata
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	gf, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = gf.Close() }()

	// Import needs an io.ByteReader
	if err := s.graph.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	s.entries = meta.Entries
	if s.entries == nil {
		s.entries = make(map[uint64]hnswEntry)
	}
	s.nextKey = meta.NextKey
	s.dim = meta.Dimension
	s.byID = make(map[string]uint64, len(s.entries))
	for key, e := range s.entries {
		s.byID[e.ID] = key
	}
	return nil
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

var _ VectorStore = (*HNSWStore)(nil)
