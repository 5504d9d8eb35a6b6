package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/pkg/types"
)

type storeFactory func(t *testing.T) VectorStore

func vectorBackends() map[string]storeFactory {
	return map[string]storeFactory{
		BackendSQLite: func(t *testing.T) VectorStore {
			return NewSQLiteVectorStore(setupTestDB(t))
		},
		BackendChromem: func(t *testing.T) VectorStore {
			s, err := NewChromemStore(filepath.Join(t.TempDir(), "chroma"), "documents")
			require.NoError(t, err)
			return s
		},
		BackendHNSW: func(t *testing.T) VectorStore {
			s, err := NewHNSWStore(filepath.Join(t.TempDir(), "vectors.hnsw"), HNSWConfig{})
			require.NoError(t, err)
			return s
		},
	}
}

func chunksOf(contents ...string) []types.Chunk {
	out := make([]types.Chunk, len(contents))
	for i, c := range contents {
		out[i] = types.Chunk{Content: c, ChunkIndex: i, Heading: "# " + c}
	}
	return out
}

func TestVectorStoreContract(t *testing.T) {
	for name, factory := range vectorBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			defer func() { _ = store.Close() }()

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			res, err := store.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, res)

			require.NoError(t, store.Add(ctx, "a.md", chunksOf("alpha", "beta"),
				[][]float32{{1, 0, 0}, {0, 1, 0}}))
			require.NoError(t, store.Add(ctx, "b.md", chunksOf("gamma"),
				[][]float32{{0.9, 0.1, 0}}))

			n, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			res, err = store.Query(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, res, 2)
			assert.Equal(t, "a.md", res[0].FilePath)
			assert.Equal(t, 0, res[0].ChunkIndex)
			assert.Equal(t, "alpha", res[0].Content)
			assert.Equal(t, "# alpha", res[0].Heading)
			assert.InDelta(t, 0.0, res[0].Distance, 1e-5)
			assert.Equal(t, "b.md", res[1].FilePath)
			assert.LessOrEqual(t, res[0].Distance, res[1].Distance)

			// topK larger than the store returns everything
			res, err = store.Query(ctx, []float32{1, 0, 0}, 100)
			require.NoError(t, err)
			assert.Len(t, res, 3)

			require.NoError(t, store.DeleteByFile(ctx, "a.md"))
			require.NoError(t, store.DeleteByFile(ctx, "missing.md"))

			n, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			res, err = store.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, "b.md", res[0].FilePath)
		})
	}
}

func TestVectorStoreOverwritesSameID(t *testing.T) {
	for name, factory := range vectorBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Add(ctx, "a.md", chunksOf("old"), [][]float32{{1, 0}}))
			require.NoError(t, store.Add(ctx, "a.md", chunksOf("new"), [][]float32{{0, 1}}))

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			res, err := store.Query(ctx, []float32{0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, "new", res[0].Content)
		})
	}
}

func TestVectorStoreRejectsLengthMismatch(t *testing.T) {
	for name, factory := range vectorBackends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer func() { _ = store.Close() }()

			err := store.Add(context.Background(), "a.md", chunksOf("x", "y"), [][]float32{{1}})
			assert.ErrorIs(t, err, types.ErrStorage)
			assert.ErrorIs(t, err, ErrLengthMismatch)
		})
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "docs/a.md::chunk_0", ChunkID("docs/a.md", 0))
	assert.Equal(t, "b.txt::chunk_12", ChunkID("b.txt", 12))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 0}))
}

func TestSerializeVector(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, deserializeVector(serializeVector(v)))
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		MetadataPath:   filepath.Join(dir, "files.db"),
		ChromemPath:    filepath.Join(dir, "chroma"),
		HNSWPath:       filepath.Join(dir, "vectors.hnsw"),
		CollectionName: "documents",
	}

	for backend, want := range map[string]interface{}{
		BackendChromem: &ChromemStore{},
		BackendHNSW:    &HNSWStore{},
		BackendSQLite:  &SQLiteVectorStore{},
	} {
		opts.Backend = backend
		stores, err := Open(context.Background(), opts)
		require.NoError(t, err, backend)
		assert.IsType(t, want, stores.Vectors, backend)
		require.NoError(t, stores.Close())
	}

	opts.Backend = "qdrant"
	_, err := Open(context.Background(), opts)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
