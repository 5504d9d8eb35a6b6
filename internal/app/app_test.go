package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/internal/config"
	"github.com/dshills/localrag-mcp/internal/embedder"
	"github.com/dshills/localrag-mcp/internal/storage"
	"github.com/dshills/localrag-mcp/pkg/types"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DocsDir = t.TempDir()
	cfg.Embedding.Provider = embedder.ProviderLocal
	cfg.Embedding.OutputDimensionality = 256
	cfg.Chunker.MinChunkChars = 1
	cfg.VectorStore.Backend = backend
	require.NoError(t, cfg.Finalize())
	return cfg
}

func writeDoc(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	path := filepath.Join(cfg.DocsDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSearchBuildsEmptyIndex(t *testing.T) {
	for _, backend := range []string{storage.BackendChromem, storage.BackendHNSW, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			writeDoc(t, cfg, "cooking.md", "# Pasta\nBoil water, add salt and cook the pasta.")
			writeDoc(t, cfg, "garden.md", "# Roses\nPrune roses in early spring.")
			a := newTestApp(t, cfg)

			resp, err := a.Search(context.Background(), "prune roses spring", a.DefaultTopK())
			require.NoError(t, err)
			assert.Equal(t, 2, resp.TotalChunks)
			assert.Equal(t, "prune roses spring", resp.Query)
			require.NotEmpty(t, resp.Results)
			assert.Equal(t, "garden.md", resp.Results[0].FilePath)
			assert.Equal(t, "# Roses", resp.Results[0].Heading)
			assert.LessOrEqual(t, len(resp.Results), cfg.Search.DefaultTopK)

			st, err := a.Status(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, st.TotalFiles)
		})
	}
}

func TestSearchRejectsInvalidInputBeforeIndexing(t *testing.T) {
	cfg := testConfig(t, storage.BackendSQLite)
	writeDoc(t, cfg, "a.md", "# A\nalpha")
	a := newTestApp(t, cfg)

	_, err := a.Search(context.Background(), "", 5)
	assert.ErrorIs(t, err, types.ErrValidation)

	for _, topK := range []int{0, -3, a.MaxTopK() + 1} {
		_, err = a.Search(context.Background(), "q", topK)
		assert.ErrorIs(t, err, types.ErrValidation, "top_k=%d", topK)
	}

	st, err := a.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalChunks)
}

func TestReindexIsDifferential(t *testing.T) {
	cfg := testConfig(t, storage.BackendChromem)
	writeDoc(t, cfg, "a.md", "# A\nalpha")
	a := newTestApp(t, cfg)

	first, err := a.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 1, first.APICallCount)

	second, err := a.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Unchanged)
	assert.Equal(t, 0, second.APICallCount)
}

func TestIndexSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, storage.BackendHNSW)
	writeDoc(t, cfg, "a.md", "# A\nalpha beta")

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.Reindex(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, cfg)
	summary, err := b.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, 1, summary.TotalChunks)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, storage.BackendSQLite)
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.APIKey = ""

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestProviderConfigOllamaModel(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = embedder.ProviderOllama
	assert.Equal(t, DefaultOllamaModel, providerConfig(cfg).Model)

	cfg.Embedding.Model = "mxbai-embed-large"
	assert.Equal(t, "mxbai-embed-large", providerConfig(cfg).Model)

	cfg.Embedding.Provider = embedder.ProviderGemini
	cfg.Embedding.Model = embedder.DefaultGeminiModel
	assert.Equal(t, embedder.DefaultGeminiModel, providerConfig(cfg).Model)
}
