// Package app wires configuration into a running index: embedder client,
// stores, sync engine and searcher. The CLI, MCP server and HTTP API all
// drive the index through an App.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/internal/chunker"
	"github.com/dshills/localrag-mcp/internal/config"
	"github.com/dshills/localrag-mcp/internal/embedder"
	"github.com/dshills/localrag-mcp/internal/indexer"
	"github.com/dshills/localrag-mcp/internal/logging"
	"github.com/dshills/localrag-mcp/internal/scanner"
	"github.com/dshills/localrag-mcp/internal/searcher"
	"github.com/dshills/localrag-mcp/internal/storage"
	"github.com/dshills/localrag-mcp/pkg/types"
)

// DefaultOllamaModel replaces the Gemini default model name when the ollama
// provider is selected without an explicit model.
const DefaultOllamaModel = "nomic-embed-text"

// SearchResponse is the outcome of one search request.
type SearchResponse struct {
	Results     []types.SearchResult `json:"results"`
	TotalChunks int                  `json:"total_chunks"`
	Query       string               `json:"query"`
}

// App owns every long-lived component. It is safe for concurrent use.
type App struct {
	cfg      *config.Config
	logger   zerolog.Logger
	client   *embedder.Client
	stores   *storage.Stores
	scanner  *scanner.Scanner
	engine   *indexer.Engine
	searcher *searcher.Searcher
}

// New validates cfg and opens all components. cfg must be finalized.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := embedder.NewProvider(providerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfiguration, err)
	}

	client := embedder.NewClient(provider, embedder.ClientConfig{
		BatchSize: cfg.Embedding.BatchSize,
		Retry: embedder.RetryConfig{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay.Std(),
			MaxDelay:   cfg.Retry.MaxDelay.Std(),
			Multiplier: cfg.Retry.BackoffFactor,
		},
		QueryCacheSize: cfg.Embedding.QueryCacheSize,
	}, logger)

	stores, err := storage.Open(ctx, storage.Options{
		Backend:        cfg.VectorStore.Backend,
		MetadataPath:   cfg.MetadataPath(),
		ChromemPath:    cfg.ChromemPath(),
		HNSWPath:       cfg.HNSWPath(),
		CollectionName: cfg.VectorStore.CollectionName,
		HNSW: storage.HNSWConfig{
			M:        cfg.VectorStore.HNSWM,
			EfSearch: cfg.VectorStore.HNSWSearchEF,
		},
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	a, err := assemble(cfg, logger, client, stores)
	if err != nil {
		_ = stores.Close()
		_ = client.Close()
		return nil, err
	}

	logger.Info().
		Str("docs_dir", cfg.DocsDir).
		Str("data_dir", cfg.DataDir).
		Str("provider", provider.Name()).
		Str("model", provider.Model()).
		Str("vector_store", cfg.VectorStore.Backend).
		Msg("components initialized")

	return a, nil
}

func assemble(cfg *config.Config, logger zerolog.Logger, client *embedder.Client, stores *storage.Stores) (*App, error) {
	lock, err := indexer.NewWriterLock(cfg.LockPath())
	if err != nil {
		return nil, err
	}

	sc := scanner.New(cfg.DocsDir, scanner.Config{
		Extensions:  cfg.Scanner.FileExtensions,
		ExcludeDirs: cfg.Scanner.ExcludeDirs,
	}, logger)

	engine, err := indexer.New(indexer.Options{
		Scanner: sc,
		Chunker: chunker.New(chunker.Config{
			MaxChars:      cfg.Chunker.MaxChunkChars,
			MinChars:      cfg.Chunker.MinChunkChars,
			HeadingLevels: cfg.Chunker.HeadingLevels,
		}),
		Embedder: client,
		Vectors:  stores.Vectors,
		Meta:     stores.Meta,
		Lock:     lock,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		stores:   stores,
		scanner:  sc,
		engine:   engine,
		searcher: searcher.New(stores.Vectors, client, cfg.Search.MaxTopK, logger),
	}, nil
}

func providerConfig(cfg *config.Config) embedder.Config {
	model := cfg.Embedding.Model
	if cfg.Embedding.Provider == embedder.ProviderOllama && (model == "" || model == embedder.DefaultGeminiModel) {
		model = DefaultOllamaModel
	}
	return embedder.Config{
		Provider:             cfg.Embedding.Provider,
		APIKey:               cfg.Embedding.APIKey,
		Model:                model,
		BaseURL:              cfg.Embedding.BaseURL,
		OllamaURL:            cfg.Embedding.OllamaURL,
		OutputDimensionality: cfg.Embedding.OutputDimensionality,
		TaskTypeDocument:     cfg.Embedding.TaskTypeDocument,
		TaskTypeQuery:        cfg.Embedding.TaskTypeQuery,
		BatchSize:            cfg.Embedding.BatchSize,
		Timeout:              cfg.Embedding.Timeout.Std(),
	}
}

// Config returns the finalized configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Scanner returns the docs directory scanner.
func (a *App) Scanner() *scanner.Scanner {
	return a.scanner
}

// Engine returns the sync engine.
func (a *App) Engine() *indexer.Engine {
	return a.engine
}

// DefaultTopK is used when a request leaves top_k unset.
func (a *App) DefaultTopK() int {
	return a.cfg.Search.DefaultTopK
}

// MaxTopK is the largest accepted top_k.
func (a *App) MaxTopK() int {
	return a.searcher.MaxTopK()
}

// Search runs a query, building the index first when it is empty. topK is
// validated as given; callers substitute DefaultTopK only when the request
// left it unset.
func (a *App) Search(ctx context.Context, query string, topK int) (*SearchResponse, error) {
	if err := a.searcher.Validate(query, topK); err != nil {
		return nil, err
	}
	defer logging.Timer(a.logger, "search_total")()

	a.logger.Info().Str("query", query).Int("top_k", topK).Msg("search request")

	count, err := a.stores.Vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		a.logger.Info().Msg("index is empty, performing initial indexing")
		if _, err := a.engine.Update(ctx); err != nil {
			return nil, err
		}
	}

	results, err := a.searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		a.logger.Debug().
			Int("rank", i+1).
			Float64("score", r.Score).
			Str("file", r.FilePath).
			Str("heading", r.Heading).
			Msg("search hit")
	}

	total, err := a.stores.Vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Results: results, TotalChunks: total, Query: query}, nil
}

// Reindex runs one differential update.
func (a *App) Reindex(ctx context.Context) (*types.UpdateSummary, error) {
	a.logger.Info().Msg("reindex request received")
	defer logging.Timer(a.logger, "reindex_total")()
	return a.engine.Update(ctx)
}

// Status reports index counts.
func (a *App) Status(ctx context.Context) (*indexer.Status, error) {
	return a.engine.Status(ctx)
}

// Close flushes and closes the stores and the embedder client.
func (a *App) Close() error {
	return errors.Join(a.stores.Close(), a.client.Close())
}
