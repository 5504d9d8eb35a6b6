package config

import (
	"fmt"
	"os"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// Supported providers and vector store backends.
var (
	Providers = []string{"gemini", "ollama", "local"}
	Backends  = []string{"chromem", "hnsw", "sqlite"}
)

// Validate checks the configuration. Every failure wraps types.ErrConfiguration
// and is fatal at startup.
func (c *Config) Validate() error {
	if c.DocsDir == "" {
		return configErr("docs directory is required")
	}
	info, err := os.Stat(c.DocsDir)
	if err != nil {
		return configErr("docs directory %s: %v", c.DocsDir, err)
	}
	if !info.IsDir() {
		return configErr("docs path %s is not a directory", c.DocsDir)
	}

	if err := c.Chunker.validate(); err != nil {
		return err
	}
	if len(c.Scanner.FileExtensions) == 0 {
		return configErr("scanner.file_extensions must not be empty")
	}
	if err := c.Embedding.validate(); err != nil {
		return err
	}
	if err := c.Retry.validate(); err != nil {
		return err
	}
	if err := c.VectorStore.validate(); err != nil {
		return err
	}

	if c.Search.MaxTopK < 1 {
		return configErr("search.max_top_k must be >= 1, got %d", c.Search.MaxTopK)
	}
	if c.Search.DefaultTopK < 1 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return configErr("search.default_top_k must be between 1 and %d, got %d",
			c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	return nil
}

func (c ChunkerConfig) validate() error {
	if c.MinChunkChars < 1 {
		return configErr("chunker.min_chunk_chars must be >= 1, got %d", c.MinChunkChars)
	}
	if c.MaxChunkChars < c.MinChunkChars {
		return configErr("chunker.max_chunk_chars (%d) must be >= min_chunk_chars (%d)",
			c.MaxChunkChars, c.MinChunkChars)
	}
	if len(c.HeadingLevels) == 0 {
		return configErr("chunker.heading_levels must not be empty")
	}
	for _, lvl := range c.HeadingLevels {
		if lvl < 1 || lvl > 6 {
			return configErr("chunker.heading_levels: level %d out of range 1-6", lvl)
		}
	}
	return nil
}

func (e EmbeddingConfig) validate() error {
	if !contains(Providers, e.Provider) {
		return configErr("embedding.provider %q not supported (want one of %v)", e.Provider, Providers)
	}
	if e.Provider == "gemini" && e.APIKey == "" {
		return configErr("gemini provider requires %s or %s", EnvGeminiAPIKey, EnvGoogleAPIKey)
	}
	if e.Model == "" && e.Provider != "local" {
		return configErr("embedding.model is required")
	}
	if e.BatchSize < 1 {
		return configErr("embedding.batch_size must be >= 1, got %d", e.BatchSize)
	}
	if e.OutputDimensionality < 0 {
		return configErr("embedding.output_dimensionality must be >= 0")
	}
	return nil
}

func (r RetryConfig) validate() error {
	if r.MaxRetries < 1 {
		return configErr("retry.max_retries must be >= 1, got %d", r.MaxRetries)
	}
	if r.BaseDelay < 0 {
		return configErr("retry.base_delay must not be negative")
	}
	if r.BackoffFactor < 1 {
		return configErr("retry.backoff_factor must be >= 1, got %v", r.BackoffFactor)
	}
	return nil
}

func (v VectorStoreConfig) validate() error {
	if !contains(Backends, v.Backend) {
		return configErr("vector_store.backend %q not supported (want one of %v)", v.Backend, Backends)
	}
	// Scores are 1 - distance, which is only meaningful for cosine distance.
	if v.Distance != "cosine" {
		return configErr("vector_store.distance %q not supported, only cosine", v.Distance)
	}
	if v.CollectionName == "" {
		return configErr("vector_store.collection_name is required")
	}
	if v.HNSWM < 2 {
		return configErr("vector_store.hnsw_m must be >= 2, got %d", v.HNSWM)
	}
	if v.HNSWSearchEF < 1 {
		return configErr("vector_store.hnsw_search_ef must be >= 1, got %d", v.HNSWSearchEF)
	}
	return nil
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrConfiguration, fmt.Sprintf(format, args...))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
