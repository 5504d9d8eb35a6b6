package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// DefaultDataDirName is the index directory created inside the docs root.
const DefaultDataDirName = ".rag-index"

// ConfigFileName is looked up in the docs root and the working directory.
const ConfigFileName = "config.yaml"

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider             string   `yaml:"provider"`
	Model                string   `yaml:"model"`
	OutputDimensionality int      `yaml:"output_dimensionality"`
	BatchSize            int      `yaml:"batch_size"`
	TaskTypeDocument     string   `yaml:"task_type_document"`
	TaskTypeQuery        string   `yaml:"task_type_query"`
	BaseURL              string   `yaml:"base_url"`
	OllamaURL            string   `yaml:"ollama_url"`
	Timeout              Duration `yaml:"timeout"`
	QueryCacheSize       int      `yaml:"query_cache_size"`
	APIKey               string   `yaml:"-"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	MaxChunkChars int   `yaml:"max_chunk_chars"`
	MinChunkChars int   `yaml:"min_chunk_chars"`
	HeadingLevels []int `yaml:"heading_levels"`
}

// VectorStoreConfig selects the vector store backend and its ANN parameters.
type VectorStoreConfig struct {
	Backend            string `yaml:"backend"`
	CollectionName     string `yaml:"collection_name"`
	Distance           string `yaml:"distance"`
	HNSWConstructionEF int    `yaml:"hnsw_construction_ef"`
	HNSWSearchEF       int    `yaml:"hnsw_search_ef"`
	HNSWM              int    `yaml:"hnsw_m"`
}

// SearchConfig bounds search requests.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// RetryConfig configures embedding retries.
type RetryConfig struct {
	MaxRetries    int      `yaml:"max_retries"`
	BaseDelay     Duration `yaml:"base_delay"`
	BackoffFactor float64  `yaml:"backoff_factor"`
	MaxDelay      Duration `yaml:"max_delay"`
}

// ScannerConfig selects which files are indexed.
type ScannerConfig struct {
	FileExtensions []string `yaml:"file_extensions"`
	ExcludeDirs    []string `yaml:"exclude_dirs"`
}

// ServerConfig configures the long-running serve mode.
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Watch          bool     `yaml:"watch"`
	WatchDebounce  Duration `yaml:"watch_debounce"`
}

// LoggingConfig configures log level and the optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the root application configuration.
type Config struct {
	DocsDir string `yaml:"docs_dir"`
	DataDir string `yaml:"data_dir"`

	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Search      SearchConfig      `yaml:"search"`
	Retry       RetryConfig       `yaml:"retry"`
	Scanner     ScannerConfig     `yaml:"scanner"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`

	// Source is the file the configuration was read from, "" for defaults.
	Source string `yaml:"-"`
}

// chromaDBSection is the legacy "chromadb" section, accepted as an alias of
// "vector_store".
type chromaDBSection struct {
	CollectionName     string `yaml:"collection_name"`
	HNSWSpace          string `yaml:"hnsw_space"`
	HNSWConstructionEF int    `yaml:"hnsw_construction_ef"`
	HNSWSearchEF       int    `yaml:"hnsw_search_ef"`
	HNSWM              int    `yaml:"hnsw_M"`
}

type fileConfig struct {
	Config   `yaml:",inline"`
	ChromaDB *chromaDBSection `yaml:"chromadb"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:             "gemini",
			Model:                "gemini-embedding-001",
			OutputDimensionality: 768,
			BatchSize:            100,
			TaskTypeDocument:     "RETRIEVAL_DOCUMENT",
			TaskTypeQuery:        "RETRIEVAL_QUERY",
			OllamaURL:            "http://localhost:11434",
			Timeout:              Duration(30 * time.Second),
			QueryCacheSize:       1000,
		},
		Chunker: ChunkerConfig{
			MaxChunkChars: 3000,
			MinChunkChars: 50,
			HeadingLevels: []int{1, 2, 3},
		},
		VectorStore: VectorStoreConfig{
			Backend:            "chromem",
			CollectionName:     "documents",
			Distance:           "cosine",
			HNSWConstructionEF: 200,
			HNSWSearchEF:       100,
			HNSWM:              16,
		},
		Search: SearchConfig{
			DefaultTopK: 5,
			MaxTopK:     100,
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			BaseDelay:     Duration(time.Second),
			BackoffFactor: 2.0,
			MaxDelay:      Duration(30 * time.Second),
		},
		Scanner: ScannerConfig{
			FileExtensions: []string{".md", ".txt"},
			ExcludeDirs:    []string{DefaultDataDirName, "data", ".git", "__pycache__", "node_modules"},
		},
		Server: ServerConfig{
			RequestTimeout: Duration(120 * time.Second),
			WatchDebounce:  Duration(2 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a config file and merges it over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrConfiguration, path, err)
	}

	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", types.ErrConfiguration, path, err)
	}
	if fc.ChromaDB != nil {
		fc.Config.VectorStore = mergeChromaDB(fc.Config.VectorStore, *fc.ChromaDB)
	}
	out := fc.Config
	out.Source = path
	return &out, nil
}

// Resolve finds and loads the configuration using the lookup order:
// explicit path, <docsDir>/config.yaml, ./config.yaml, built-in defaults.
// An explicit path that does not exist is an error.
func Resolve(explicit, docsDir string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", types.ErrConfiguration, explicit, err)
		}
		return Load(explicit)
	}

	candidates := []string{}
	if docsDir != "" {
		candidates = append(candidates, filepath.Join(docsDir, ConfigFileName))
	}
	candidates = append(candidates, ConfigFileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// Finalize fills paths derived from the docs directory. It must run after
// environment overrides and command-line flags were applied.
func (c *Config) Finalize() error {
	if c.DocsDir == "" {
		return fmt.Errorf("%w: docs directory is required", types.ErrConfiguration)
	}
	abs, err := filepath.Abs(c.DocsDir)
	if err != nil {
		return fmt.Errorf("%w: resolve docs dir: %v", types.ErrConfiguration, err)
	}
	c.DocsDir = abs

	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.DocsDir, DefaultDataDirName)
	}
	if c.DataDir, err = filepath.Abs(c.DataDir); err != nil {
		return fmt.Errorf("%w: resolve data dir: %v", types.ErrConfiguration, err)
	}

	for i, ext := range c.Scanner.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Scanner.FileExtensions[i] = ext
	}
	return nil
}

// Paths of the persisted index artifacts inside the data directory.
func (c *Config) MetadataPath() string { return filepath.Join(c.DataDir, "files.db") }
func (c *Config) ChromemPath() string { return filepath.Join(c.DataDir, "chroma") }
func (c *Config) HNSWPath() string { return filepath.Join(c.DataDir, "vectors.hnsw") }
func (c *Config) LockPath() string { return filepath.Join(c.DataDir, ".update.lock") }

func mergeChromaDB(base VectorStoreConfig, legacy chromaDBSection) VectorStoreConfig {
	if legacy.CollectionName != "" {
		base.CollectionName = legacy.CollectionName
	}
	if legacy.HNSWSpace != "" {
		base.Distance = legacy.HNSWSpace
	}
	if legacy.HNSWConstructionEF != 0 {
		base.HNSWConstructionEF = legacy.HNSWConstructionEF
	}
	if legacy.HNSWSearchEF != 0 {
		base.HNSWSearchEF = legacy.HNSWSearchEF
	}
	if legacy.HNSWM != 0 {
		base.HNSWM = legacy.HNSWM
	}
	return base
}
