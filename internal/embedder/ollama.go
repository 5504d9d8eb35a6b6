package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaURL is the default local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	ServerURL string
	Model     string
	Dimension int
	BatchSize int
}

// OllamaProvider embeds through a local Ollama server using langchaingo.
type OllamaProvider struct {
	cfg      OllamaConfig
	embedder *embeddings.EmbedderImpl
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: ollama requires a model name", ErrInvalidInput)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}

	return &OllamaProvider{cfg: cfg, embedder: emb}, nil
}

func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if task == TaskQuery {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vec, err := o.embedder.EmbedQuery(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
			}
			vectors[i] = vec
		}
		return vectors, nil
	}

	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return vectors, nil
}

func (o *OllamaProvider) Name() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.cfg.Model
}

func (o *OllamaProvider) Dimension() int {
	return o.cfg.Dimension
}

func (o *OllamaProvider) Close() error {
	return nil
}
