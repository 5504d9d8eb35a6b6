package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config selects and configures one provider.
type Config struct {
	Provider             string
	APIKey               string
	Model                string
	BaseURL              string
	OllamaURL            string
	OutputDimensionality int
	TaskTypeDocument     string
	TaskTypeQuery        string
	BatchSize            int
	Timeout              time.Duration
}

// NewProvider creates the provider named by cfg.Provider. Exactly one provider
// is selected at configuration time; there is no runtime fallback.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiProvider(GeminiConfig{
			APIKey:               cfg.APIKey,
			Model:                cfg.Model,
			BaseURL:              cfg.BaseURL,
			OutputDimensionality: cfg.OutputDimensionality,
			TaskTypeDocument:     cfg.TaskTypeDocument,
			TaskTypeQuery:        cfg.TaskTypeQuery,
			Timeout:              cfg.Timeout,
		})
	case ProviderOllama:
		return NewOllamaProvider(OllamaConfig{
			ServerURL: cfg.OllamaURL,
			Model:     cfg.Model,
			Dimension: cfg.OutputDimensionality,
			BatchSize: cfg.BatchSize,
		})
	case ProviderLocal:
		return NewLocalProvider(cfg.OutputDimensionality), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
