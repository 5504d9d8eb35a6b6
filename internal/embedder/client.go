package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// DefaultBatchSize is the maximum number of texts per provider round trip.
const DefaultBatchSize = 100

// ClientConfig configures batching, retries and the query cache.
type ClientConfig struct {
	BatchSize      int
	Retry          RetryConfig
	QueryCacheSize int // 0 disables the query cache
}

// Client wraps exactly one Provider with batching, retry with exponential
// backoff and an LRU cache for query embeddings. It is safe for concurrent use.
type Client struct {
	provider Provider
	cfg      ClientConfig
	cache    *Cache
	logger   zerolog.Logger

	documentBatches atomic.Int64
	queryCalls      atomic.Int64
}

// NewClient creates a Client around provider.
func NewClient(provider Provider, cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	c := &Client{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "embedder").Str("provider", provider.Name()).Logger(),
	}
	if cfg.QueryCacheSize > 0 {
		c.cache = NewCache(cfg.QueryCacheSize)
	}
	return c
}

// EmbedDocuments embeds texts with the document task type, splitting them into
// batches of at most BatchSize texts. Vectors are returned in input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) (*BatchResponse, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	resp := &BatchResponse{
		Vectors:  make([][]float32, 0, len(texts)),
		Provider: c.provider.Name(),
		Model:    c.provider.Model(),
	}
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end], TaskDocument)
		c.documentBatches.Add(1)
		if err != nil {
			return nil, err
		}
		resp.Vectors = append(resp.Vectors, vectors...)
		resp.Batches++
	}
	return resp, nil
}

// EmbedQuery embeds a single query with the query task type.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	key := CacheKey(TaskQuery, text)
	if c.cache != nil {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
	}

	vectors, err := c.embedBatch(ctx, []string{text}, TaskQuery)
	c.queryCalls.Add(1)
	if err != nil {
		return nil, err
	}
	vec := vectors[0]
	if c.cache != nil && len(vec) > 0 {
		c.cache.Set(key, vec)
	}
	return vec, nil
}

// embedBatch performs one logical batch request with retries.
func (c *Client) embedBatch(ctx context.Context, batch []string, task TaskType) ([][]float32, error) {
	onRetry := func(attempt int, delay time.Duration, err error) {
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Str("task", task.String()).
			Msg("embedding attempt failed")
	}

	vectors, attempts, err := retryWithBackoff(ctx, c.cfg.Retry, onRetry, func() ([][]float32, error) {
		out, err := c.provider.EmbedBatch(ctx, batch, task)
		if err != nil {
			return nil, err
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(out), len(batch))
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.logger.Error().Err(err).Int("attempts", attempts).Int("texts", len(batch)).Msg("embedding failed")
		return nil, fmt.Errorf("%w: %w after %d attempts: %v", types.ErrEmbeddingService, ErrRetriesExhausted, attempts, err)
	}
	return vectors, nil
}

// DocumentBatches returns the number of document batches issued so far.
func (c *Client) DocumentBatches() int64 {
	return c.documentBatches.Load()
}

// QueryCalls returns the number of query embeddings requested from the provider.
func (c *Client) QueryCalls() int64 {
	return c.queryCalls.Load()
}

// CacheSize returns the number of cached query embeddings.
func (c *Client) CacheSize() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Size()
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
