package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrRetriesExhausted    = errors.New("embedding retries exhausted")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrNoAPIKey            = errors.New("no API key configured")
)

// TaskType selects the embedding request mode. Documents and queries are
// embedded asymmetrically, so the two must never be mixed.
type TaskType int

const (
	TaskDocument TaskType = iota
	TaskQuery
)

func (t TaskType) String() string {
	if t == TaskQuery {
		return "query"
	}
	return "document"
}

// Provider performs one embedding round trip for a batch of texts. Batching,
// retries and caching are layered on top by Client.
type Provider interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error)

	// Name returns the provider name
	Name() string

	// Model returns the model name
	Model() string

	// Dimension returns the configured vector size, 0 when the model decides
	Dimension() int

	// Close releases any resources held by the provider
	Close() error
}

// BatchResponse is the result of embedding a list of documents.
type BatchResponse struct {
	Vectors  [][]float32
	Batches  int // provider round trips that succeeded, retries excluded
	Provider string
	Model    string
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 1000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](1000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of a cached vector so callers cannot mutate the cache.
func (c *Cache) Get(key string) ([]float32, bool) {
	vec, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector with automatic LRU eviction
func (c *Cache) Set(key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(key, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// CacheKey derives the cache key for a text embedded with a given task type.
func CacheKey(task TaskType, text string) string {
	h := sha256.Sum256([]byte(task.String() + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// ValidateTexts rejects empty batches and empty texts.
func ValidateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// NormalizeVector returns v scaled to unit length (for cosine similarity).
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	result := make([]float32, len(v))
	if sum == 0 {
		copy(result, v)
		return result
	}
	norm := math.Sqrt(sum)
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}
	return result
}
