package searcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/internal/storage"
	"github.com/dshills/localrag-mcp/pkg/types"
)

// DefaultMaxTopK is the top_k ceiling used when none is configured.
const DefaultMaxTopK = 100

// QueryEmbedder embeds search queries. *embedder.Client satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher answers semantic queries against a vector store.
type Searcher struct {
	vectors  storage.VectorStore
	embedder QueryEmbedder
	maxTopK  int
	logger   zerolog.Logger
}

// New creates a Searcher. maxTopK <= 0 selects DefaultMaxTopK.
func New(vectors storage.VectorStore, emb QueryEmbedder, maxTopK int, logger zerolog.Logger) *Searcher {
	if maxTopK <= 0 {
		maxTopK = DefaultMaxTopK
	}
	return &Searcher{
		vectors:  vectors,
		embedder: emb,
		maxTopK:  maxTopK,
		logger:   logger.With().Str("component", "searcher").Logger(),
	}
}

// MaxTopK returns the largest accepted topK.
func (s *Searcher) MaxTopK() int {
	return s.maxTopK
}

// Validate checks a request without touching any collaborator.
func (s *Searcher) Validate(query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query must not be empty", types.ErrValidation)
	}
	if topK < 1 || topK > s.maxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d, got %d", types.ErrValidation, s.maxTopK, topK)
	}
	return nil
}

// Search returns up to topK chunks ranked by similarity to query. An empty
// index yields an empty result, not an error.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if err := s.Validate(query, topK); err != nil {
		return nil, err
	}

	count, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		s.logger.Warn().Msg("index is empty, run an update first")
		return []types.SearchResult{}, nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) == 0 {
		s.logger.Warn().Str("query", query).Msg("query embedding is empty")
		return []types.SearchResult{}, nil
	}

	hits, err := s.vectors.Query(ctx, vec, topK)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = types.NewSearchResult(h)
	}

	s.logger.Debug().Str("query", query).Int("top_k", topK).Int("results", len(results)).Msg("search complete")
	return results, nil
}
