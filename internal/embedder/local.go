package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalDimension is the default vector size of the local provider.
const LocalDimension = 384

// LocalProvider produces deterministic feature-hashed bag-of-words vectors.
// It needs no network access and keeps lexical overlap meaningful, which makes
// it suitable for offline use and tests. It is not a semantic model.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local provider with the given dimension.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string, _ TaskType) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = l.embed(text)
	}
	return vectors, nil
}

func (l *LocalProvider) embed(text string) []float32 {
	vec := make([]float32, l.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(l.dimension))
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return NormalizeVector(vec)
}

func (l *LocalProvider) Name() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return "local-hash"
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Close() error {
	return nil
}
