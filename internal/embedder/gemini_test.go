package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/pkg/types"
)

func TestGeminiProvider_EmbedBatch(t *testing.T) {
	var got geminiBatchRequest
	var gotPath, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		embs := make([]map[string]interface{}, len(got.Requests))
		for i := range got.Requests {
			embs[i] = map[string]interface{}{"values": []float32{float32(i), 0.5}}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": embs})
	}))
	defer server.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "secret", BaseURL: server.URL, OutputDimensionality: 768})
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(context.Background(), []string{"one", "two"}, TaskDocument)
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-embedding-001:batchEmbedContents", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, got.Requests, 2)
	assert.Equal(t, "models/gemini-embedding-001", got.Requests[0].Model)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", got.Requests[0].TaskType)
	assert.Equal(t, 768, got.Requests[0].OutputDimensionality)
	assert.Equal(t, "two", got.Requests[1].Content.Parts[0].Text)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 0.5}}, vecs)

	_, err = p.EmbedBatch(context.Background(), []string{"q"}, TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", got.Requests[0].TaskType)
}

func TestGeminiProvider_RetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,2,3]}]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	c := NewClient(p, ClientConfig{BatchSize: 10, Retry: fastRetry(3)}, zerolog.Nop())

	resp, err := c.EmbedDocuments(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}}, resp.Vectors)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeminiProvider_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	c := NewClient(p, ClientConfig{BatchSize: 10, Retry: fastRetry(3)}, zerolog.Nop())

	_, err = c.EmbedQuery(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeminiProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = p.EmbedBatch(context.Background(), []string{"x"}, TaskDocument)
	assert.Error(t, err)
}

func TestGeminiProvider_Metadata(t *testing.T) {
	p, err := NewGeminiProvider(GeminiConfig{APIKey: "k", OutputDimensionality: 256})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
	assert.Equal(t, DefaultGeminiModel, p.Model())
	assert.Equal(t, 256, p.Dimension())
	assert.NoError(t, p.Close())
}
