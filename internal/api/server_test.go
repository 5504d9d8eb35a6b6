package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/internal/indexer"
	"github.com/dshills/localrag-mcp/pkg/types"
)

type fakeService struct {
	searchErr  error
	reindexErr error
	statusErr  error
	lastTopK   int
	deadline   bool
}

func (f *fakeService) Search(ctx context.Context, query string, topK int) (*app.SearchResponse, error) {
	_, f.deadline = ctx.Deadline()
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", types.ErrValidation)
	}
	if topK < 1 || topK > 100 {
		return nil, fmt.Errorf("%w: top_k must be between 1 and 100", types.ErrValidation)
	}
	return &app.SearchResponse{
		Results:     []types.SearchResult{{FilePath: "a.md", Heading: "# A", Content: "alpha", Score: 0.75}},
		TotalChunks: 12,
		Query:       query,
	}, nil
}

func (f *fakeService) Reindex(context.Context) (*types.UpdateSummary, error) {
	if f.reindexErr != nil {
		return nil, f.reindexErr
	}
	return &types.UpdateSummary{Added: 3, TotalChunks: 12, APICallCount: 1}, nil
}

func (f *fakeService) Status(context.Context) (*indexer.Status, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &indexer.Status{TotalFiles: 3, TotalChunks: 12}, nil
}

func (f *fakeService) DefaultTopK() int { return 5 }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeService{}
	h := NewServer(svc, time.Minute, zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"alpha","top_k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasSuffix(rec.Header().Get("X-Process-Time"), "ms"))
	assert.Equal(t, 3, svc.lastTopK)
	assert.True(t, svc.deadline)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alpha", body["query"])
	assert.EqualValues(t, 12, body["total_chunks"])
	assert.Contains(t, body, "execution_time_ms")

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "a.md", first["file_path"])
	assert.EqualValues(t, 0.75, first["score"])
}

func TestSearchEndpointDefaultTopK(t *testing.T) {
	svc := &fakeService{}
	h := NewServer(svc, 0, zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"alpha"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.lastTopK)
}

func TestSearchEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		svc    *fakeService
		body   string
		status int
		code   string
	}{
		{"bad json", &fakeService{}, `{"query":`, http.StatusBadRequest, "invalid_request"},
		{"empty query", &fakeService{}, `{"query":"  "}`, http.StatusBadRequest, "validation_error"},
		{"zero top_k", &fakeService{}, `{"query":"q","top_k":0}`, http.StatusBadRequest, "validation_error"},
		{"negative top_k", &fakeService{}, `{"query":"q","top_k":-1}`, http.StatusBadRequest, "validation_error"},
		{"fractional top_k", &fakeService{}, `{"query":"q","top_k":2.5}`, http.StatusBadRequest, "invalid_request"},
		{"embedding down", &fakeService{searchErr: fmt.Errorf("%w: 503", types.ErrEmbeddingService)}, `{"query":"q"}`, http.StatusServiceUnavailable, "service_unavailable"},
		{"storage failure", &fakeService{searchErr: errors.New("disk full")}, `{"query":"q"}`, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(tt.svc, 0, zerolog.Nop()).Handler()
			rec := do(t, h, http.MethodPost, "/api/v1/search", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRebuildEndpoint(t *testing.T) {
	h := NewServer(&fakeService{}, 0, zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/index/rebuild", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["added"])
	assert.EqualValues(t, 1, body["api_call_count"])
	assert.Contains(t, body, "execution_time_ms")
}

func TestStatusAndHealth(t *testing.T) {
	svc := &fakeService{}
	h := NewServer(svc, 0, zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/index/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 12, st.TotalChunks)
	assert.Equal(t, 3, st.TotalFiles)

	rec = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthResponse{Status: "healthy", IndexSize: 12}, health)

	svc.statusErr = errors.New("closed")
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewServer(&fakeService{}, 0, zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewServer(&fakeService{}, 0, zerolog.Nop()).Serve(ctx, l)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + l.Addr().String() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
