package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/pkg/types"
)

const maxRequestBody = 1 << 20

// SearchRequest is the body of POST /api/v1/search. A missing top_k
// selects the configured default.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// SearchResponse is the body returned by POST /api/v1/search.
type SearchResponse struct {
	*app.SearchResponse
	ExecutionTimeMS float64 `json:"execution_time_ms"`
}

// RebuildResponse is the body returned by POST /api/v1/index/rebuild.
type RebuildResponse struct {
	*types.UpdateSummary
	ExecutionTimeMS float64 `json:"execution_time_ms"`
}

// StatusResponse is the body returned by GET /api/v1/index/status.
type StatusResponse struct {
	TotalChunks int        `json:"total_chunks"`
	TotalFiles  int        `json:"total_files"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	IndexSize int    `json:"index_size"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SearchRequest
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}

	topK := s.svc.DefaultTopK()
	if req.TopK != nil {
		topK = *req.TopK
	}

	resp, err := s.svc.Search(r.Context(), req.Query, topK)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		SearchResponse:  resp,
		ExecutionTimeMS: millis(time.Since(start)),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	summary, err := s.svc.Reindex(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, RebuildResponse{
		UpdateSummary:   summary,
		ExecutionTimeMS: millis(time.Since(start)),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		TotalChunks: st.TotalChunks,
		TotalFiles:  st.TotalFiles,
		LastUpdate:  st.LastUpdate,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", IndexSize: st.TotalChunks})
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		s.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, types.ErrEmbeddingService),
		errors.Is(err, context.DeadlineExceeded):
		s.logger.Error().Err(err).Msg("service unavailable")
		s.writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
