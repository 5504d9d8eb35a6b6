package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/internal/indexer"
	"github.com/dshills/localrag-mcp/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Service is the index the HTTP surface operates on. *app.App satisfies it.
type Service interface {
	Search(ctx context.Context, query string, topK int) (*app.SearchResponse, error)
	Reindex(ctx context.Context) (*types.UpdateSummary, error)
	Status(ctx context.Context) (*indexer.Status, error)
	DefaultTopK() int
}

// Server serves the JSON API.
type Server struct {
	svc            Service
	logger         zerolog.Logger
	requestTimeout time.Duration
	handler        http.Handler
}

// NewServer builds the route table. A zero requestTimeout disables the
// per-request deadline.
func NewServer(svc Service, requestTimeout time.Duration, logger zerolog.Logger) *Server {
	s := &Server{
		svc:            svc,
		logger:         logger.With().Str("component", "http").Logger(),
		requestTimeout: requestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	mux.HandleFunc("POST /api/v1/index/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /api/v1/index/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.timing(s.withTimeout(mux))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", l.Addr().String()).Msg("HTTP server listening")
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
