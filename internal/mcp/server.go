package mcp

import (
	"context"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/internal/indexer"
	"github.com/dshills/localrag-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "local-rag"
)

// Service is the index the tools operate on. *app.App satisfies it.
type Service interface {
	Search(ctx context.Context, query string, topK int) (*app.SearchResponse, error)
	Reindex(ctx context.Context) (*types.UpdateSummary, error)
	Status(ctx context.Context) (*indexer.Status, error)
	DefaultTopK() int
	MaxTopK() int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	svc    Service
	logger zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(svc Service, version string, logger zerolog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		svc:    svc,
		logger: logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
// Nothing but protocol messages may be written to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))

	s.logger.Info().Msg("starting MCP server")
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(s.svc.DefaultTopK(), s.svc.MaxTopK()), s.handleSearch)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(statusTool(), s.handleStatus)
}
