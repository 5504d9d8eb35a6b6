package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal server error
	ErrorCodeIndexingFailed = -32002 // Index update failed
	ErrorCodeEmptyQuery     = -32004 // Query parameter is empty
)

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK, err := getIntDefault(args, "top_k", s.svc.DefaultTopK())
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be an integer", map[string]interface{}{
			"param": "top_k",
			"value": args["top_k"],
		})
	}

	resp, err := s.svc.Search(ctx, query, topK)
	if errors.Is(err, types.ErrValidation) {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"param": "top_k",
			"value": topK,
			"max":   s.svc.MaxTopK(),
		})
	}
	if err != nil {
		s.logger.Error().Err(err).Str("tool", "search").Msg("tool call failed")
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatSearch(query, resp.Results, resp.TotalChunks)), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Reindex(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", "reindex").Msg("tool call failed")
		return nil, newMCPError(ErrorCodeIndexingFailed, "index update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatSummary(summary)), nil
}

// handleStatus handles the status tool invocation
func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", "status").Msg("tool call failed")
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var b strings.Builder
	b.WriteString("Index status:\n")
	fmt.Fprintf(&b, "  Docs dir: %s\n", st.DocsDir)
	fmt.Fprintf(&b, "  Total files: %d\n", st.TotalFiles)
	fmt.Fprintf(&b, "  Total chunks: %d\n", st.TotalChunks)
	if st.LastUpdate != nil {
		fmt.Fprintf(&b, "  Last update: %s\n", st.LastUpdate.Format("2006-01-02T15:04:05Z07:00"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// formatSearch renders results as plain text for the client
func formatSearch(query string, results []types.SearchResult, totalChunks int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results for query: '%s'\n", len(results), query)
	fmt.Fprintf(&b, "Total chunks in index: %d\n\n", totalChunks)

	for i, r := range results {
		fmt.Fprintf(&b, "--- Result %d (score: %.3f) ---\n", i+1, r.Score)
		fmt.Fprintf(&b, "File: %s\n", r.FilePath)
		if r.Heading != "" {
			fmt.Fprintf(&b, "Heading: %s\n", r.Heading)
		}
		fmt.Fprintf(&b, "\n%s\n\n", r.Content)
	}
	return b.String()
}

func formatSummary(s *types.UpdateSummary) string {
	var b strings.Builder
	b.WriteString("Index update complete:\n")
	fmt.Fprintf(&b, "  Added: %d\n", s.Added)
	fmt.Fprintf(&b, "  Updated: %d\n", s.Updated)
	fmt.Fprintf(&b, "  Deleted: %d\n", s.Deleted)
	fmt.Fprintf(&b, "  Unchanged: %d\n", s.Unchanged)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  Failed: %d\n", s.Failed)
	}
	fmt.Fprintf(&b, "  Total chunks: %d\n", s.TotalChunks)
	fmt.Fprintf(&b, "  API calls: %d\n", s.APICallCount)
	return b.String()
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	if m, ok := e.Data.(map[string]interface{}); ok {
		if cause, ok := m["error"].(string); ok {
			return fmt.Sprintf("MCP error %d: %s: %s", e.Code, e.Message, cause)
		}
	}
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// getIntDefault extracts an integer parameter with a default value. The
// default applies only when the key is absent or null; a present value is
// returned as is for range validation. JSON numbers arrive as float64;
// fractional values are rejected.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s is not an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s has type %T", key, raw)
	}
}
