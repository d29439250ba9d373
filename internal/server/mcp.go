package server

import (
	"context"
	"net/http"

	curlmcp "github.com/claude/curlform/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MountMCP serves the MCP server over streamable HTTP at /mcp. Tool calls
// run as the user resolved by the identity middleware.
func (s *Server) MountMCP(m *mcpserver.MCPServer) {
	h := mcpserver.NewStreamableHTTPServer(m,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return curlmcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
	s.router.With(s.identity).Handle("/mcp", h)
}
