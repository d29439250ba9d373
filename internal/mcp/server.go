package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/curlform/internal/curl"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
// tracker is reported by the form_rules resource.
func New(ds DataSource, tracker curl.Config, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("curlform", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("curlform biceps curl analysis server. Query analyzed sets, per-rep form verdicts and form trends. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, tracker: tracker, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetAnalyses, Handler: h.getAnalyses},
		server.ServerTool{Tool: toolGetAnalysis, Handler: h.getAnalysis},
		server.ServerTool{Tool: toolGetFormSummary, Handler: h.getFormSummary},
		server.ServerTool{Tool: toolGetDataStats, Handler: h.getDataStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentAnalyses, Handler: h.recentAnalyses},
		server.ServerResource{Resource: resFormRules, Handler: h.formRules},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	tracker curl.Config
	log     *slog.Logger
}

// --- Resource definitions ---

var resRecentAnalyses = mcp.NewResource(
	"curlform://recent_analyses",
	"Recent Analyses",
	mcp.WithResourceDescription("The 10 most recently analyzed curl sets with rep counts and form feedback"),
	mcp.WithMIMEType("application/json"),
)

var resFormRules = mcp.NewResource(
	"curlform://form_rules",
	"Form Rules",
	mcp.WithResourceDescription("Angle and torso thresholds a rep is judged against, and the possible failure reasons"),
	mcp.WithMIMEType("application/json"),
)
