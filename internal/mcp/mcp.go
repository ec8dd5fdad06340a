// Package mcp implements the Model Context Protocol server for kasane.
//
// The MCP server exposes the studio through MCP tools, resources and
// prompts, so MCP-compatible agents can ingest sources, check readiness
// and generate outputs without going through the HTTP API.
package mcp

import (
	"context"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kasane/internal/ctxutil"
	"github.com/ashita-ai/kasane/internal/studio"
)

// eligibilityWindow is how long an eligibility check counts as recent.
const eligibilityWindow = 30 * time.Minute

// Server wraps the MCP server with kasane's studio service.
type Server struct {
	mcpServer *mcpserver.MCPServer
	studio    *studio.Service
	tracker   *checkTracker
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools
// and prompts.
func New(svc *studio.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		studio:  svc,
		tracker: newCheckTracker(eligibilityWindow),
		logger:  logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"kasane",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// caller resolves the calling identity. Requests that arrive without one
// (stdio transport, auth disabled) act as anonymous at the default tier.
func (s *Server) caller(ctx context.Context) ctxutil.Caller {
	if c, ok := ctxutil.CallerFromContext(ctx); ok {
		return c
	}
	return ctxutil.Anonymous(s.studio.DefaultTier())
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
