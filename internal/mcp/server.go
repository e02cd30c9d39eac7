package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"mediakit/internal/service"
)

// Server is the MCP server for media kits. It exposes tools, resources and
// prompts so agents can build and edit kits through the same actions the
// CLI uses.
type Server struct {
	mcp      *server.MCPServer
	kits     *service.KitService
	registry *service.ComponentRegistry
	log      *zap.Logger

	// Active kit context (set by open_kit / create_kit)
	mu          sync.Mutex
	activeKitID string
}

// Deps holds the dependencies passed from the app layer.
type Deps struct {
	Kits     *service.KitService
	Registry *service.ComponentRegistry
	Logger   *zap.Logger
	Version  string
}

// New creates and configures the MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		kits:     deps.Kits,
		registry: deps.Registry,
		log:      logger,
	}

	s.mcp = server.NewMCPServer(
		"mediakit-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerKitTools()
	s.registerEditTools()
	s.registerSnapshotTools()
	s.registerResources()
	s.registerPrompts()

	// one add_<type> tool per registered component type
	s.registerComponentTypeTools()

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// ActiveKit returns the kit tools fall back to.
func (s *Server) ActiveKit() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKitID
}

func (s *Server) setActiveKit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeKitID = id
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolveKitID returns the kitId argument or falls back to the active kit.
// The kit is opened if it is not already.
func (s *Server) resolveKitID(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id := req.GetString("kitId", "")
	if id == "" {
		id = s.ActiveKit()
	}
	if id == "" {
		return "", fmt.Errorf("no kitId provided and no active kit set (use open_kit first)")
	}
	if _, err := s.kits.Open(ctx, id); err != nil {
		return "", fmt.Errorf("open kit %s: %w", id, err)
	}
	return id, nil
}
