package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerKitTools() {
	// ── list_kits ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_kits",
		mcp.WithDescription("List all media kits"),
	), s.handleListKits)

	// ── create_kit ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_kit",
		mcp.WithDescription("Create a new empty media kit and make it the active kit"),
		mcp.WithString("name", mcp.Description("Name of the kit"), mcp.Required()),
	), s.handleCreateKit)

	// ── open_kit ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_kit",
		mcp.WithDescription("Open a media kit and make it the active kit. Tools that accept kitId default to it."),
		mcp.WithString("kitId", mcp.Description("ID of the kit"), mcp.Required()),
	), s.handleOpenKit)

	// ── get_state ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the full document of a kit: components, sections, layout, theme and settings"),
		mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
	), s.handleGetState)

	// ── save_kit ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_kit",
		mcp.WithDescription("Write the kit's current document to storage now"),
		mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
	), s.handleSaveKit)
}

func (s *Server) handleListKits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kits, err := s.kits.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	return jsonResult(kits)
}

func (s *Server) handleCreateKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	kit, err := s.kits.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create kit: %w", err)
	}
	s.setActiveKit(kit.ID)
	return jsonResult(kit)
}

func (s *Server) handleOpenKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("kitId", "")
	if id == "" {
		return nil, fmt.Errorf("kitId is required")
	}
	kit, err := s.kits.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open kit: %w", err)
	}
	s.setActiveKit(kit.ID)
	return textResult(fmt.Sprintf("Active kit set to %s", kit.ID)), nil
}

func (s *Server) handleGetState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.kits.State(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(doc)
}

func (s *Server) handleSaveKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.kits.Save(ctx, id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Kit %s saved", id)), nil
}
