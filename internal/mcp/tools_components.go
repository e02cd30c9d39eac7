package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerComponentTypeTools registers an add_<type> tool for every type in
// the component registry, plus list_component_types.
func (s *Server) registerComponentTypeTools() {
	if s.registry == nil {
		return
	}

	s.mcp.AddTool(mcp.NewTool("list_component_types",
		mcp.WithDescription("List the component types and the fields each one starts with"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out := make(map[string]map[string]any)
		for _, typ := range s.registry.Types() {
			out[typ], _ = s.registry.Defaults(typ)
		}
		return jsonResult(out)
	})

	for _, typ := range s.registry.Types() {
		componentType := typ // capture for closure
		s.mcp.AddTool(mcp.NewTool(
			componentToolName(componentType),
			mcp.WithDescription(fmt.Sprintf("Add a %s component, optionally into a section", componentType)),
			mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
			mcp.WithString("data", mcp.Description("Fields as a JSON object; missing fields use the defaults (optional)")),
			mcp.WithString("sectionId", mcp.Description("Section to place the component in (optional)")),
			mcp.WithNumber("column", mcp.Description("Column within a multi-column section, starting at 1 (optional)")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.addComponent(ctx, req, componentType)
		})
	}
}

func componentToolName(typ string) string {
	return "add_" + strings.ReplaceAll(typ, "-", "_")
}
