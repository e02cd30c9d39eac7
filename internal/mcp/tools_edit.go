package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mediakit/internal/domain"
	"mediakit/internal/state"
)

// editResult is returned by every tool that dispatches actions.
type editResult struct {
	KitID   string `json:"kitId"`
	ID      string `json:"id,omitempty"`
	Changed bool   `json:"changed"`
	Version uint64 `json:"version"`
}

func (s *Server) registerEditTools() {
	kitArg := mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)"))

	// ── dispatch_action ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("dispatch_action",
		mcp.WithDescription("Dispatch any state action by type, e.g. ADD_COMPONENT, UPDATE_SECTION, SET_LAYOUT, SET_STATE. "+
			"The payload is a JSON value shaped like the action expects."),
		kitArg,
		mcp.WithString("type", mcp.Description("Action type"), mcp.Required()),
		mcp.WithString("payload", mcp.Description("Action payload as JSON (optional)")),
	), s.handleDispatchAction)

	// ── add_component ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Add a component. Missing fields are filled from the type's defaults."),
		kitArg,
		mcp.WithString("type", mcp.Description("Component type, e.g. hero, biography, topics"), mcp.Required()),
		mcp.WithString("data", mcp.Description("Component fields as a JSON object (optional)")),
		mcp.WithString("sectionId", mcp.Description("Section to place the component in (optional)")),
		mcp.WithNumber("column", mcp.Description("Column within a multi-column section, starting at 1 (optional)")),
	), s.handleAddComponent)

	// ── update_component ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Merge fields into a component's data"),
		kitArg,
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("data", mcp.Description("Fields to merge as a JSON object"), mcp.Required()),
	), s.handleUpdateComponent)

	// ── remove_component ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("Remove a component and every reference to it"),
		kitArg,
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveComponent)

	// ── move_component ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move a component one step up or down within its list, or to an index"),
		kitArg,
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("up, down or to"), mcp.Enum("up", "down", "to"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target index when direction is to")),
	), s.handleMoveComponent)

	// ── add_section ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Append a section"),
		kitArg,
		mcp.WithString("type", mcp.Description("Section layout"),
			mcp.Enum(string(domain.SectionFullWidth), string(domain.SectionTwoColumn), string(domain.SectionThreeColumn))),
		mcp.WithString("settings", mcp.Description("Section settings as a JSON object (optional)")),
	), s.handleAddSection)

	// ── remove_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_section",
		mcp.WithDescription("Remove a section. Its components are kept and become orphans."),
		kitArg,
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveSection)

	// ── set_theme ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_theme",
		mcp.WithDescription("Set the kit's theme"),
		kitArg,
		mcp.WithString("theme", mcp.Description("Theme name"), mcp.Required()),
	), s.handleSetTheme)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the kit"),
		kitArg,
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		kitArg,
	), s.handleRedo)

	// ── list_orphans ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_orphans",
		mcp.WithDescription("List components that neither a section nor the layout references"),
		kitArg,
	), s.handleListOrphans)
}

// dispatch applies build's action to the resolved kit and reports the result.
func (s *Server) dispatch(ctx context.Context, req mcp.CallToolRequest, build func() (state.Action, string, error)) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	a, id, err := build()
	if err != nil {
		return nil, err
	}
	before, err := s.kits.Version(kitID)
	if err != nil {
		return nil, err
	}
	if err := s.kits.Dispatch(kitID, a); err != nil {
		return nil, err
	}
	return s.report(kitID, id, before)
}

func (s *Server) report(kitID, id string, before uint64) (*mcp.CallToolResult, error) {
	after, err := s.kits.Version(kitID)
	if err != nil {
		return nil, err
	}
	return jsonResult(editResult{KitID: kitID, ID: id, Changed: after != before, Version: after})
}

func (s *Server) handleDispatchAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	typ := req.GetString("type", "")
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	payload, err := rawArg(req.GetArguments(), "payload")
	if err != nil {
		return nil, err
	}
	before, err := s.kits.Version(kitID)
	if err != nil {
		return nil, err
	}
	if err := s.kits.DispatchRaw(kitID, state.RawAction{Type: typ, Payload: payload}); err != nil {
		return nil, err
	}
	return s.report(kitID, "", before)
}

func (s *Server) handleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	return s.addComponent(ctx, req, typ)
}

// addComponent adds a component of typ built from the request's data,
// sectionId and column arguments.
func (s *Server) addComponent(ctx context.Context, req mcp.CallToolRequest, typ string) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		data, err := objectArg(req.GetArguments(), "data")
		if err != nil {
			return nil, "", err
		}
		id := domain.NewID()
		return state.AddComponent{
			Component: domain.Component{ID: id, Type: typ, Data: data},
			SectionID: req.GetString("sectionId", ""),
			Column:    req.GetInt("column", 0),
		}, id, nil
	})
}

func (s *Server) handleUpdateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		id := req.GetString("componentId", "")
		if id == "" {
			return nil, "", fmt.Errorf("componentId is required")
		}
		data, err := objectArg(req.GetArguments(), "data")
		if err != nil {
			return nil, "", err
		}
		if data == nil {
			return nil, "", fmt.Errorf("data is required")
		}
		return state.UpdateComponent{ID: id, Data: data}, id, nil
	})
}

func (s *Server) handleRemoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		id := req.GetString("componentId", "")
		if id == "" {
			return nil, "", fmt.Errorf("componentId is required")
		}
		return state.RemoveComponent{ID: id}, id, nil
	})
}

func (s *Server) handleMoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		id := req.GetString("componentId", "")
		if id == "" {
			return nil, "", fmt.Errorf("componentId is required")
		}
		dir := state.Direction(req.GetString("direction", ""))
		switch dir {
		case state.DirectionUp, state.DirectionDown, state.DirectionTo:
		default:
			return nil, "", fmt.Errorf("direction must be up, down or to")
		}
		return state.MoveComponent{ID: id, Direction: dir, To: req.GetInt("index", 0)}, id, nil
	})
}

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		settings, err := objectArg(req.GetArguments(), "settings")
		if err != nil {
			return nil, "", err
		}
		id := domain.NewID()
		typ := domain.SectionType(req.GetString("type", string(domain.SectionFullWidth)))
		return state.AddSection{Section: domain.Section{ID: id, Type: typ, Settings: settings}}, id, nil
	})
}

func (s *Server) handleRemoveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		id := req.GetString("sectionId", "")
		if id == "" {
			return nil, "", fmt.Errorf("sectionId is required")
		}
		return state.RemoveSection{ID: id}, id, nil
	})
}

func (s *Server) handleSetTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, func() (state.Action, string, error) {
		theme := req.GetString("theme", "")
		if theme == "" {
			return nil, "", fmt.Errorf("theme is required")
		}
		return state.SetTheme{Theme: theme}, "", nil
	})
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	done, err := s.kits.Undo(kitID)
	if err != nil {
		return nil, err
	}
	if !done {
		return textResult("Nothing to undo"), nil
	}
	return textResult("Undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	done, err := s.kits.Redo(kitID)
	if err != nil {
		return nil, err
	}
	if !done {
		return textResult("Nothing to redo"), nil
	}
	return textResult("Redone"), nil
}

func (s *Server) handleListOrphans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	orphans, err := s.kits.Orphans(kitID)
	if err != nil {
		return nil, err
	}
	return jsonResult(orphans)
}
