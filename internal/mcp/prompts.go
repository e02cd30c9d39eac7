package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_media_kit",
		mcp.WithPromptDescription("Guide through building a speaker or podcast-guest media kit from scratch"),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Name of the person the kit presents"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription("What they speak about (optional)"),
		),
	), s.handleBuildKitPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_kit",
		mcp.WithPromptDescription("Review a kit for orphaned components and empty sections and clean it up"),
		mcp.WithArgument("kitId",
			mcp.ArgumentDescription("Kit to review"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyKitPrompt)
}

func (s *Server) handleBuildKitPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["name"]
	focus := req.Params.Arguments["focus"]
	if focus == "" {
		focus = "their areas of expertise"
	}
	var types []string
	if s.registry != nil {
		types = s.registry.Types()
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a media kit for: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a media kit for "%s", focused on %s. Follow these steps:

1. Use create_kit with the name "%s Media Kit". It becomes the active kit.
2. Add a full_width section with add_section and put a hero component in it (add_hero or add_component).
3. Add a two_column section for the biography and the speaking topics.
4. Finish with contact and social components in their own section.
5. Call list_orphans and place any component it reports.
6. Take a snapshot with create_snapshot labelled "first draft".

Available component types: %s.`, name, focus, name, strings.Join(types, ", ")),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyKitPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	kitID := req.Params.Arguments["kitId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tidy kit %s", kitID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Tidy the media kit "%s":

1. open_kit it, then read mediakit://kit/%s/state.
2. Take a snapshot labelled "before tidy" so the cleanup can be reverted.
3. Use list_orphans and either place each orphan in a section with dispatch_action UPDATE_SECTION or remove it.
4. Remove sections that hold no components.
5. Report what changed. If the result is wrong, restore_snapshot brings the old version back.`, kitID, kitID),
				},
			},
		},
	}, nil
}
