package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSnapshotTools() {
	// ── create_snapshot ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_snapshot",
		mcp.WithDescription("Store a labelled copy of the kit, including unsaved changes"),
		mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
		mcp.WithString("label", mcp.Description("Label for the snapshot (optional)")),
	), s.handleCreateSnapshot)

	// ── list_snapshots ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_snapshots",
		mcp.WithDescription("List a kit's snapshots, newest first"),
		mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
	), s.handleListSnapshots)

	// ── restore_snapshot ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_snapshot",
		mcp.WithDescription("Replace the kit's document with a snapshot. The restore can be undone."),
		mcp.WithString("kitId", mcp.Description("Kit ID (optional, defaults to active kit)")),
		mcp.WithString("snapshotId", mcp.Description("Snapshot ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreSnapshot)
}

const timeFormat = time.RFC3339

type snapshotSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleCreateSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	snap, err := s.kits.Snapshot(ctx, kitID, req.GetString("label", ""))
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	return jsonResult(snapshotSummary{ID: snap.ID, Label: snap.Label, CreatedAt: snap.CreatedAt.Format(timeFormat)})
}

func (s *Server) handleListSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	snaps, err := s.kits.ListSnapshots(ctx, kitID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	summaries := make([]snapshotSummary, len(snaps))
	for i, sn := range snaps {
		summaries[i] = snapshotSummary{ID: sn.ID, Label: sn.Label, CreatedAt: sn.CreatedAt.Format(timeFormat)}
	}
	return jsonResult(summaries)
}

func (s *Server) handleRestoreSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kitID, err := s.resolveKitID(ctx, req)
	if err != nil {
		return nil, err
	}
	snapID := req.GetString("snapshotId", "")
	if snapID == "" {
		return nil, fmt.Errorf("snapshotId is required")
	}
	if err := s.kits.Restore(ctx, kitID, snapID); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return textResult(fmt.Sprintf("Kit %s restored from snapshot %s", kitID, snapID)), nil
}
