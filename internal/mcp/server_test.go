package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"mediakit/internal/config"
	"mediakit/internal/domain"
	"mediakit/internal/plugins"
	"mediakit/internal/service"
	"mediakit/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })

	backend, err := storage.Open(context.Background(), config.Storage{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "kits.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	registry := service.NewComponentRegistry()
	plugins.RegisterBuiltins(registry)

	logger := zaptest.NewLogger(t)
	n := 0
	kits := service.NewKitService(backend.Kits, backend.Snapshots, registry, nil, logger, service.KitOptions{
		NewID: func() string {
			n++
			return fmt.Sprintf("kit-%d", n)
		},
	})
	t.Cleanup(func() { kits.CloseAll(context.Background()) })

	return New(Deps{Kits: kits, Registry: registry, Logger: logger})
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &v))
	return v
}

func createActiveKit(t *testing.T, s *Server) string {
	t.Helper()
	res, err := s.handleCreateKit(context.Background(), call(map[string]any{"name": "Speaker"}))
	require.NoError(t, err)
	kit := decodeResult[domain.KitSummary](t, res)
	require.Equal(t, kit.ID, s.ActiveKit())
	return kit.ID
}

// ─────────────────────────────────────────────────────────────
// Kit tools
// ─────────────────────────────────────────────────────────────

func TestKitTools_CreateListOpen(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)

	_, err := s.handleSaveKit(ctx, call(nil))
	require.NoError(t, err)

	res, err := s.handleListKits(ctx, call(nil))
	require.NoError(t, err)
	kits := decodeResult[[]domain.KitSummary](t, res)
	require.Len(t, kits, 1)
	assert.Equal(t, "Speaker", kits[0].Name)

	s.setActiveKit("")
	_, err = s.handleOpenKit(ctx, call(map[string]any{"kitId": id}))
	require.NoError(t, err)
	assert.Equal(t, id, s.ActiveKit())
}

func TestKitTools_RequireKit(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleGetState(ctx, call(nil))
	assert.ErrorContains(t, err, "no active kit")

	_, err = s.handleOpenKit(ctx, call(map[string]any{"kitId": "missing"}))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.handleCreateKit(ctx, call(nil))
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────
// Edit tools
// ─────────────────────────────────────────────────────────────

func TestEditTools_BuildAKit(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	createActiveKit(t, s)

	res, err := s.handleAddSection(ctx, call(map[string]any{"type": "two_column"}))
	require.NoError(t, err)
	section := decodeResult[editResult](t, res)
	assert.True(t, section.Changed)

	res, err = s.handleAddComponent(ctx, call(map[string]any{
		"type":      "hero",
		"data":      `{"name":"Ada"}`,
		"sectionId": section.ID,
		"column":    float64(2),
	}))
	require.NoError(t, err)
	hero := decodeResult[editResult](t, res)
	require.NotEmpty(t, hero.ID)

	res, err = s.handleUpdateComponent(ctx, call(map[string]any{
		"componentId": hero.ID,
		"data":        map[string]any{"title": "Engineer"},
	}))
	require.NoError(t, err)
	assert.True(t, decodeResult[editResult](t, res).Changed)

	_, err = s.handleSetTheme(ctx, call(map[string]any{"theme": "dark"}))
	require.NoError(t, err)

	res, err = s.handleGetState(ctx, call(nil))
	require.NoError(t, err)
	doc := decodeResult[domain.Document](t, res)

	assert.Equal(t, "dark", doc.Theme)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, []string{hero.ID}, doc.Sections[0].Columns[2])
	c := doc.Components[hero.ID]
	assert.Equal(t, "Ada", c.Data["name"])
	assert.Equal(t, "Engineer", c.Data["title"])
	assert.Contains(t, c.Data, "tagline", "registry defaults are filled in")
}

func TestEditTools_UnchangedReportsFalse(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	createActiveKit(t, s)

	res, err := s.handleRemoveComponent(ctx, call(map[string]any{"componentId": "ghost"}))
	require.NoError(t, err)
	got := decodeResult[editResult](t, res)
	assert.False(t, got.Changed)
	assert.Equal(t, uint64(0), got.Version)
}

func TestEditTools_DispatchAction(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)

	_, err := s.handleDispatchAction(ctx, call(map[string]any{
		"type":    "UPDATE_GLOBAL_SETTINGS",
		"payload": map[string]any{"layout": "horizontal"},
	}))
	require.NoError(t, err)
	_, err = s.handleDispatchAction(ctx, call(map[string]any{"type": "SET_THEME", "payload": "bold"}))
	require.NoError(t, err)

	doc, err := s.kits.State(id)
	require.NoError(t, err)
	assert.Equal(t, "horizontal", doc.GlobalSettings["layout"])
	assert.Equal(t, "bold", doc.Theme)

	_, err = s.handleDispatchAction(ctx, call(map[string]any{"type": "LAUNCH"}))
	assert.Error(t, err)
}

func TestEditTools_MoveUndoRedoOrphans(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)

	var ids []string
	for _, typ := range []string{"hero", "biography"} {
		res, err := s.handleAddComponent(ctx, call(map[string]any{"type": typ}))
		require.NoError(t, err)
		ids = append(ids, decodeResult[editResult](t, res).ID)
	}
	_, err := s.handleDispatchAction(ctx, call(map[string]any{
		"type":    "SET_LAYOUT",
		"payload": ids,
	}))
	require.NoError(t, err)

	_, err = s.handleMoveComponent(ctx, call(map[string]any{"componentId": ids[1], "direction": "up"}))
	require.NoError(t, err)
	doc, _ := s.kits.State(id)
	assert.Equal(t, []string{ids[1], ids[0]}, doc.Layout)

	_, err = s.handleMoveComponent(ctx, call(map[string]any{"componentId": ids[1], "direction": "sideways"}))
	assert.Error(t, err)

	res, err := s.handleUndo(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "Undone", resultText(t, res))
	doc, _ = s.kits.State(id)
	assert.Equal(t, ids, doc.Layout)

	res, err = s.handleRedo(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "Redone", resultText(t, res))
	res, err = s.handleRedo(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "Nothing to redo", resultText(t, res))

	res, err = s.handleAddComponent(ctx, call(map[string]any{"type": "contact"}))
	require.NoError(t, err)
	loose := decodeResult[editResult](t, res).ID

	res, err = s.handleListOrphans(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{loose}, decodeResult[[]string](t, res))
}

func TestComponentTypeTools(t *testing.T) {
	assert.Equal(t, "add_logo_grid", componentToolName("logo-grid"))
	assert.Equal(t, "add_hero", componentToolName("hero"))

	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)

	res, err := s.addComponent(ctx, call(map[string]any{"data": map[string]any{"title": "Topics"}}), "topics")
	require.NoError(t, err)
	added := decodeResult[editResult](t, res)

	doc, err := s.kits.State(id)
	require.NoError(t, err)
	assert.Equal(t, "topics", doc.Components[added.ID].Type)
	assert.Equal(t, "Topics", doc.Components[added.ID].Data["title"])
}

// ─────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────

func TestSnapshotTools_CreateListRestore(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)

	_, err := s.handleSetTheme(ctx, call(map[string]any{"theme": "first"}))
	require.NoError(t, err)
	res, err := s.handleCreateSnapshot(ctx, call(map[string]any{"label": "draft"}))
	require.NoError(t, err)
	snap := decodeResult[snapshotSummary](t, res)
	assert.Equal(t, "draft", snap.Label)

	_, err = s.handleSetTheme(ctx, call(map[string]any{"theme": "second"}))
	require.NoError(t, err)

	res, err = s.handleListSnapshots(ctx, call(nil))
	require.NoError(t, err)
	list := decodeResult[[]snapshotSummary](t, res)
	require.Len(t, list, 1)
	assert.Equal(t, snap.ID, list[0].ID)

	_, err = s.handleRestoreSnapshot(ctx, call(map[string]any{"snapshotId": snap.ID}))
	require.NoError(t, err)
	doc, _ := s.kits.State(id)
	assert.Equal(t, "first", doc.Theme)

	_, err = s.handleRestoreSnapshot(ctx, call(nil))
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────
// Resources and prompts
// ─────────────────────────────────────────────────────────────

func TestKitIDFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mediakit://kit/abc-123/state", "abc-123"},
		{"mediakit://kit//state", ""},
		{"mediakit://kit/a/b/state", ""},
		{"mediakit://kits", ""},
		{"notes://kit/abc/state", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, kitIDFromURI(tt.uri))
		})
	}
}

func TestResources(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := createActiveKit(t, s)
	_, err := s.handleSetTheme(ctx, call(map[string]any{"theme": "dark"}))
	require.NoError(t, err)

	uri := "mediakit://kit/" + id + "/state"
	contents, err := s.handleKitStateResource(ctx, mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: uri}})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, uri, text.URI)
	assert.Contains(t, text.Text, `"theme": "dark"`)

	_, err = s.handleKitStateResource(ctx, mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "mediakit://kit/"}})
	assert.Error(t, err)

	_, err = s.handleKitsResource(ctx, mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: kitsURI}})
	require.NoError(t, err)
}

func TestBuildKitPromptListsTypes(t *testing.T) {
	s := newTestServer(t)
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"name": "Ada"}

	res, err := s.handleBuildKitPrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(mcp.TextContent).Text
	assert.Contains(t, text, `"Ada Media Kit"`)
	assert.Contains(t, text, "podcast-player")
}
