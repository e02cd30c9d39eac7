package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediakit/internal/config"
	"mediakit/internal/domain"
	"mediakit/internal/storage"
)

func openTestBackend(t *testing.T) *storage.Backend {
	t.Helper()
	b, err := storage.Open(context.Background(), config.Storage{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "nested", "kits.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleDocument() domain.Document {
	doc := domain.NewDocument(epoch)
	doc.Components["hero-1"] = domain.Component{ID: "hero-1", Type: "hero", Data: map[string]any{"title": "Ada"}, SectionID: "s1", CreatedAt: epoch, UpdatedAt: epoch}
	doc.Components["loose"] = domain.Component{ID: "loose", Type: "bio", Data: map[string]any{}, CreatedAt: epoch, UpdatedAt: epoch}
	doc.Sections = []domain.Section{{
		ID:         "s1",
		Type:       domain.SectionFullWidth,
		Components: []string{"hero-1"},
		Settings:   map[string]any{},
	}}
	doc.Layout = []string{"hero-1", "loose"}
	doc.Theme = "dark"
	doc.GlobalSettings = map[string]any{"layout": "vertical"}
	return doc
}

// ─────────────────────────────────────────────────────────────
// KitStore
// ─────────────────────────────────────────────────────────────

func TestKitStore_SaveAndGet(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	kit := &domain.Kit{ID: "k1", Name: "Speaker kit", Document: sampleDocument()}
	require.NoError(t, b.Kits.SaveKit(ctx, kit))
	assert.False(t, kit.CreatedAt.IsZero())
	assert.False(t, kit.UpdatedAt.IsZero())

	got, err := b.Kits.GetKit(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Speaker kit", got.Name)
	if diff := cmp.Diff(sampleDocument(), got.Document, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("document changed in storage (-want +got):\n%s", diff)
	}
}

func TestKitStore_SaveReplacesAndKeepsCreatedAt(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	kit := &domain.Kit{ID: "k1", Name: "First", Document: sampleDocument(), CreatedAt: epoch}
	require.NoError(t, b.Kits.SaveKit(ctx, kit))

	again := &domain.Kit{ID: "k1", Name: "Renamed", Document: domain.NewDocument(epoch)}
	require.NoError(t, b.Kits.SaveKit(ctx, again))
	assert.True(t, again.CreatedAt.Equal(epoch))

	got, err := b.Kits.GetKit(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Empty(t, got.Document.Components)
	assert.True(t, got.CreatedAt.Equal(epoch))

	list, err := b.Kits.ListKits(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestKitStore_NotFound(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	_, err := b.Kits.GetKit(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, b.Kits.DeleteKit(ctx, "missing"), domain.ErrNotFound)
}

func TestKitStore_ListAndDelete(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	list, err := b.Kits.ListKits(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, b.Kits.SaveKit(ctx, &domain.Kit{ID: "a", Name: "A", Document: domain.NewDocument(epoch)}))
	require.NoError(t, b.Kits.SaveKit(ctx, &domain.Kit{ID: "b", Name: "B", Document: domain.NewDocument(epoch)}))

	list, err = b.Kits.ListKits(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, b.Kits.DeleteKit(ctx, "a"))
	list, err = b.Kits.ListKits(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

// ─────────────────────────────────────────────────────────────
// SnapshotStore
// ─────────────────────────────────────────────────────────────

func TestSnapshotStore_CreateListGet(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	for i, label := range []string{"first", "second", "third"} {
		require.NoError(t, b.Snapshots.CreateSnapshot(ctx, &domain.Snapshot{
			ID:        label,
			KitID:     "k1",
			Label:     label,
			Document:  sampleDocument(),
			CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, b.Snapshots.CreateSnapshot(ctx, &domain.Snapshot{ID: "other", KitID: "k2", Label: "x", Document: sampleDocument()}))

	list, err := b.Snapshots.ListSnapshots(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Empty(t, list[0].Document.Components, "listings carry no document")

	snap, err := b.Snapshots.GetSnapshot(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "k1", snap.KitID)
	assert.True(t, snap.CreatedAt.Equal(epoch.Add(time.Minute)))
	assert.Empty(t, cmp.Diff(sampleDocument(), snap.Document, cmpopts.EquateEmpty()))

	_, err = b.Snapshots.GetSnapshot(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotStore_PruneKeepsNewest(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, b.Snapshots.CreateSnapshot(ctx, &domain.Snapshot{
			ID:        string(rune('a' + i)),
			KitID:     "k1",
			Label:     "auto",
			Document:  domain.NewDocument(epoch),
			CreatedAt: epoch.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, b.Snapshots.PruneSnapshots(ctx, "k1", 2))

	list, err := b.Snapshots.ListSnapshots(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e", list[0].ID)
	assert.Equal(t, "d", list[1].ID)

	require.NoError(t, b.Snapshots.PruneSnapshots(ctx, "k1", 10))
	list, err = b.Snapshots.ListSnapshots(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, b.Snapshots.DeleteSnapshots(ctx, "k1"))
	list, err = b.Snapshots.ListSnapshots(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), config.Storage{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kits.db")
	cfg := config.Storage{Driver: config.DriverSQLite, DSN: path}

	b, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, b.Kits.SaveKit(ctx, &domain.Kit{ID: "k", Name: "K", Document: domain.NewDocument(epoch)}))
	require.NoError(t, b.Close())

	b, err = storage.Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Kits.GetKit(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "K", got.Name)
}
