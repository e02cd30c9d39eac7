package app

import (
	"context"
	"time"

	"mediakit/internal/domain"
	"mediakit/internal/service"
)

// ============================================================
// Snapshots
// ============================================================

func (a *App) Snapshot(ctx context.Context, kitID, label string) (domain.Snapshot, error) {
	return a.kits.Snapshot(ctx, kitID, label)
}

func (a *App) Snapshots(ctx context.Context, kitID string) ([]SnapshotView, error) {
	snaps, err := a.kits.ListSnapshots(ctx, kitID)
	if err != nil {
		return nil, err
	}
	views := make([]SnapshotView, len(snaps))
	for i, s := range snaps {
		views[i] = SnapshotView{ID: s.ID, Label: s.Label, CreatedAt: s.CreatedAt.Format(time.RFC3339)}
	}
	return views, nil
}

// Restore replaces the kit's document with a snapshot and saves it.
func (a *App) Restore(ctx context.Context, kitID, snapshotID string) error {
	if err := a.kits.Restore(ctx, kitID, snapshotID); err != nil {
		return err
	}
	return a.kits.Save(ctx, kitID)
}

// Backup takes a scheduled-style snapshot of each kit and prunes older
// ones down to the configured number.
func (a *App) Backup(ctx context.Context, kitIDs ...string) error {
	for _, id := range kitIDs {
		if _, err := a.kits.Snapshot(ctx, id, service.BackupLabel); err != nil {
			return err
		}
		if keep := a.cfg.Backup.Keep; keep > 0 {
			if err := a.kits.PruneSnapshots(ctx, id, keep); err != nil {
				return err
			}
		}
	}
	return nil
}
