package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BackupLabel marks snapshots taken by the scheduler.
const BackupLabel = "scheduled"

// BackupScheduler snapshots every open kit on a cron schedule and prunes
// each kit's snapshots to the newest Keep.
type BackupScheduler struct {
	kits    *KitService
	emitter EventEmitter
	log     *zap.Logger
	keep    int

	cron  *cron.Cron
	guard jobGuard
}

// NewBackupScheduler validates schedule and starts the scheduler.
func NewBackupScheduler(schedule string, keep int, kits *KitService, emitter EventEmitter, logger *zap.Logger) (*BackupScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = LogEmitter{Log: logger}
	}
	b := &BackupScheduler{
		kits:    kits,
		emitter: emitter,
		log:     logger,
		keep:    keep,
		cron:    cron.New(),
	}
	if _, err := b.cron.AddFunc(schedule, func() { b.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", schedule, err)
	}
	b.cron.Start()
	b.log.Info("Backups scheduled", zap.String("schedule", schedule), zap.Int("keep", keep))
	return b, nil
}

// RunOnce snapshots every open kit now. Overlapping runs are skipped.
func (b *BackupScheduler) RunOnce(ctx context.Context) {
	if !b.guard.TryLock("backup") {
		b.log.Debug("Backup already running, skipped")
		return
	}
	defer b.guard.Unlock("backup")

	for _, id := range b.kits.OpenKits() {
		snap, err := b.kits.Snapshot(ctx, id, BackupLabel)
		if err != nil {
			b.log.Error("Backup failed", zap.String("kit", id), zap.Error(err))
			continue
		}
		if b.keep > 0 {
			if err := b.kits.PruneSnapshots(ctx, id, b.keep); err != nil {
				b.log.Warn("Snapshot pruning failed", zap.String("kit", id), zap.Error(err))
			}
		}
		b.emitter.Emit(ctx, EventBackedUp, BackedUp{KitID: id, SnapshotID: snap.ID})
	}
}

// Stop halts the schedule and waits for a running backup.
func (b *BackupScheduler) Stop() {
	<-b.cron.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.guard.WaitAll(ctx); err != nil {
		b.log.Warn("Backup still running at shutdown", zap.Strings("jobs", b.guard.Running()))
	}
}
