package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mediakit/internal/config"
	"mediakit/internal/plugins"
	"mediakit/internal/service"
	"mediakit/internal/storage"
)

// App wires storage, the kit service and the background workers together.
// The CLI commands and the MCP server are thin layers over it.
type App struct {
	cfg config.Config
	log *zap.Logger

	backend  *storage.Backend
	registry *service.ComponentRegistry
	emitter  service.EventEmitter
	kits     *service.KitService

	// Background workers, started by StartBackground
	watcher *service.ImportWatcher
	backups *service.BackupScheduler
}

// New creates an App. Nothing is opened until Startup.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, log: logger}
}

// Startup opens storage and builds the services.
func (a *App) Startup(ctx context.Context) error {
	backend, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.backend = backend

	a.registry = service.NewComponentRegistry()
	plugins.RegisterBuiltins(a.registry)

	a.emitter = service.LogEmitter{Log: a.log}
	a.kits = service.NewKitService(
		backend.Kits,
		backend.Snapshots,
		a.registry,
		a.emitter,
		a.log,
		service.KitOptionsFromConfig(a.cfg),
	)
	a.log.Debug("Storage opened", zap.String("driver", a.cfg.Storage.Driver))
	return nil
}

// StartBackground starts the import watcher and the backup scheduler when
// they are configured.
func (a *App) StartBackground() error {
	if dir := a.cfg.Watch.Dir; dir != "" {
		w, err := service.NewImportWatcher(dir, a.kits, a.emitter, a.log)
		if err != nil {
			return fmt.Errorf("start import watcher: %w", err)
		}
		a.watcher = w
		a.log.Info("Watching for kit imports", zap.String("dir", dir))
	}
	if spec := a.cfg.Backup.Schedule; spec != "" {
		b, err := service.NewBackupScheduler(spec, a.cfg.Backup.Keep, a.kits, a.emitter, a.log)
		if err != nil {
			return fmt.Errorf("start backups: %w", err)
		}
		a.backups = b
		a.log.Info("Scheduled backups enabled", zap.String("schedule", spec), zap.Int("keep", a.cfg.Backup.Keep))
	}
	return nil
}

// Shutdown stops the workers, saves every open kit and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.backups != nil {
		a.backups.Stop()
		a.backups = nil
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
		a.watcher = nil
	}
	if a.kits != nil {
		errs = append(errs, a.kits.CloseAll(ctx))
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
		a.backend = nil
	}
	return errors.Join(errs...)
}

// Kits exposes the kit service.
func (a *App) Kits() *service.KitService {
	return a.kits
}
