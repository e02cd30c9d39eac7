package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ImportDebounce is how long a file must be quiet before it is imported.
// Editors often write a file in several steps.
const ImportDebounce = 300 * time.Millisecond

// ImportWatcher watches a directory for <kitID>.json files and imports each
// one into its kit when it is written.
type ImportWatcher struct {
	dir     string
	kits    *KitService
	emitter EventEmitter
	log     *zap.Logger
	delay   time.Duration

	watcher *fsnotify.Watcher
	guard   jobGuard
	done    chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewImportWatcher starts watching dir, which is created if missing.
func NewImportWatcher(dir string, kits *KitService, emitter EventEmitter, logger *zap.Logger) (*ImportWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = LogEmitter{Log: logger}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	w := &ImportWatcher{
		dir:     abs,
		kits:    kits,
		emitter: emitter,
		log:     logger.With(zap.String("dir", abs)),
		delay:   ImportDebounce,
		watcher: watcher,
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
	go w.watchLoop()
	w.log.Info("Watching for kit imports")
	return w, nil
}

// Dir returns the watched directory.
func (w *ImportWatcher) Dir() string {
	return w.dir
}

// Close stops watching and waits for imports in flight.
func (w *ImportWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := w.guard.WaitAll(ctx); werr != nil {
		w.log.Warn("Imports still running at shutdown", zap.Strings("kits", w.guard.Running()))
	}
	return err
}

func (w *ImportWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			kitID, ok := kitIDFromPath(event.Name)
			if !ok {
				continue
			}
			w.schedule(kitID, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *ImportWatcher) schedule(kitID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.timers[kitID]; ok {
		t.Stop()
	}
	w.timers[kitID] = time.AfterFunc(w.delay, func() { w.importFile(kitID, path) })
}

func (w *ImportWatcher) importFile(kitID, path string) {
	if !w.guard.TryLock(kitID) {
		return
	}
	defer w.guard.Unlock(kitID)

	w.mu.Lock()
	closed := w.closed
	delete(w.timers, kitID)
	w.mu.Unlock()
	if closed {
		return
	}

	body, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("Import read failed", zap.String("path", path), zap.Error(err))
		return
	}
	ctx := context.Background()
	if err := w.kits.Import(ctx, kitID, body); err != nil {
		w.log.Error("Import failed", zap.String("kit", kitID), zap.String("path", path), zap.Error(err))
		return
	}
	w.log.Info("Kit imported", zap.String("kit", kitID), zap.String("path", path))
	w.emitter.Emit(ctx, EventImported, Imported{KitID: kitID, Path: path})
}

// kitIDFromPath maps "<dir>/<kitID>.json" to kitID. Hidden and temporary
// files are ignored.
func kitIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.EqualFold(filepath.Ext(base), ".json") {
		return "", false
	}
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if id == "" {
		return "", false
	}
	return id, true
}
