package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediakit/internal/config"
	"mediakit/internal/domain"
	"mediakit/internal/history"
	"mediakit/internal/state"
)

var (
	ErrKitNotOpen       = errors.New("kit not open")
	ErrDocumentTooLarge = errors.New("document too large")
	ErrSnapshotMismatch = errors.New("snapshot belongs to another kit")
)

// ─────────────────────────────────────────────────────────────
// KitService — open kits, their stores and persistence
// ─────────────────────────────────────────────────────────────

// KitOptions tunes KitService. Zero values mean: default history bound, no
// autosave, no size limit.
type KitOptions struct {
	HistoryLimit     int
	Autosave         bool
	Debounce         time.Duration
	MaxDocumentBytes int

	Now   func() time.Time
	NewID func() string
}

// KitOptionsFromConfig maps the config file onto KitOptions.
func KitOptionsFromConfig(cfg config.Config) KitOptions {
	return KitOptions{
		HistoryLimit:     cfg.History.Limit,
		Autosave:         cfg.Autosave.Enabled,
		Debounce:         cfg.Autosave.Debounce,
		MaxDocumentBytes: cfg.Autosave.MaxDocumentBytes,
	}
}

// KitService keeps one state.Store per open kit. A state.Store is
// single-threaded, so every call goes through mu; the MCP server, the import
// watcher, the backup scheduler and autosave timers all share it.
type KitService struct {
	kits     domain.KitStore
	snaps    domain.SnapshotStore
	registry *ComponentRegistry
	emitter  EventEmitter
	log      *zap.Logger
	opts     KitOptions

	mu   sync.Mutex
	open map[string]*openKit
}

type openKit struct {
	id        string
	name      string
	createdAt time.Time
	store     *state.Store
	saver     *Autosaver
	saved     uint64 // store version last written
}

func (k *openKit) dirty() bool {
	return k.store.Version() != k.saved
}

// NewKitService creates a KitService. registry may be nil.
func NewKitService(
	kits domain.KitStore,
	snaps domain.SnapshotStore,
	registry *ComponentRegistry,
	emitter EventEmitter,
	logger *zap.Logger,
	opts KitOptions,
) *KitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = LogEmitter{Log: logger}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &KitService{
		kits:     kits,
		snaps:    snaps,
		registry: registry,
		emitter:  emitter,
		log:      logger,
		opts:     opts,
		open:     make(map[string]*openKit),
	}
}

// ── Kit lifecycle ──────────────────────────────────────────

// Create stores a new empty kit and opens it.
func (s *KitService) Create(ctx context.Context, name string) (domain.KitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.createLocked(ctx, s.opts.NewID(), name)
	if err != nil {
		return domain.KitSummary{}, err
	}
	return k.summary(), nil
}

func (s *KitService) createLocked(ctx context.Context, id, name string) (*openKit, error) {
	if name == "" {
		name = "Untitled kit"
	}
	kit := &domain.Kit{ID: id, Name: name, Document: domain.NewDocument(s.opts.Now())}
	if err := s.kits.SaveKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("create kit: %w", err)
	}
	s.log.Info("Kit created", zap.String("kit", id), zap.String("name", name))
	return s.attach(kit), nil
}

// Open loads a kit into memory. Opening an open kit is a no-op.
func (s *KitService) Open(ctx context.Context, id string) (domain.KitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.openLocked(ctx, id)
	if err != nil {
		return domain.KitSummary{}, err
	}
	return k.summary(), nil
}

func (s *KitService) openLocked(ctx context.Context, id string) (*openKit, error) {
	if k, ok := s.open[id]; ok {
		return k, nil
	}
	kit, err := s.kits.GetKit(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attach(kit), nil
}

func (k *openKit) summary() domain.KitSummary {
	return domain.KitSummary{ID: k.id, Name: k.name, CreatedAt: k.createdAt}
}

// attach builds the store for a loaded kit and registers it as open.
func (s *KitService) attach(kit *domain.Kit) *openKit {
	logger := s.log.With(zap.String("kit", kit.ID))
	mws := []state.Middleware{state.Logging(logger), state.Validation(logger)}
	if s.registry != nil {
		mws = append(mws, state.Defaults(s.registry, logger))
	}
	store := state.New(
		state.WithLogger(logger),
		state.WithHistoryLimit(s.opts.HistoryLimit),
		state.WithInitial(kit.Document),
		state.WithClock(s.opts.Now),
		state.WithMiddleware(mws...),
	)

	k := &openKit{id: kit.ID, name: kit.Name, createdAt: kit.CreatedAt, store: store}
	if s.opts.Autosave {
		id := kit.ID
		k.saver = NewAutosaver(s.opts.Debounce, func(ctx context.Context) error {
			err := s.Save(ctx, id)
			if errors.Is(err, ErrKitNotOpen) {
				return nil
			}
			return err
		}, logger)
	}
	store.Subscribe(func(domain.Document) {
		s.emitter.Emit(context.Background(), EventStateChanged, StateChanged{KitID: k.id, Version: store.Version()})
		if k.saver != nil {
			k.saver.Schedule()
		}
	})
	s.open[kit.ID] = k
	return k
}

// Close writes unsaved changes and drops the kit from memory. A kit whose
// save fails stays open.
func (s *KitService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(ctx, id)
}

func (s *KitService) closeLocked(ctx context.Context, id string) error {
	k, ok := s.open[id]
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrKitNotOpen)
	}
	if k.dirty() {
		if err := s.persistLocked(ctx, k); err != nil {
			return err
		}
	}
	if k.saver != nil {
		k.saver.Stop()
	}
	delete(s.open, id)
	s.log.Debug("Kit closed", zap.String("kit", id))
	return nil
}

// CloseAll closes every open kit and reports all failures.
func (s *KitService) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, id := range s.openIDsLocked() {
		if err := s.closeLocked(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenKits lists the IDs of open kits in sorted order.
func (s *KitService) OpenKits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openIDsLocked()
}

func (s *KitService) openIDsLocked() []string {
	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *KitService) List(ctx context.Context) ([]domain.KitSummary, error) {
	return s.kits.ListKits(ctx)
}

// Delete removes a kit and its snapshots, discarding unsaved changes.
func (s *KitService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.open[id]; ok {
		if k.saver != nil {
			k.saver.Stop()
		}
		delete(s.open, id)
	}
	if err := s.snaps.DeleteSnapshots(ctx, id); err != nil {
		return err
	}
	return s.kits.DeleteKit(ctx, id)
}

// ── Editing ────────────────────────────────────────────────

// with runs fn on an open kit while holding the service lock.
func (s *KitService) with(id string, fn func(k *openKit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.open[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrKitNotOpen)
	}
	return fn(k)
}

func (s *KitService) Dispatch(id string, a state.Action) error {
	return s.with(id, func(k *openKit) error { return k.store.Dispatch(a) })
}

func (s *KitService) DispatchRaw(id string, raw state.RawAction) error {
	return s.with(id, func(k *openKit) error { return k.store.DispatchRaw(raw) })
}

// Batch runs fn inside one store batch: one undo step, one notification.
func (s *KitService) Batch(id string, fn func(*state.Store)) error {
	return s.with(id, func(k *openKit) error {
		k.store.Batch(func() { fn(k.store) })
		return nil
	})
}

func (s *KitService) State(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.with(id, func(k *openKit) error {
		doc = k.store.State()
		return nil
	})
	return doc, err
}

func (s *KitService) Version(id string) (uint64, error) {
	var v uint64
	err := s.with(id, func(k *openKit) error {
		v = k.store.Version()
		return nil
	})
	return v, err
}

// Undo reverts the last change. It reports whether there was one.
func (s *KitService) Undo(id string) (bool, error) {
	var done bool
	err := s.with(id, func(k *openKit) error {
		done = k.store.CanUndo()
		k.store.Undo()
		return nil
	})
	return done, err
}

// Redo reapplies the last undone change. It reports whether there was one.
func (s *KitService) Redo(id string) (bool, error) {
	var done bool
	err := s.with(id, func(k *openKit) error {
		done = k.store.CanRedo()
		k.store.Redo()
		return nil
	})
	return done, err
}

func (s *KitService) Timeline(id string) ([]history.Step, error) {
	var steps []history.Step
	err := s.with(id, func(k *openKit) error {
		steps = k.store.Timeline()
		return nil
	})
	return steps, err
}

func (s *KitService) JumpTo(id string, index int) error {
	return s.with(id, func(k *openKit) error {
		k.store.JumpTo(index)
		return nil
	})
}

// Orphans lists components of an open kit that no section holds.
func (s *KitService) Orphans(id string) ([]string, error) {
	doc, err := s.State(id)
	if err != nil {
		return nil, err
	}
	return doc.Orphans(), nil
}

// ── Persistence ────────────────────────────────────────────

// Save writes the kit's current document.
func (s *KitService) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.open[id]
	if !ok {
		return fmt.Errorf("save %s: %w", id, ErrKitNotOpen)
	}
	return s.persistLocked(ctx, k)
}

func (s *KitService) persistLocked(ctx context.Context, k *openKit) error {
	doc := k.store.State()
	version := k.store.Version()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", k.id, err)
	}
	if limit := s.opts.MaxDocumentBytes; limit > 0 && len(body) > limit {
		s.log.Warn("Kit not saved: document too large",
			zap.String("kit", k.id), zap.Int("bytes", len(body)), zap.Int("limit", limit))
		s.emitter.Emit(ctx, EventSaveTooLarge, SaveTooLarge{KitID: k.id, Bytes: len(body), Limit: limit})
		return fmt.Errorf("save %s: %w (%d bytes, limit %d)", k.id, ErrDocumentTooLarge, len(body), limit)
	}

	kit := &domain.Kit{ID: k.id, Name: k.name, Document: doc, CreatedAt: k.createdAt}
	if err := s.kits.SaveKit(ctx, kit); err != nil {
		return fmt.Errorf("save %s: %w", k.id, err)
	}
	k.createdAt = kit.CreatedAt
	k.saved = version
	s.log.Debug("Kit saved", zap.String("kit", k.id), zap.Int("bytes", len(body)))
	s.emitter.Emit(ctx, EventSaved, Saved{KitID: k.id, Bytes: len(body)})
	return nil
}

// Flush runs every pending autosave now.
func (s *KitService) Flush(ctx context.Context) error {
	s.mu.Lock()
	savers := make([]*Autosaver, 0, len(s.open))
	for _, id := range s.openIDsLocked() {
		if k := s.open[id]; k.saver != nil {
			savers = append(savers, k.saver)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, a := range savers {
		if err := a.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ── Snapshots ──────────────────────────────────────────────

// Snapshot stores a labelled copy of the kit. Open kits are captured with
// their unsaved changes.
func (s *KitService) Snapshot(ctx context.Context, kitID, label string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc domain.Document
	if k, ok := s.open[kitID]; ok {
		doc = k.store.State()
	} else {
		kit, err := s.kits.GetKit(ctx, kitID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		doc = kit.Document
	}
	if label == "" {
		label = "manual"
	}
	snap := &domain.Snapshot{
		ID:        s.opts.NewID(),
		KitID:     kitID,
		Label:     label,
		Document:  doc,
		CreatedAt: s.opts.Now(),
	}
	if err := s.snaps.CreateSnapshot(ctx, snap); err != nil {
		return domain.Snapshot{}, err
	}
	return *snap, nil
}

func (s *KitService) ListSnapshots(ctx context.Context, kitID string) ([]domain.Snapshot, error) {
	return s.snaps.ListSnapshots(ctx, kitID)
}

func (s *KitService) PruneSnapshots(ctx context.Context, kitID string, keep int) error {
	return s.snaps.PruneSnapshots(ctx, kitID, keep)
}

// Restore replaces the kit's document with a snapshot. The kit is opened if
// needed and the restore is one undoable step.
func (s *KitService) Restore(ctx context.Context, kitID, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snaps.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return err
	}
	if snap.KitID != kitID {
		return fmt.Errorf("restore %s into %s: %w", snapshotID, kitID, ErrSnapshotMismatch)
	}
	k, err := s.openLocked(ctx, kitID)
	if err != nil {
		return err
	}
	return k.store.Dispatch(state.SetState{Document: snap.Document})
}

// ── Import ─────────────────────────────────────────────────

// Import replaces a kit's document with a JSON document from outside,
// creating the kit if it does not exist. Legacy shapes are accepted.
func (s *KitService) Import(ctx context.Context, kitID string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := s.openLocked(ctx, kitID)
	if errors.Is(err, domain.ErrNotFound) {
		k, err = s.createLocked(ctx, kitID, kitID)
	}
	if err != nil {
		return err
	}
	return k.store.DispatchRaw(state.RawAction{Type: string(state.ActionSetState), Payload: body})
}
