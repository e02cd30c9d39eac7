// Package state holds a media kit document behind a reducer: every change is
// an Action dispatched through middleware, reduced into a new document,
// recorded for undo and announced to subscribers.
package state

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"mediakit/internal/domain"
	"mediakit/internal/history"
)

// Store owns the canonical document. It is not safe for concurrent use:
// callers on several goroutines must serialise access themselves.
//
// Dispatch, batch brackets and undo/redo run to completion before returning,
// including subscriber notification. When one of them is called from inside a
// subscriber or middleware it is queued and runs after the current call
// finishes, in call order.
type Store struct {
	log     *zap.Logger
	reducer Reducer
	doc     domain.Document
	version uint64
	hist    *history.History[domain.Document]
	chain   Next

	subs   []*subscription
	nextID int

	batchDepth  int
	batchStart  domain.Document
	batchLabels []ActionType

	queue    []func()
	draining bool
}

type subscription struct {
	id     int
	fn     func(domain.Document)
	active bool
}

type options struct {
	logger       *zap.Logger
	historyLimit int
	middleware   []Middleware
	initial      *domain.Document
	now          func() time.Time
	newID        func() string
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHistoryLimit bounds the number of undo steps kept.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithMiddleware appends middleware; the first one added runs first.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithInitial starts the store from doc instead of an empty document. The
// document is repaired first.
func WithInitial(doc domain.Document) Option {
	return func(o *options) { o.initial = &doc }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// New creates a store.
func New(opts ...Option) *Store {
	o := options{historyLimit: history.DefaultLimit, now: time.Now, newID: domain.NewID}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	s := &Store{
		log:     o.logger,
		reducer: Reducer{Now: o.now, NewID: o.newID},
		hist:    history.New[domain.Document](o.historyLimit),
	}
	s.hist.SetClock(o.now)
	s.chain = Chain(s.apply, o.middleware...)

	if o.initial != nil {
		doc, notes := domain.Normalize(*o.initial, o.newID)
		s.warn(notes, "initial")
		s.doc = doc
	} else {
		s.doc = domain.NewDocument(o.now())
	}
	return s
}

// State returns a deep copy of the current document.
func (s *Store) State() domain.Document {
	return s.doc.Clone()
}

// Version counts committed transitions: single dispatches outside a batch,
// outermost batch ends that changed something, undo, redo and jumps.
func (s *Store) Version() uint64 {
	return s.version
}

// Dispatch runs a through the middleware chain and the reducer. Problems with
// the action's data are logged and never returned; the only error is
// ErrNilAction.
func (s *Store) Dispatch(a Action) error {
	if a == nil {
		return ErrNilAction
	}
	s.run(func() { s.chain(a) })
	return nil
}

// DispatchRaw decodes a wire action and dispatches it. Decode errors are
// logged and returned; the state is left unchanged.
func (s *Store) DispatchRaw(raw RawAction) error {
	a, notes, err := Decode(raw)
	s.warn(notes, raw.Type)
	switch {
	case errors.Is(err, ErrUnknownAction):
		s.log.Warn("Unknown action ignored", zap.String("action", raw.Type))
		return err
	case err != nil:
		s.log.Error("Action rejected", zap.String("action", raw.Type), zap.Error(err))
		return err
	}
	return s.Dispatch(a)
}

// Subscribe registers fn to receive a copy of the document after every
// committed transition. Subscribers run in registration order. The returned
// function removes the subscription; calling it more than once is harmless.
func (s *Store) Subscribe(fn func(domain.Document)) func() {
	if fn == nil {
		return func() {}
	}
	s.nextID++
	sub := &subscription{id: s.nextID, fn: fn, active: true}
	s.subs = append(s.subs, sub)
	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		s.subs = slices.DeleteFunc(s.subs, func(x *subscription) bool { return x.id == sub.id })
	}
}

// StartBatch opens a batch. Until the matching outermost EndBatch, changes
// are applied but neither recorded nor announced.
func (s *Store) StartBatch() {
	s.run(func() {
		if s.batchDepth == 0 {
			s.batchStart = s.doc
			s.batchLabels = s.batchLabels[:0]
		}
		s.batchDepth++
	})
}

// EndBatch closes a batch. Closing the outermost batch records one history
// entry and notifies subscribers once, if the document differs from where the
// batch started. Changes that cancel out leave no trace.
func (s *Store) EndBatch() {
	s.run(func() {
		if s.batchDepth == 0 {
			s.log.Warn("EndBatch without StartBatch ignored")
			return
		}
		s.batchDepth--
		if s.batchDepth > 0 {
			return
		}
		start := s.batchStart
		s.batchStart = domain.Document{}
		if sameDocument(start, s.doc) {
			s.doc = start
			return
		}
		s.hist.Record(start, batchLabel(s.batchLabels))
		s.commit()
	})
}

// Batch runs fn between StartBatch and EndBatch.
func (s *Store) Batch(fn func()) {
	s.StartBatch()
	defer s.EndBatch()
	fn()
}

// InBatch reports whether a batch is open.
func (s *Store) InBatch() bool {
	return s.batchDepth > 0
}

func (s *Store) Undo() {
	s.run(func() {
		if s.refuseInBatch("Undo") {
			return
		}
		prev, ok := s.hist.Undo(s.doc)
		if !ok {
			s.log.Debug("Nothing to undo")
			return
		}
		s.doc = prev
		s.commit()
	})
}

func (s *Store) Redo() {
	s.run(func() {
		if s.refuseInBatch("Redo") {
			return
		}
		next, ok := s.hist.Redo(s.doc)
		if !ok {
			s.log.Debug("Nothing to redo")
			return
		}
		s.doc = next
		s.commit()
	})
}

func (s *Store) CanUndo() bool { return s.batchDepth == 0 && s.hist.CanUndo() }
func (s *Store) CanRedo() bool { return s.batchDepth == 0 && s.hist.CanRedo() }

// Timeline lists the states reachable through undo and redo.
func (s *Store) Timeline() []history.Step {
	return s.hist.Timeline()
}

// JumpTo moves to the timeline step with the given index.
func (s *Store) JumpTo(index int) {
	s.run(func() {
		if s.refuseInBatch("JumpTo") {
			return
		}
		if index == s.hist.Len() {
			return
		}
		doc, ok := s.hist.JumpTo(index, s.doc)
		if !ok {
			s.log.Warn("Timeline index out of range", zap.Int("index", index))
			return
		}
		s.doc = doc
		s.commit()
	})
}

// ClearHistory forgets every undo and redo step.
func (s *Store) ClearHistory() {
	s.run(s.hist.Clear)
}

// apply is the end of the middleware chain.
func (s *Store) apply(a Action) {
	if a == nil {
		s.log.Error("Middleware passed a nil action")
		return
	}
	next, changed, notes := s.reducer.Reduce(s.doc, a)
	s.warn(notes, string(a.Type()))
	if !changed {
		return
	}
	prev := s.doc
	s.doc = next
	if s.batchDepth > 0 {
		s.batchLabels = append(s.batchLabels, a.Type())
		return
	}
	s.hist.Record(prev, string(a.Type()))
	s.commit()
}

func (s *Store) commit() {
	s.version++
	for _, sub := range slices.Clone(s.subs) {
		if !sub.active {
			continue
		}
		s.deliver(sub)
	}
}

func (s *Store) deliver(sub *subscription) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Subscriber panicked",
				zap.Int("subscriber", sub.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	sub.fn(s.doc.Clone())
}

// run executes job now, or queues it when another job is already running
// further up the stack.
func (s *Store) run(job func()) {
	s.queue = append(s.queue, job)
	if s.draining {
		return
	}
	s.draining = true
	defer func() { s.draining = false }()
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.runJob(next)
	}
}

func (s *Store) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Dispatch panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	job()
}

func (s *Store) refuseInBatch(op string) bool {
	if s.batchDepth == 0 {
		return false
	}
	s.log.Warn(op + " ignored inside a batch")
	return true
}

func (s *Store) warn(notes []string, action string) {
	for _, n := range notes {
		s.log.Warn(n, zap.String("action", action))
	}
}

func batchLabel(types []ActionType) string {
	if len(types) == 0 {
		return "BATCH"
	}
	first := types[0]
	for _, t := range types[1:] {
		if t != first {
			return fmt.Sprintf("BATCH(%d)", len(types))
		}
	}
	return string(first)
}
