package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from their observers
// ─────────────────────────────────────────────────────────────

// Events emitted by KitService.
const (
	EventStateChanged = "kit:state-changed"
	EventSaved        = "kit:saved"
	EventSaveTooLarge = "kit:save-too-large"
	EventImported     = "kit:imported"
	EventBackedUp     = "kit:backed-up"
)

// EventEmitter receives service events. The CLI logs them; tests record them.
// Emit may be called from timer and watcher goroutines.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a zap logger at debug level.
type LogEmitter struct {
	Log *zap.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	if e.Log == nil {
		return
	}
	e.Log.Debug("Event", zap.String("event", event), zap.Any("data", data))
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

// Events returns a copy of everything emitted so far.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.events...)
}

// Named returns the recorded emissions of one event.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Event payloads.

type StateChanged struct {
	KitID   string `json:"kitId"`
	Version uint64 `json:"version"`
}

type Saved struct {
	KitID string `json:"kitId"`
	Bytes int    `json:"bytes"`
}

type SaveTooLarge struct {
	KitID string `json:"kitId"`
	Bytes int    `json:"bytes"`
	Limit int    `json:"limit"`
}

type Imported struct {
	KitID string `json:"kitId"`
	Path  string `json:"path"`
}

type BackedUp struct {
	KitID      string `json:"kitId"`
	SnapshotID string `json:"snapshotId"`
}
