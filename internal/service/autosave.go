package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Autosaver coalesces bursts of changes into one save: every Schedule call
// pushes the save back by the debounce delay.
type Autosaver struct {
	delay time.Duration
	save  func(context.Context) error
	log   *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewAutosaver(delay time.Duration, save func(context.Context) error, logger *zap.Logger) *Autosaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{delay: delay, save: save, log: logger}
}

// Schedule requests a save after the debounce delay.
func (a *Autosaver) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
		return
	}
	a.timer.Reset(a.delay)
}

// Pending reports whether a save is scheduled and has not run yet.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Flush runs a scheduled save now instead of waiting for the timer.
func (a *Autosaver) Flush(ctx context.Context) error {
	if !a.take() {
		return nil
	}
	return a.save(ctx)
}

// Stop cancels any scheduled save. Later Schedule calls are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *Autosaver) fire() {
	if !a.take() {
		return
	}
	if err := a.save(context.Background()); err != nil {
		a.log.Warn("Autosave failed", zap.Error(err))
	}
}

// take clears the pending flag and reports whether it was set.
func (a *Autosaver) take() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pending {
		return false
	}
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
	return true
}
