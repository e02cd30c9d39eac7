package service

import (
	"context"
	"slices"
	"sync"
)

// ExportedJobGuard is an exported alias so _test packages can test the guard.
type ExportedJobGuard = jobGuard

// jobGuard allows one run per key at a time (one import per kit, one backup
// pass) and lets shutdown wait for the runs in flight. The zero value is
// ready to use.
type jobGuard struct {
	mu      sync.Mutex
	running map[string]chan struct{} // closed when the run ends
}

// TryLock marks key as running. It returns false if it already is.
func (g *jobGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return false
	}
	if g.running == nil {
		g.running = make(map[string]chan struct{})
	}
	g.running[key] = make(chan struct{})
	return true
}

// Unlock ends the run for key. Keys that are not running are ignored.
func (g *jobGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if done, ok := g.running[key]; ok {
		close(done)
		delete(g.running, key)
	}
}

// Running lists the keys currently held, sorted.
func (g *jobGuard) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.running))
	for k := range g.running {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// WaitAll blocks until nothing is running. Runs started while waiting are
// waited for too. It returns ctx.Err() if ctx ends first.
func (g *jobGuard) WaitAll(ctx context.Context) error {
	for {
		g.mu.Lock()
		var pending chan struct{}
		for _, done := range g.running {
			pending = done
			break
		}
		g.mu.Unlock()

		if pending == nil {
			return nil
		}
		select {
		case <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
