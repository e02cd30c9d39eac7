// Package history keeps a bounded linear undo/redo history of immutable values.
package history

import "time"

// DefaultLimit is the number of past entries kept when no limit is given.
const DefaultLimit = 50

// Entry is one remembered value. Label names the transition that left it:
// for past entries the change applied on top of Value, for future entries the
// change that produced Value.
type Entry[T any] struct {
	Value T
	Label string
	At    time.Time
}

// Step describes one state on the timeline, oldest first.
type Step struct {
	Index   int       `json:"index"`
	Label   string    `json:"label"`
	At      time.Time `json:"at"`
	Current bool      `json:"current"`
}

// History holds the past in a fixed-size ring (oldest dropped first) and the
// future as a stack. The present is owned by the caller and passed in on
// every move. Not safe for concurrent use.
type History[T any] struct {
	ring   []Entry[T]
	head   int // index of the oldest past entry
	size   int
	future []Entry[T] // last element is the next redo
	now    func() time.Time
}

// New returns a history keeping at most limit past entries.
func New[T any](limit int) *History[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History[T]{ring: make([]Entry[T], limit), now: time.Now}
}

// SetClock replaces the time source used to stamp entries.
func (h *History[T]) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

func (h *History[T]) Limit() int { return len(h.ring) }

// Len returns the number of past entries available to Undo.
func (h *History[T]) Len() int { return h.size }

func (h *History[T]) CanUndo() bool { return h.size > 0 }
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// Record remembers prev as the value before a change called label and clears
// the redo stack.
func (h *History[T]) Record(prev T, label string) {
	h.push(Entry[T]{Value: prev, Label: label, At: h.now()})
	clear(h.future)
	h.future = h.future[:0]
}

// Undo returns the previous value and moves present onto the redo stack.
func (h *History[T]) Undo(present T) (T, bool) {
	if h.size == 0 {
		var zero T
		return zero, false
	}
	e := h.pop()
	h.future = append(h.future, Entry[T]{Value: present, Label: e.Label, At: e.At})
	return e.Value, true
}

// Redo returns the next value and moves present back into the past.
func (h *History[T]) Redo(present T) (T, bool) {
	if len(h.future) == 0 {
		var zero T
		return zero, false
	}
	last := len(h.future) - 1
	e := h.future[last]
	var zero Entry[T]
	h.future[last] = zero
	h.future = h.future[:last]
	h.push(Entry[T]{Value: present, Label: e.Label, At: e.At})
	return e.Value, true
}

// Timeline lists every reachable state: the past oldest first, the present,
// then the future. Each step carries the label of the change that produced
// it; the oldest state has none.
func (h *History[T]) Timeline() []Step {
	steps := make([]Step, 0, h.size+1+len(h.future))
	var label string
	var at time.Time
	for i := 0; i < h.size; i++ {
		steps = append(steps, Step{Index: i, Label: label, At: at})
		e := h.at(i)
		label, at = e.Label, e.At
	}
	steps = append(steps, Step{Index: h.size, Label: label, At: at, Current: true})
	for i := len(h.future) - 1; i >= 0; i-- {
		e := h.future[i]
		steps = append(steps, Step{Index: len(steps), Label: e.Label, At: e.At})
	}
	return steps
}

// JumpTo undoes or redoes until the timeline step index is current and
// returns the value at that step. Out-of-range indexes report false.
func (h *History[T]) JumpTo(index int, present T) (T, bool) {
	if index < 0 || index > h.size+len(h.future) {
		var zero T
		return zero, false
	}
	v := present
	for range h.size - index {
		v, _ = h.Undo(v)
	}
	for range index - h.size {
		v, _ = h.Redo(v)
	}
	return v, true
}

// Clear forgets both past and future.
func (h *History[T]) Clear() {
	clear(h.ring)
	h.head, h.size = 0, 0
	clear(h.future)
	h.future = h.future[:0]
}

func (h *History[T]) at(i int) Entry[T] {
	return h.ring[(h.head+i)%len(h.ring)]
}

func (h *History[T]) push(e Entry[T]) {
	if h.size == len(h.ring) {
		h.ring[h.head] = e
		h.head = (h.head + 1) % len(h.ring)
		return
	}
	h.ring[(h.head+h.size)%len(h.ring)] = e
	h.size++
}

func (h *History[T]) pop() Entry[T] {
	i := (h.head + h.size - 1) % len(h.ring)
	e := h.ring[i]
	var zero Entry[T]
	h.ring[i] = zero
	h.size--
	return e
}
