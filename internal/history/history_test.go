package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediakit/internal/history"
)

// apply records present and returns next, the way a store commits a change.
func apply(h *history.History[int], present, next int, label string) int {
	h.Record(present, label)
	return next
}

func TestHistory_UndoRedo(t *testing.T) {
	h := history.New[int](0)
	assert.Equal(t, history.DefaultLimit, h.Limit())

	v := 0
	v = apply(h, v, 1, "one")
	v = apply(h, v, 2, "two")

	v, ok := h.Undo(v)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = h.Undo(v)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	_, ok = h.Undo(v)
	assert.False(t, ok, "undo past the oldest entry")

	v, ok = h.Redo(v)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, _ = h.Redo(v)
	assert.Equal(t, 2, v)
	assert.False(t, h.CanRedo())
}

func TestHistory_RecordClearsFuture(t *testing.T) {
	h := history.New[int](10)
	v := apply(h, 0, 1, "one")
	v, _ = h.Undo(v)
	require.True(t, h.CanRedo())

	apply(h, v, 5, "five")
	assert.False(t, h.CanRedo())
	assert.Equal(t, 1, h.Len())
}

func TestHistory_BoundedDropsOldest(t *testing.T) {
	h := history.New[int](3)
	v := 0
	for i := 1; i <= 5; i++ {
		v = apply(h, v, i, "step")
	}
	assert.Equal(t, 3, h.Len())

	for h.CanUndo() {
		v, _ = h.Undo(v)
	}
	assert.Equal(t, 2, v, "values 0 and 1 fell off the ring")
}

func TestHistory_Timeline(t *testing.T) {
	h := history.New[int](10)
	v := apply(h, 0, 1, "one")
	v = apply(h, v, 2, "two")
	v, _ = h.Undo(v)

	steps := h.Timeline()
	require.Len(t, steps, 3)
	assert.Equal(t, "", steps[0].Label)
	assert.Equal(t, "one", steps[1].Label)
	assert.True(t, steps[1].Current)
	assert.Equal(t, "two", steps[2].Label)
	assert.Equal(t, 2, steps[2].Index)
	assert.Equal(t, 1, v)
}

func TestHistory_JumpTo(t *testing.T) {
	h := history.New[int](10)
	v := 0
	for i := 1; i <= 4; i++ {
		v = apply(h, v, i, "step")
	}

	v, ok := h.JumpTo(1, v)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, h.Len())

	v, ok = h.JumpTo(3, v)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = h.JumpTo(9, v)
	assert.False(t, ok)
}

func TestHistory_Clear(t *testing.T) {
	h := history.New[int](10)
	v := apply(h, 0, 1, "one")
	v = apply(h, v, 2, "two")
	_, _ = h.Undo(v)

	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	assert.Len(t, h.Timeline(), 1)
}
