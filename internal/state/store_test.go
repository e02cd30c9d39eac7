package state_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mediakit/internal/domain"
	"mediakit/internal/state"
)

func newStore(t *testing.T, opts ...state.Option) (*state.Store, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	n := 0
	base := []state.Option{
		state.WithLogger(zap.New(core)),
		state.WithClock(func() time.Time { return fixedNow }),
		state.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		}),
	}
	return state.New(append(base, opts...)...), logs
}

func raw(typ, payload string) state.RawAction {
	return state.RawAction{Type: typ, Payload: json.RawMessage(payload)}
}

// ─────────────────────────────────────────────────────────────
// Dispatch
// ─────────────────────────────────────────────────────────────

func TestStore_AddComponentScenario(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.DispatchRaw(raw("ADD_COMPONENT", `{"type":"hero","data":{"title":"T"}}`)))

	doc := s.State()
	require.Len(t, doc.Components, 1)
	for id, c := range doc.Components {
		assert.NotEmpty(t, id)
		assert.Equal(t, "hero", c.Type)
		assert.Equal(t, "T", c.Data["title"])
	}
	assert.Empty(t, doc.Layout)
	assert.Empty(t, doc.Sections)
}

func TestStore_AddIntoTwoColumnSectionScenario(t *testing.T) {
	s, _ := newStore(t)

	sectionID := s.AddSection(domain.SectionTwoColumn, nil)
	require.NoError(t, s.DispatchRaw(raw("ADD_COMPONENT",
		fmt.Sprintf(`{"type":"bio","sectionId":%q,"column":1}`, sectionID))))

	doc := s.State()
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Columns[1], 1)
	id := doc.Sections[0].Columns[1][0]
	assert.Equal(t, "bio", doc.Components[id].Type)
	assert.Empty(t, doc.Sections[0].Columns[2])
}

func TestStore_UpdateUnknownComponentScenario(t *testing.T) {
	s, logs := newStore(t)
	before := s.State()
	version := s.Version()

	require.NoError(t, s.DispatchRaw(raw("UPDATE_COMPONENT", `{"id":"nonexistent","data":{}}`)))

	assert.Equal(t, version, s.Version())
	assert.Empty(t, cmp.Diff(before, s.State()))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
	assert.False(t, s.CanUndo())
}

func TestStore_SetStateScenario(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.DispatchRaw(raw("SET_STATE", `{
		"components": {"x": {"type": "hero"}},
		"sections": [{"section_id": "s", "type": "full_width", "components": ["ghost", "x"]}]
	}`)))

	doc := s.State()
	assert.Equal(t, []string{"x"}, doc.Sections[0].Components)
	assert.Equal(t, "s", doc.Components["x"].SectionID)
}

func TestStore_UpdateSectionNestedUpdatesScenario(t *testing.T) {
	s, _ := newStore(t)
	id := s.AddSection(domain.SectionFullWidth, nil)
	version := s.Version()

	require.NoError(t, s.DispatchRaw(raw("UPDATE_SECTION",
		fmt.Sprintf(`{"sectionId":%q,"updates":{"type":"three_column","section_options":{"bg":"red"}}}`, id))))

	doc := s.State()
	assert.Equal(t, version+1, s.Version())
	assert.Equal(t, domain.SectionThreeColumn, doc.Sections[0].Type)
	assert.Equal(t, "red", doc.Sections[0].Settings["bg"])
}

func TestStore_MergeStateAndSectionsScenario(t *testing.T) {
	s, _ := newStore(t)
	a := s.AddComponent("hero", nil, "", 0)

	require.NoError(t, s.DispatchRaw(raw("MERGE_STATE", `{"themeSettings":{"primaryColor":"#111"}}`)))
	require.NoError(t, s.DispatchRaw(raw("UPDATE_SECTIONS",
		fmt.Sprintf(`[{"section_id":"s","type":"full_width","components":[%q]}]`, a))))

	doc := s.State()
	assert.Equal(t, "#111", doc.ThemeSettings["primaryColor"])
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "s", doc.Components[a].SectionID)
	assert.Equal(t, uint64(3), s.Version())
}

func TestStore_CommandIDOfDroppedAction(t *testing.T) {
	dropAdds := func(a state.Action, next state.Next) {
		if _, ok := a.(state.AddComponent); ok {
			return
		}
		next(a)
	}
	s, _ := newStore(t, state.WithMiddleware(dropAdds))

	id := s.AddComponent("hero", nil, "", 0)

	assert.NotEmpty(t, id)
	assert.NotContains(t, s.State().Components, id)
	assert.Equal(t, uint64(0), s.Version())
}

func TestStore_DispatchNil(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.Dispatch(nil), state.ErrNilAction)
}

func TestStore_DispatchRawUnknownType(t *testing.T) {
	s, logs := newStore(t)

	err := s.DispatchRaw(raw("LAUNCH_ROCKET", `{}`))

	require.ErrorIs(t, err, state.ErrUnknownAction)
	assert.Equal(t, uint64(0), s.Version())
	assert.Equal(t, 1, logs.FilterMessage("Unknown action ignored").Len())
}

func TestStore_DispatchRawInvalidPayload(t *testing.T) {
	s, logs := newStore(t)

	err := s.DispatchRaw(raw("ADD_COMPONENT", `[1, 2]`))

	require.ErrorIs(t, err, state.ErrInvalidPayload)
	assert.Empty(t, s.State().Components)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestStore_StateIsACopy(t *testing.T) {
	s, _ := newStore(t)
	id := s.AddComponent("hero", map[string]any{"title": "T"}, "", 0)

	doc := s.State()
	doc.Components[id].Data["title"] = "hacked"
	delete(doc.Components, id)

	assert.Equal(t, "T", s.State().Components[id].Data["title"])
}

func TestStore_WithInitialRepairs(t *testing.T) {
	s, logs := newStore(t, state.WithInitial(domain.Document{
		Components: map[string]domain.Component{"a": {ID: "a", Type: "hero"}},
		Layout:     []string{"a", "ghost"},
	}))

	assert.Equal(t, []string{"a"}, s.State().Layout)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

// ─────────────────────────────────────────────────────────────
// History
// ─────────────────────────────────────────────────────────────

func TestStore_UndoRedoRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	sec := s.AddSection(domain.SectionThreeColumn, nil)
	a := s.AddComponent("hero", map[string]any{"title": "A"}, sec, 2)
	b := s.AddComponent("bio", nil, "", 0)
	s.SetLayout(a, b)
	s.UpdateComponent(a, map[string]any{"title": "B"})
	s.SetTheme("dark")
	s.RemoveComponent(b)
	const n = 7

	after := s.State()
	for i := 0; i < n; i++ {
		require.True(t, s.CanUndo())
		s.Undo()
	}
	assert.False(t, s.CanUndo())
	assert.Empty(t, s.State().Components)

	for i := 0; i < n; i++ {
		s.Redo()
	}
	assert.False(t, s.CanRedo())
	if diff := cmp.Diff(after, s.State()); diff != "" {
		t.Errorf("redo did not restore the document (-want +got):\n%s", diff)
	}
}

func TestStore_UndoOnEmptyHistoryIsNoop(t *testing.T) {
	s, _ := newStore(t)
	s.Undo()
	s.Redo()
	assert.Equal(t, uint64(0), s.Version())
}

func TestStore_NewDispatchClearsRedo(t *testing.T) {
	s, _ := newStore(t)
	s.SetTheme("one")
	s.Undo()
	require.True(t, s.CanRedo())

	s.SetTheme("two")
	assert.False(t, s.CanRedo())
}

func TestStore_HistoryLimit(t *testing.T) {
	s, _ := newStore(t, state.WithHistoryLimit(2))
	s.SetTheme("a")
	s.SetTheme("b")
	s.SetTheme("c")

	s.Undo()
	s.Undo()
	s.Undo()
	assert.Equal(t, "a", s.State().Theme)
}

func TestStore_TimelineAndJumpTo(t *testing.T) {
	s, _ := newStore(t)
	s.SetTheme("a")
	s.SetTheme("b")
	s.SetTheme("c")

	steps := s.Timeline()
	require.Len(t, steps, 4)
	assert.True(t, steps[3].Current)
	assert.Equal(t, string(state.ActionSetTheme), steps[3].Label)

	s.JumpTo(1)
	assert.Equal(t, "a", s.State().Theme)
	s.JumpTo(3)
	assert.Equal(t, "c", s.State().Theme)

	s.ClearHistory()
	assert.False(t, s.CanUndo())
}

// ─────────────────────────────────────────────────────────────
// Batches
// ─────────────────────────────────────────────────────────────

func TestStore_BatchNotifiesOnce(t *testing.T) {
	s, _ := newStore(t)
	var got []domain.Document
	s.Subscribe(func(d domain.Document) { got = append(got, d) })

	s.StartBatch()
	a := s.AddComponent("hero", nil, "", 0)
	s.StartBatch()
	b := s.AddComponent("bio", nil, "", 0)
	s.EndBatch()
	s.SetLayout(a, b)
	assert.Empty(t, got, "nothing is announced until the outermost batch ends")
	s.EndBatch()

	require.Len(t, got, 1)
	assert.Equal(t, []string{a, b}, got[0].Layout)
	assert.Equal(t, uint64(1), s.Version())

	s.Undo()
	assert.Empty(t, s.State().Components, "one undo reverts the whole batch")
}

func TestStore_EmptyBatchRecordsNothing(t *testing.T) {
	s, _ := newStore(t)
	calls := 0
	s.Subscribe(func(domain.Document) { calls++ })

	s.Batch(func() {
		s.RemoveComponent("nothing")
	})

	assert.Zero(t, calls)
	assert.False(t, s.CanUndo())
}

func TestStore_BatchThatCancelsOutRecordsNothing(t *testing.T) {
	tick := fixedNow
	s, _ := newStore(t, state.WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))
	before := s.State()
	calls := 0
	s.Subscribe(func(domain.Document) { calls++ })

	s.Batch(func() {
		s.SetTheme("dark")
		s.SetTheme(domain.DefaultTheme)
	})

	assert.Zero(t, calls)
	assert.False(t, s.CanUndo())
	assert.Equal(t, uint64(0), s.Version())
	assert.Empty(t, cmp.Diff(before, s.State()))
}

func TestStore_UndoInsideBatchIgnored(t *testing.T) {
	s, logs := newStore(t)
	s.SetTheme("a")

	s.StartBatch()
	s.Undo()
	assert.Equal(t, "a", s.State().Theme)
	assert.False(t, s.CanUndo())
	s.EndBatch()

	assert.Equal(t, 1, logs.FilterMessage("Undo ignored inside a batch").Len())
	assert.True(t, s.CanUndo())
}

func TestStore_EndBatchWithoutStart(t *testing.T) {
	s, logs := newStore(t)
	s.EndBatch()
	assert.Equal(t, 1, logs.FilterMessage("EndBatch without StartBatch ignored").Len())
	assert.False(t, s.InBatch())
}

// ─────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────

func TestStore_SubscribersRunInOrder(t *testing.T) {
	s, _ := newStore(t)
	var order []string
	s.Subscribe(func(domain.Document) { order = append(order, "first") })
	unsub := s.Subscribe(func(domain.Document) { order = append(order, "second") })
	s.Subscribe(func(domain.Document) { order = append(order, "third") })

	s.SetTheme("x")
	assert.Equal(t, []string{"first", "second", "third"}, order)

	unsub()
	unsub()
	order = nil
	s.SetTheme("y")
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestStore_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	s, logs := newStore(t)
	called := false
	s.Subscribe(func(domain.Document) { panic("boom") })
	s.Subscribe(func(domain.Document) { called = true })

	s.SetTheme("x")

	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("Subscriber panicked").Len())
}

func TestStore_SubscriberCannotMutateState(t *testing.T) {
	s, _ := newStore(t)
	s.Subscribe(func(d domain.Document) {
		d.Theme = "mutated"
		d.GlobalSettings["layout"] = "mutated"
	})

	s.SetTheme("x")

	assert.Equal(t, "x", s.State().Theme)
	assert.Equal(t, "vertical", s.State().GlobalSettings["layout"])
}

func TestStore_ReentrantDispatchIsQueued(t *testing.T) {
	s, _ := newStore(t)
	var seen []string
	s.Subscribe(func(d domain.Document) {
		seen = append(seen, "A:"+d.Theme)
		if d.Theme == "first" {
			s.SetTheme("second")
			seen = append(seen, "A:dispatched")
		}
	})
	s.Subscribe(func(d domain.Document) { seen = append(seen, "B:"+d.Theme) })

	s.SetTheme("first")

	assert.Equal(t, []string{
		"A:first", "A:dispatched", "B:first",
		"A:second", "B:second",
	}, seen)
	assert.Equal(t, "second", s.State().Theme)
}

func TestStore_UnsubscribeDuringNotification(t *testing.T) {
	s, _ := newStore(t)
	var unsubB func()
	bCalls := 0
	s.Subscribe(func(domain.Document) { unsubB() })
	unsubB = s.Subscribe(func(domain.Document) { bCalls++ })

	s.SetTheme("x")
	assert.Zero(t, bCalls)
}
