package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"mediakit/internal/domain"
)

var (
	// ErrNilAction is returned by Dispatch when called without an action.
	ErrNilAction = errors.New("nil action")
	// ErrUnknownAction is returned by Decode for an unrecognised action type.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrInvalidPayload is returned by Decode when a payload cannot be repaired.
	ErrInvalidPayload = errors.New("invalid payload")
)

// ParseType resolves an action name, including legacy aliases.
func ParseType(name string) (ActionType, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if t, ok := aliases[name]; ok {
		return t, true
	}
	t := ActionType(name)
	switch t {
	case ActionAddComponent, ActionUpdateComponent, ActionRemoveComponent,
		ActionMoveComponent, ActionAssignComponent, ActionDuplicateComponent,
		ActionBatchUpdateComponents, ActionClearAllComponents, ActionSetLayout,
		ActionReorderLayout, ActionAddSection, ActionUpdateSection,
		ActionRemoveSection, ActionMoveSection, ActionSetTheme,
		ActionUpdateThemeSettings, ActionUpdateGlobalSettings, ActionSetSections,
		ActionSetState, ActionMergeState, ActionResetState:
		return t, true
	}
	return "", false
}

// Decode turns a wire action into a typed one. Missing or mistyped optional
// fields are repaired and reported in notes. Unknown types return
// ErrUnknownAction; payloads that are not the required shape return
// ErrInvalidPayload.
func Decode(raw RawAction) (Action, []string, error) {
	t, ok := ParseType(raw.Type)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Type)
	}
	d := &payloadDecoder{typ: t}
	a, err := d.decode(raw.Payload)
	if err != nil {
		return nil, d.notes, fmt.Errorf("%s: %w", t, err)
	}
	return a, d.notes, nil
}

type payloadDecoder struct {
	typ   ActionType
	notes []string
}

func (d *payloadDecoder) notef(format string, args ...any) {
	d.notes = append(d.notes, fmt.Sprintf("%s: ", d.typ)+fmt.Sprintf(format, args...))
}

func (d *payloadDecoder) decode(p json.RawMessage) (Action, error) {
	switch d.typ {
	case ActionAddComponent:
		return d.addComponent(p)
	case ActionUpdateComponent:
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return d.update(fields), nil
	case ActionRemoveComponent:
		id, err := d.id(p, "id", "componentId", "component_id")
		return RemoveComponent{ID: id}, err
	case ActionMoveComponent:
		return d.moveComponent(p)
	case ActionAssignComponent:
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return AssignComponent{
			ID:        firstString(fields, "id", "componentId", "component_id"),
			SectionID: firstString(fields, "sectionId", "section_id"),
			Column:    toInt(fields["column"]),
		}, nil
	case ActionDuplicateComponent:
		if s, ok := asString(p); ok {
			return DuplicateComponent{ID: s}, nil
		}
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return DuplicateComponent{
			ID:    firstString(fields, "id", "componentId", "component_id"),
			NewID: firstString(fields, "newId", "new_id"),
		}, nil
	case ActionBatchUpdateComponents:
		return d.batchUpdate(p)
	case ActionClearAllComponents:
		return ClearAllComponents{}, nil
	case ActionSetLayout:
		return d.setLayout(p)
	case ActionReorderLayout:
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return ReorderLayout{
			From: toInt(firstPresent(fields, "from", "fromIndex", "oldIndex")),
			To:   toInt(firstPresent(fields, "to", "toIndex", "newIndex")),
		}, nil
	case ActionAddSection:
		if _, err := requireObject(p); err != nil {
			return nil, err
		}
		s, notes, err := domain.DecodeSection(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		for _, n := range notes {
			d.notef("%s", n)
		}
		return AddSection{Section: s}, nil
	case ActionUpdateSection:
		return d.updateSection(p)
	case ActionRemoveSection:
		id, err := d.id(p, "section_id", "sectionId", "id")
		return RemoveSection{ID: id}, err
	case ActionMoveSection:
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return MoveSection{
			ID:        firstString(fields, "section_id", "sectionId", "id"),
			Direction: Direction(strings.ToLower(toString(fields["direction"]))),
		}, nil
	case ActionSetTheme:
		if s, ok := asString(p); ok {
			return SetTheme{Theme: s}, nil
		}
		fields, err := requireObject(p)
		if err != nil {
			return nil, err
		}
		return SetTheme{Theme: firstString(fields, "theme", "id", "name")}, nil
	case ActionUpdateThemeSettings:
		m, err := d.settings(p)
		return UpdateThemeSettings{Settings: m}, err
	case ActionUpdateGlobalSettings:
		m, err := d.settings(p)
		return UpdateGlobalSettings{Settings: m}, err
	case ActionSetState:
		if _, err := requireObject(p); err != nil {
			return nil, err
		}
		doc, notes, err := domain.ParseDocument(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		for _, n := range notes {
			d.notef("%s", n)
		}
		return SetState{Document: doc}, nil
	case ActionSetSections:
		return d.setSections(p)
	case ActionMergeState:
		m, err := d.settings(p)
		return MergeState{Patch: m}, err
	case ActionResetState:
		return ResetState{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, d.typ)
}

func (d *payloadDecoder) addComponent(p json.RawMessage) (Action, error) {
	if _, err := requireObject(p); err != nil {
		return nil, err
	}
	c, notes, err := domain.DecodeComponent(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	for _, n := range notes {
		d.notef("%s", n)
	}
	a := AddComponent{Component: c, SectionID: c.SectionID, Column: c.Column}
	a.Component.SectionID, a.Component.Column = "", 0
	return a, nil
}

func (d *payloadDecoder) update(fields map[string]json.RawMessage) UpdateComponent {
	u := UpdateComponent{
		ID:   firstString(fields, "id", "componentId", "component_id"),
		Data: map[string]any{},
	}
	for _, name := range []string{"props", "data", "updates"} {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			d.notef("component %q: %s is not an object, ignored", u.ID, name)
			continue
		}
		maps.Copy(u.Data, m)
	}
	return u
}

func (d *payloadDecoder) moveComponent(p json.RawMessage) (Action, error) {
	fields, err := requireObject(p)
	if err != nil {
		return nil, err
	}
	m := MoveComponent{
		ID:        firstString(fields, "id", "componentId", "component_id"),
		Direction: Direction(strings.ToLower(toString(fields["direction"]))),
	}
	if target := firstPresent(fields, "targetIndex", "target_index", "index", "to"); target != nil {
		if m.Direction == "" {
			m.Direction = DirectionTo
		}
		m.To = toInt(target)
	}
	return m, nil
}

func (d *payloadDecoder) batchUpdate(p json.RawMessage) (Action, error) {
	list := p
	if fields, ok := object(p); ok {
		list = fields["updates"]
	}
	var items []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(list), &items); err != nil {
		return nil, fmt.Errorf("%w: expected an array of updates", ErrInvalidPayload)
	}
	b := BatchUpdateComponents{Updates: make([]UpdateComponent, 0, len(items))}
	for i, item := range items {
		fields, ok := object(item)
		if !ok {
			d.notef("updates[%d] is not an object, skipped", i)
			continue
		}
		b.Updates = append(b.Updates, d.update(fields))
	}
	return b, nil
}

func (d *payloadDecoder) setLayout(p json.RawMessage) (Action, error) {
	list := p
	if fields, ok := object(p); ok {
		list = firstPresent(fields, "layout", "ids", "components")
	}
	var items []json.RawMessage
	if list == nil || json.Unmarshal(bytes.TrimSpace(list), &items) != nil {
		return nil, fmt.Errorf("%w: expected an array of component ids", ErrInvalidPayload)
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id := toString(item)
		if id == "" {
			d.notef("layout[%d] is not a component id, dropped", i)
			continue
		}
		ids = append(ids, id)
	}
	return SetLayout{IDs: ids}, nil
}

func (d *payloadDecoder) updateSection(p json.RawMessage) (Action, error) {
	fields, err := requireObject(p)
	if err != nil {
		return nil, err
	}
	u := UpdateSection{ID: firstString(fields, "section_id", "sectionId", "id")}
	if raw, ok := fields["updates"]; ok && !isNull(raw) {
		inner, isObject := object(raw)
		if !isObject {
			d.notef("section %q: updates is not an object, ignored", u.ID)
		}
		maps.Copy(fields, inner)
	}

	for _, name := range []string{"type", "section_type", "layout"} {
		if s, ok := asString(fields[name]); ok && s != "" {
			u.Layout = domain.SectionType(s)
			break
		}
	}
	if u.Layout != "" && !u.Layout.Valid() {
		d.notef("section %q: unknown type %q ignored", u.ID, u.Layout)
		u.Layout = ""
	}

	settings := map[string]any{}
	if raw := fields["layout"]; !isNull(raw) {
		if _, isString := asString(raw); !isString {
			var style map[string]any
			if json.Unmarshal(raw, &style) == nil && len(style) > 0 {
				settings["layout"] = style
			}
		}
	}
	for _, name := range []string{"section_options", "settings"} {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			d.notef("section %q: %s is not an object, ignored", u.ID, name)
			continue
		}
		maps.Copy(settings, m)
	}
	if len(settings) > 0 {
		u.Settings = settings
	}

	if raw, ok := fields["components"]; ok && !isNull(raw) {
		u.Components = d.ids(raw, "components")
	}
	if raw, ok := fields["columns"]; ok && !isNull(raw) {
		var cols map[string]json.RawMessage
		if err := json.Unmarshal(raw, &cols); err != nil {
			d.notef("section %q: columns is not an object, ignored", u.ID)
		}
		for key, list := range cols {
			col, err := strconv.Atoi(key)
			if err != nil {
				d.notef("section %q: column key %q is not a number, ignored", u.ID, key)
				continue
			}
			if u.Columns == nil {
				u.Columns = map[int][]string{}
			}
			u.Columns[col] = d.ids(list, "column "+key)
		}
	}
	return u, nil
}

// setSections accepts a bare array or {sections: [...]}. Unreadable entries
// are dropped with a note.
func (d *payloadDecoder) setSections(p json.RawMessage) (Action, error) {
	if fields, ok := object(p); ok {
		p = fields["sections"]
	}
	if isNull(p) {
		return nil, fmt.Errorf("%w: expected an array of sections", ErrInvalidPayload)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(p, &items); err != nil {
		return nil, fmt.Errorf("%w: expected an array of sections", ErrInvalidPayload)
	}
	out := make([]domain.Section, 0, len(items))
	for i, item := range items {
		sec, notes, err := domain.DecodeSection(item)
		for _, n := range notes {
			d.notef("sections[%d]: %s", i, n)
		}
		if err != nil {
			d.notef("sections[%d]: %v, dropped", i, err)
			continue
		}
		out = append(out, sec)
	}
	return SetSections{Sections: out}, nil
}

// ids reads a list of component references given as plain IDs or
// {component_id} objects.
func (d *payloadDecoder) ids(raw json.RawMessage, what string) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.notef("%s is not an array, ignored", what)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if fields, ok := object(item); ok {
			if id := firstString(fields, "component_id", "id"); id != "" {
				out = append(out, id)
				continue
			}
		} else if id := toString(item); id != "" {
			out = append(out, id)
			continue
		}
		d.notef("%s: unreadable entry dropped", what)
	}
	return out
}

func (d *payloadDecoder) settings(p json.RawMessage) (map[string]any, error) {
	if _, err := requireObject(p); err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return m, nil
}

// id reads an identifier given either as a bare string or inside an object.
func (d *payloadDecoder) id(p json.RawMessage, names ...string) (string, error) {
	if s, ok := asString(p); ok {
		return s, nil
	}
	fields, err := requireObject(p)
	if err != nil {
		return "", err
	}
	return firstString(fields, names...), nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t, &m); err != nil {
		return nil, false
	}
	return m, true
}

func requireObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return map[string]json.RawMessage{}, nil
	}
	m, ok := object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidPayload)
	}
	return m, nil
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// toString reads a string, accepting numbers for legacy numeric IDs.
func toString(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return s
	}
	var n json.Number
	if !isNull(raw) && json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func toInt(raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		switch {
		case math.IsNaN(f):
			return 0
		case f >= math.MaxInt:
			return math.MaxInt
		case f <= math.MinInt:
			return math.MinInt
		}
		return int(f)
	}
	n, _ := strconv.Atoi(toString(raw))
	return n
}

func firstString(fields map[string]json.RawMessage, names ...string) string {
	for _, name := range names {
		if s := toString(fields[name]); s != "" {
			return s
		}
	}
	return ""
}

func firstPresent(fields map[string]json.RawMessage, names ...string) json.RawMessage {
	for _, name := range names {
		if raw, ok := fields[name]; ok && !isNull(raw) {
			return raw
		}
	}
	return nil
}
