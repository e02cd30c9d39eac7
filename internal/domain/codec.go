package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"
)

// ErrNotObject is returned when a document, component or section payload is
// not a JSON object.
var ErrNotObject = errors.New("not a JSON object")

// ParseDocument decodes a document without repairing it. Legacy shapes are
// accepted: a saved_components array instead of the components map, the
// global_settings alias and top-level version. The returned notes describe
// every value that had to be dropped or defaulted while reading.
func ParseDocument(b []byte) (Document, []string, error) {
	var d decoder
	doc, err := d.document(b)
	return doc, d.notes, err
}

// DecodeDocument parses and then normalizes a document, so the result always
// satisfies the referential invariants.
func DecodeDocument(b []byte) (Document, []string, error) {
	doc, notes, err := ParseDocument(b)
	if err != nil {
		return Document{}, notes, err
	}
	doc, fixes := Normalize(doc, NewID)
	return doc, append(notes, fixes...), nil
}

// UnmarshalJSON decodes leniently; use DecodeDocument to also get the notes.
func (doc *Document) UnmarshalJSON(b []byte) error {
	var d decoder
	out, err := d.document(b)
	if err != nil {
		return err
	}
	*doc = out
	return nil
}

// decoder collects repair notes while walking loosely-typed JSON.
type decoder struct {
	notes []string
}

func (d *decoder) notef(format string, args ...any) {
	d.notes = append(d.notes, fmt.Sprintf(format, args...))
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func object(b []byte) (map[string]json.RawMessage, bool) {
	t := bytes.TrimSpace(b)
	if len(t) == 0 || t[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t, &m); err != nil {
		return nil, false
	}
	return m, true
}

// str reads a string, accepting numbers for legacy numeric IDs.
func str(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func firstStr(fields map[string]json.RawMessage, names ...string) string {
	for _, name := range names {
		if s := str(fields[name]); s != "" {
			return s
		}
	}
	return ""
}

func integer(raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		switch {
		case math.IsNaN(n):
			return 0
		case n >= math.MaxInt:
			return math.MaxInt
		case n <= math.MinInt:
			return math.MinInt
		}
		return int(n)
	}
	if v, err := strconv.Atoi(str(raw)); err == nil {
		return v
	}
	return 0
}

// timestamp reads RFC 3339 strings or legacy millisecond epochs.
func timestamp(raw json.RawMessage) time.Time {
	if isNull(raw) {
		return time.Time{}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		return time.Time{}
	}
	var ms float64
	if json.Unmarshal(raw, &ms) == nil && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}

func (d *decoder) valueMap(raw json.RawMessage, what string) map[string]any {
	if isNull(raw) {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		d.notef("%s is not an object, replaced with an empty map", what)
		return map[string]any{}
	}
	return m
}

func (d *decoder) component(key string, b []byte) (Component, error) {
	fields, ok := object(b)
	if !ok {
		return Component{}, fmt.Errorf("component: %w", ErrNotObject)
	}
	c := Component{
		ID:   firstStr(fields, "id", "component_id"),
		Type: str(fields["type"]),
		Data: map[string]any{},
	}
	if key != "" && c.ID != key {
		if c.ID != "" {
			d.notef("component %q: id %q does not match its key, using the key", key, c.ID)
		}
		c.ID = key
	}
	for _, name := range []string{"props", "data"} {
		raw, present := fields[name]
		if !present {
			continue
		}
		maps.Copy(c.Data, d.valueMap(raw, fmt.Sprintf("component %q %s", c.ID, name)))
	}
	c.SectionID = firstStr(fields, "sectionId", "section_id")
	c.Column = integer(fields["column"])
	c.CreatedAt = timestamp(fields["createdAt"])
	c.UpdatedAt = timestamp(fields["updatedAt"])
	return c, nil
}

// ref is one entry of a section's component list: a plain ID or an object
// {component_id, column}.
type ref struct {
	id     string
	column int
}

func (d *decoder) refs(raw json.RawMessage, what string) []ref {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.notef("%s is not an array, ignored", what)
		return nil
	}
	out := make([]ref, 0, len(items))
	for _, item := range items {
		if fields, ok := object(item); ok {
			id := firstStr(fields, "component_id", "id")
			if id == "" {
				d.notef("%s: entry without component id dropped", what)
				continue
			}
			out = append(out, ref{id: id, column: integer(fields["column"])})
			continue
		}
		if id := str(item); id != "" {
			out = append(out, ref{id: id})
			continue
		}
		d.notef("%s: unreadable entry dropped", what)
	}
	return out
}

func (d *decoder) section(b []byte) (Section, error) {
	fields, ok := object(b)
	if !ok {
		return Section{}, fmt.Errorf("section: %w", ErrNotObject)
	}
	s := Section{
		ID:       firstStr(fields, "section_id", "sectionId", "id"),
		Settings: map[string]any{},
	}
	what := fmt.Sprintf("section %q", s.ID)

	var typ string
	for _, name := range []string{"type", "section_type", "layout"} {
		raw := fields[name]
		if isNull(raw) {
			continue
		}
		var v string
		if json.Unmarshal(raw, &v) == nil {
			if typ == "" {
				typ = v
			}
			continue
		}
		if name == "layout" {
			if style := d.valueMap(raw, what+" layout"); len(style) > 0 {
				s.Settings["layout"] = style
			}
		}
	}
	s.Type = SectionType(typ)
	if !s.Type.Valid() {
		if typ != "" {
			d.notef("%s: unknown type %q, using %s", what, typ, SectionFullWidth)
		}
		s.Type = SectionFullWidth
	}

	maps.Copy(s.Settings, d.valueMap(fields["section_options"], what+" section_options"))
	maps.Copy(s.Settings, d.valueMap(fields["settings"], what+" settings"))

	entries := d.refs(fields["components"], what+" components")
	columns := map[int][]string{}
	if raw := fields["columns"]; !isNull(raw) {
		var cols map[string]json.RawMessage
		if err := json.Unmarshal(raw, &cols); err != nil {
			d.notef("%s: columns is not an object, ignored", what)
		}
		for key, list := range cols {
			col, err := strconv.Atoi(key)
			if err != nil {
				d.notef("%s: column key %q is not a number, ignored", what, key)
				continue
			}
			for _, r := range d.refs(list, fmt.Sprintf("%s column %d", what, col)) {
				columns[col] = append(columns[col], r.id)
			}
		}
	}

	if !s.Type.MultiColumn() {
		s.Components = make([]string, 0, len(entries))
		for _, r := range entries {
			s.Components = append(s.Components, r.id)
		}
		if len(columns) > 0 {
			d.notef("%s: full width section had columns, flattened", what)
			for _, col := range slices.Sorted(maps.Keys(columns)) {
				s.Components = append(s.Components, columns[col]...)
			}
		}
		return s, nil
	}

	n := s.Type.ColumnCount()
	s.Components = []string{}
	s.Columns = emptyColumns(s.Type)
	for _, col := range slices.Sorted(maps.Keys(columns)) {
		target := col
		if target < 1 || target > n {
			d.notef("%s: column %d out of range, moved to column %d", what, col, min(max(col, 1), n))
			target = min(max(col, 1), n)
		}
		s.Columns[target] = append(s.Columns[target], columns[col]...)
	}
	for _, r := range entries {
		col := r.column
		if col < 1 || col > n {
			col = 1
		}
		s.Columns[col] = append(s.Columns[col], r.id)
	}
	return s, nil
}

func (d *decoder) components(doc *Document, raw json.RawMessage, order *[]string) {
	if fields, ok := object(raw); ok {
		for key, body := range fields {
			c, err := d.component(key, body)
			if err != nil {
				d.notef("component %q: %v, dropped", key, err)
				continue
			}
			doc.Components[key] = c
		}
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.notef("components is neither an object nor an array, ignored")
		return
	}
	for i, item := range items {
		c, err := d.component("", item)
		if err != nil || c.ID == "" {
			d.notef("components[%d]: no usable id, dropped", i)
			continue
		}
		if _, dup := doc.Components[c.ID]; dup {
			d.notef("components[%d]: duplicate id %q, dropped", i, c.ID)
			continue
		}
		doc.Components[c.ID] = c
		*order = append(*order, c.ID)
	}
}

func (d *decoder) document(b []byte) (Document, error) {
	fields, ok := object(b)
	if !ok {
		return Document{}, fmt.Errorf("document: %w", ErrNotObject)
	}
	doc := Document{
		Components:     map[string]Component{},
		Sections:       []Section{},
		Layout:         []string{},
		ThemeSettings:  map[string]any{},
		GlobalSettings: map[string]any{},
	}

	var order []string
	for _, name := range []string{"components", "saved_components"} {
		if raw := fields[name]; !isNull(raw) {
			d.components(&doc, raw, &order)
		}
	}

	if raw := fields["sections"]; !isNull(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			d.notef("sections is not an array, ignored")
		}
		for i, item := range items {
			s, err := d.section(item)
			if err != nil {
				d.notef("sections[%d]: %v, dropped", i, err)
				continue
			}
			doc.Sections = append(doc.Sections, s)
		}
	}

	if raw := fields["layout"]; !isNull(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			d.notef("layout is not an array, ignored")
		}
		for i, item := range items {
			id := str(item)
			if id == "" {
				d.notef("layout[%d]: not a component id, dropped", i)
				continue
			}
			doc.Layout = append(doc.Layout, id)
		}
	} else if len(order) > 0 {
		doc.Layout = order
	}

	doc.Theme = str(fields["theme"])
	maps.Copy(doc.ThemeSettings, d.valueMap(fields["themeSettings"], "themeSettings"))
	maps.Copy(doc.GlobalSettings, d.valueMap(fields["global_settings"], "global_settings"))
	maps.Copy(doc.GlobalSettings, d.valueMap(fields["globalSettings"], "globalSettings"))

	if meta, ok := object(fields["meta"]); ok {
		doc.Meta.Version = str(meta["version"])
		doc.Meta.CreatedAt = timestamp(meta["createdAt"])
		doc.Meta.LastModified = timestamp(meta["lastModified"])
	}
	if doc.Meta.Version == "" {
		doc.Meta.Version = str(fields["version"])
	}
	return doc, nil
}
