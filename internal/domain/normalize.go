package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh globally unique identifier.
func NewID() string {
	return uuid.NewString()
}

// Normalize repairs doc so that every invariant holds:
//   - every component has its map key as ID, a type and a non-nil data map
//   - sections have unique IDs, a known type and lists matching that type
//   - sections and layout only reference existing components, each at most once
//   - component back-references mirror the section that holds them
//
// It never deletes components. The input is not modified. The returned notes
// list each repair so callers can log them.
func Normalize(doc Document, newID func() string) (Document, []string) {
	var notes []string
	notef := func(format string, args ...any) {
		notes = append(notes, fmt.Sprintf(format, args...))
	}

	out := doc.Clone()
	if out.Components == nil {
		out.Components = map[string]Component{}
	}
	if c, ok := out.Components[""]; ok {
		delete(out.Components, "")
		c.ID = newID()
		out.Components[c.ID] = c
		notef("component without id assigned %q", c.ID)
	}
	for key, c := range out.Components {
		if c.ID != key {
			notef("component %q: id %q replaced by its key", key, c.ID)
			c.ID = key
		}
		if strings.TrimSpace(c.Type) == "" {
			notef("component %q: missing type, set to %q", key, UnknownComponentType)
			c.Type = UnknownComponentType
		}
		if c.Data == nil {
			c.Data = map[string]any{}
		}
		out.Components[key] = c
	}

	seenSection := map[string]bool{}
	placed := map[string]Placement{}
	sections := make([]Section, 0, len(out.Sections))
	for _, s := range out.Sections {
		if s.ID == "" || seenSection[s.ID] {
			old := s.ID
			s.ID = newID()
			notef("section %q: missing or duplicate id, assigned %q", old, s.ID)
		}
		seenSection[s.ID] = true
		if !s.Type.Valid() {
			notef("section %q: unknown type %q, using %s", s.ID, s.Type, SectionFullWidth)
			s.Type = SectionFullWidth
		}
		if s.Settings == nil {
			s.Settings = map[string]any{}
		}
		s = shapeColumns(s, notef)

		keep := func(col int, ids []string) []string {
			kept := make([]string, 0, len(ids))
			for _, id := range ids {
				if _, ok := out.Components[id]; !ok {
					notef("section %q: dangling component %q dropped", s.ID, id)
					continue
				}
				if p, dup := placed[id]; dup {
					notef("section %q: component %q already placed in section %q, dropped", s.ID, id, p.SectionID)
					continue
				}
				placed[id] = Placement{SectionID: s.ID, Column: col, Index: len(kept)}
				kept = append(kept, id)
			}
			return kept
		}
		if s.Type.MultiColumn() {
			for col := 1; col <= s.Type.ColumnCount(); col++ {
				s.Columns[col] = keep(col, s.Columns[col])
			}
		} else {
			s.Components = keep(0, s.Components)
		}
		sections = append(sections, s)
	}
	out.Sections = sections

	layout := make([]string, 0, len(out.Layout))
	inLayout := map[string]bool{}
	for _, id := range out.Layout {
		if _, ok := out.Components[id]; !ok {
			notef("layout: dangling component %q dropped", id)
			continue
		}
		if inLayout[id] {
			notef("layout: duplicate component %q dropped", id)
			continue
		}
		inLayout[id] = true
		layout = append(layout, id)
	}
	out.Layout = layout

	for id, c := range out.Components {
		p, ok := placed[id]
		switch {
		case ok:
			c.SectionID, c.Column = p.SectionID, p.Column
		case c.SectionID != "":
			notef("component %q: section %q does not hold it, back-reference cleared", id, c.SectionID)
			c.SectionID, c.Column = "", 0
		default:
			c.Column = 0
		}
		out.Components[id] = c
	}

	if strings.TrimSpace(out.Theme) == "" {
		out.Theme = DefaultTheme
	}
	if out.ThemeSettings == nil {
		out.ThemeSettings = map[string]any{}
	}
	if out.GlobalSettings == nil {
		out.GlobalSettings = DefaultGlobalSettings()
	}
	if out.Meta.Version == "" {
		out.Meta.Version = DocumentVersion
	}
	return out, notes
}

// shapeColumns makes the section's lists match its type.
func shapeColumns(s Section, notef func(string, ...any)) Section {
	if !s.Type.MultiColumn() {
		if len(s.Columns) > 0 {
			notef("section %q: full width section had columns, flattened", s.ID)
			for _, col := range slices.Sorted(maps.Keys(s.Columns)) {
				s.Components = append(s.Components, s.Columns[col]...)
			}
		}
		s.Columns = nil
		if s.Components == nil {
			s.Components = []string{}
		}
		return s
	}
	n := s.Type.ColumnCount()
	cols := emptyColumns(s.Type)
	for _, col := range slices.Sorted(maps.Keys(s.Columns)) {
		ids := s.Columns[col]
		target := col
		if col < 1 || col > n {
			target = min(max(col, 1), n)
			notef("section %q: column %d out of range, moved to column %d", s.ID, col, target)
		}
		cols[target] = append(cols[target], ids...)
	}
	if len(s.Components) > 0 {
		notef("section %q: %s section had a flat component list, moved to column 1", s.ID, s.Type)
		cols[1] = append(cols[1], s.Components...)
	}
	s.Columns = cols
	s.Components = []string{}
	return s
}

// ShapeSection gives s a known type, a settings map and lists that match its
// type. Unlike Normalize it does not look at the rest of the document.
func ShapeSection(s Section) (Section, []string) {
	var notes []string
	notef := func(format string, args ...any) {
		notes = append(notes, fmt.Sprintf(format, args...))
	}
	s = s.Clone()
	switch {
	case s.Type == "":
		s.Type = SectionFullWidth
	case !s.Type.Valid():
		notef("section %q: unknown type %q, using %s", s.ID, s.Type, SectionFullWidth)
		s.Type = SectionFullWidth
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
	}
	return shapeColumns(s, notef), notes
}
