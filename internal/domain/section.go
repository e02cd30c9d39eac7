package domain

import (
	"encoding/json"
	"slices"
)

type SectionType string

const (
	SectionFullWidth   SectionType = "full_width"
	SectionTwoColumn   SectionType = "two_column"
	SectionThreeColumn SectionType = "three_column"
)

// Valid reports whether t is one of the known section layouts.
func (t SectionType) Valid() bool {
	switch t {
	case SectionFullWidth, SectionTwoColumn, SectionThreeColumn:
		return true
	}
	return false
}

// ColumnCount returns 1, 2 or 3. Unknown types count as full width.
func (t SectionType) ColumnCount() int {
	switch t {
	case SectionTwoColumn:
		return 2
	case SectionThreeColumn:
		return 3
	default:
		return 1
	}
}

// MultiColumn reports whether placement goes through Columns instead of Components.
func (t SectionType) MultiColumn() bool {
	return t.ColumnCount() > 1
}

// Section is a layout container holding ordered references to components.
// Full width sections use Components; two and three column sections use Columns.
type Section struct {
	ID         string           `json:"section_id"`
	Type       SectionType      `json:"type"`
	Components []string         `json:"components"`
	Columns    map[int][]string `json:"columns,omitempty"`
	Settings   map[string]any   `json:"settings"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Components = slices.Clone(s.Components)
	if s.Columns != nil {
		out.Columns = make(map[int][]string, len(s.Columns))
		for col, ids := range s.Columns {
			out.Columns[col] = slices.Clone(ids)
		}
	}
	out.Settings = cloneValueMap(s.Settings)
	return out
}

// Find returns the column and index of id inside the section.
// Index is -1 when the section does not reference id.
func (s Section) Find(id string) (column, index int) {
	if !s.Type.MultiColumn() {
		return 0, slices.Index(s.Components, id)
	}
	for col := 1; col <= s.Type.ColumnCount(); col++ {
		if i := slices.Index(s.Columns[col], id); i >= 0 {
			return col, i
		}
	}
	return 0, -1
}

// IDs returns every referenced component ID in page order: the single list for
// full width sections, otherwise column 1 first.
func (s Section) IDs() []string {
	if !s.Type.MultiColumn() {
		return slices.Clone(s.Components)
	}
	var out []string
	for col := 1; col <= s.Type.ColumnCount(); col++ {
		out = append(out, s.Columns[col]...)
	}
	return out
}

// Convert returns a copy of s switched to layout t, moving references so that
// every ID is kept exactly once.
func (s Section) Convert(t SectionType) Section {
	out := s.Clone()
	if out.Type == t {
		return out
	}
	ids := s.IDs()
	from := s.Type
	out.Type = t
	switch {
	case !t.MultiColumn():
		out.Components = ids
		if out.Components == nil {
			out.Components = []string{}
		}
		out.Columns = nil
	case !from.MultiColumn():
		out.Columns = emptyColumns(t)
		out.Columns[1] = append(out.Columns[1], ids...)
		out.Components = []string{}
	default:
		cols := emptyColumns(t)
		last := t.ColumnCount()
		for col := 1; col <= from.ColumnCount(); col++ {
			target := min(col, last)
			cols[target] = append(cols[target], s.Columns[col]...)
		}
		out.Columns = cols
		out.Components = []string{}
	}
	return out
}

func emptyColumns(t SectionType) map[int][]string {
	cols := make(map[int][]string, t.ColumnCount())
	for col := 1; col <= t.ColumnCount(); col++ {
		cols[col] = []string{}
	}
	return cols
}

// sectionJSON writes the layout under both "type" and "layout".
type sectionJSON struct {
	ID         string           `json:"section_id"`
	Type       SectionType      `json:"type"`
	Layout     SectionType      `json:"layout"`
	Components []string         `json:"components"`
	Columns    map[int][]string `json:"columns,omitempty"`
	Settings   map[string]any   `json:"settings"`
}

// MarshalJSON keeps the legacy "layout" alias in sync with "type".
func (s Section) MarshalJSON() ([]byte, error) {
	comps := s.Components
	if comps == nil {
		comps = []string{}
	}
	settings := s.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return json.Marshal(sectionJSON{
		ID:         s.ID,
		Type:       s.Type,
		Layout:     s.Type,
		Components: comps,
		Columns:    s.Columns,
		Settings:   settings,
	})
}

// UnmarshalJSON accepts the current and the legacy section shapes.
func (s *Section) UnmarshalJSON(b []byte) error {
	var d decoder
	sec, err := d.section(b)
	if err != nil {
		return err
	}
	*s = sec
	return nil
}

// DecodeSection parses one section object and reports the repairs made.
func DecodeSection(b []byte) (Section, []string, error) {
	var d decoder
	sec, err := d.section(b)
	return sec, d.notes, err
}
