package domain

import (
	"maps"
	"slices"
	"time"
)

// DocumentVersion is written into Meta.Version of every new document.
const DocumentVersion = "2.2.0"

// DefaultTheme is the theme used when a document does not name one.
const DefaultTheme = "default"

// Document is the complete state of one media kit page.
// Returned to subscribers and persisted as JSON.
type Document struct {
	Components     map[string]Component `json:"components"`
	Sections       []Section            `json:"sections"`
	Layout         []string             `json:"layout"`
	Theme          string               `json:"theme"`
	ThemeSettings  map[string]any       `json:"themeSettings"`
	GlobalSettings map[string]any       `json:"globalSettings"`
	Meta           Meta                 `json:"meta"`
}

// Meta carries bookkeeping about the document itself.
type Meta struct {
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// DefaultGlobalSettings returns the settings every new document starts with.
func DefaultGlobalSettings() map[string]any {
	return map[string]any{
		"layout":           "vertical",
		"responsive":       true,
		"autoSave":         true,
		"autoSaveInterval": 30000,
	}
}

// NewDocument returns an empty document with default theme and settings.
func NewDocument(now time.Time) Document {
	return Document{
		Components:     map[string]Component{},
		Sections:       []Section{},
		Layout:         []string{},
		Theme:          DefaultTheme,
		ThemeSettings:  map[string]any{},
		GlobalSettings: DefaultGlobalSettings(),
		Meta: Meta{
			Version:      DocumentVersion,
			CreatedAt:    now,
			LastModified: now,
		},
	}
}

// Clone returns a deep copy. Nested values inside Data/Settings maps are
// copied as well so callers can never reach the store's own containers.
func (d Document) Clone() Document {
	out := d
	if d.Components != nil {
		out.Components = make(map[string]Component, len(d.Components))
		for id, c := range d.Components {
			out.Components[id] = c.Clone()
		}
	}
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for i, s := range d.Sections {
			out.Sections[i] = s.Clone()
		}
	}
	out.Layout = slices.Clone(d.Layout)
	out.ThemeSettings = cloneValueMap(d.ThemeSettings)
	out.GlobalSettings = cloneValueMap(d.GlobalSettings)
	return out
}

// SectionIndex returns the position of the section with the given ID, or -1.
func (d Document) SectionIndex(id string) int {
	for i, s := range d.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Placement describes where a component ID is referenced inside a section.
type Placement struct {
	SectionID string
	Column    int // 0 for the single list of a full width section
	Index     int
}

// Locate returns the section placement of a component, if any.
func (d Document) Locate(id string) (Placement, bool) {
	for _, s := range d.Sections {
		if col, idx := s.Find(id); idx >= 0 {
			return Placement{SectionID: s.ID, Column: col, Index: idx}, true
		}
	}
	return Placement{}, false
}

// Referenced reports whether any section or the flat layout points at id.
func (d Document) Referenced(id string) bool {
	if slices.Contains(d.Layout, id) {
		return true
	}
	_, ok := d.Locate(id)
	return ok
}

// Orphans returns the IDs of components that no section and no layout entry
// references, sorted for stable output.
func (d Document) Orphans() []string {
	var out []string
	for id := range d.Components {
		if !d.Referenced(id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// ComponentIDs returns every component ID in sorted order.
func (d Document) ComponentIDs() []string {
	return slices.Sorted(maps.Keys(d.Components))
}

func cloneValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies JSON-like values: maps, slices and scalars.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneValueMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
