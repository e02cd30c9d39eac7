package domain

import (
	"encoding/json"
	"time"
)

// UnknownComponentType is assigned to components that arrive without a type.
const UnknownComponentType = "unknown"

// Component is a single content block (hero, biography, topics, ...).
// Data is the canonical field bag; "props" only exists on the JSON boundary.
type Component struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	SectionID string         `json:"sectionId,omitempty"`
	Column    int            `json:"column,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the component.
func (c Component) Clone() Component {
	out := c
	out.Data = cloneValueMap(c.Data)
	return out
}

// componentJSON is the wire shape. Props mirrors Data so older readers that
// only know the props field keep working.
type componentJSON struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Props     map[string]any `json:"props"`
	SectionID string         `json:"sectionId,omitempty"`
	Column    int            `json:"column,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// MarshalJSON writes both data and props.
func (c Component) MarshalJSON() ([]byte, error) {
	data := c.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(componentJSON{
		ID:        c.ID,
		Type:      c.Type,
		Data:      data,
		Props:     data,
		SectionID: c.SectionID,
		Column:    c.Column,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
}

// UnmarshalJSON accepts the current and the legacy component shapes.
func (c *Component) UnmarshalJSON(b []byte) error {
	var d decoder
	comp, err := d.component("", b)
	if err != nil {
		return err
	}
	*c = comp
	return nil
}

// DecodeComponent parses one component object and reports the repairs made.
func DecodeComponent(b []byte) (Component, []string, error) {
	var d decoder
	c, err := d.component("", b)
	return c, d.notes, err
}
