package state

import (
	"encoding/json"

	"mediakit/internal/domain"
)

type ActionType string

const (
	ActionAddComponent          ActionType = "ADD_COMPONENT"
	ActionUpdateComponent       ActionType = "UPDATE_COMPONENT"
	ActionRemoveComponent       ActionType = "REMOVE_COMPONENT"
	ActionMoveComponent         ActionType = "MOVE_COMPONENT"
	ActionAssignComponent       ActionType = "ASSIGN_COMPONENT"
	ActionDuplicateComponent    ActionType = "DUPLICATE_COMPONENT"
	ActionBatchUpdateComponents ActionType = "BATCH_UPDATE_COMPONENTS"
	ActionClearAllComponents    ActionType = "CLEAR_ALL_COMPONENTS"
	ActionSetLayout             ActionType = "SET_LAYOUT"
	ActionReorderLayout         ActionType = "REORDER_LAYOUT"
	ActionAddSection            ActionType = "ADD_SECTION"
	ActionUpdateSection         ActionType = "UPDATE_SECTION"
	ActionRemoveSection         ActionType = "REMOVE_SECTION"
	ActionMoveSection           ActionType = "MOVE_SECTION"
	ActionSetTheme              ActionType = "SET_THEME"
	ActionUpdateThemeSettings   ActionType = "UPDATE_THEME_SETTINGS"
	ActionUpdateGlobalSettings  ActionType = "UPDATE_GLOBAL_SETTINGS"
	ActionSetSections           ActionType = "SET_SECTIONS"
	ActionSetState              ActionType = "SET_STATE"
	ActionMergeState            ActionType = "MERGE_STATE"
	ActionResetState            ActionType = "RESET_STATE"
)

// aliases maps legacy action names onto their current type.
var aliases = map[string]ActionType{
	"DELETE_COMPONENT":    ActionRemoveComponent,
	"DELETE_SECTION":      ActionRemoveSection,
	"REORDER_COMPONENTS":  ActionReorderLayout,
	"UPDATE_LAYOUT_ORDER": ActionReorderLayout,
	"UPDATE_SECTIONS":     ActionSetSections,
}

// Action is the closed set of state transitions. Only types declared in this
// package satisfy it.
type Action interface {
	Type() ActionType
	action()
}

// RawAction is the wire form {type, payload} accepted by DispatchRaw.
type RawAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Direction selects how MOVE_COMPONENT and MOVE_SECTION reposition an item.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	// DirectionTo moves to MoveComponent.To, clamped into range.
	DirectionTo Direction = "to"
)

// AddComponent inserts a component. An empty ID is generated. When SectionID
// names a section the component is appended to it, in Column for multi-column
// sections.
type AddComponent struct {
	Component domain.Component
	SectionID string
	Column    int
}

// UpdateComponent shallow-merges Data into the component's data.
type UpdateComponent struct {
	ID   string
	Data map[string]any
}

type RemoveComponent struct {
	ID string
}

// MoveComponent repositions a component inside whatever list holds it: its
// section list or column, otherwise the flat layout.
type MoveComponent struct {
	ID        string
	Direction Direction
	To        int
}

// AssignComponent places a component in a section, taking it out of any other
// section first. An empty SectionID takes it out of every section.
type AssignComponent struct {
	ID        string
	SectionID string
	Column    int
}

// DuplicateComponent copies a component and places the copy right after the
// original. An empty NewID is generated.
type DuplicateComponent struct {
	ID    string
	NewID string
}

type BatchUpdateComponents struct {
	Updates []UpdateComponent
}

// ClearAllComponents deletes every component and empties every list. Sections
// themselves are kept.
type ClearAllComponents struct{}

// SetLayout replaces the flat layout. Unknown and repeated IDs are dropped.
type SetLayout struct {
	IDs []string
}

type ReorderLayout struct {
	From int
	To   int
}

type AddSection struct {
	Section domain.Section
}

// UpdateSection changes a section. Zero fields are left alone: an empty
// Layout, nil Settings, nil Components and nil Columns. Settings are merged,
// Columns replace only the columns they name.
type UpdateSection struct {
	ID         string
	Layout     domain.SectionType
	Settings   map[string]any
	Components []string
	Columns    map[int][]string
}

// RemoveSection deletes a section. Its components stay in the document as
// orphans unless the layout still references them.
type RemoveSection struct {
	ID string
}

type MoveSection struct {
	ID        string
	Direction Direction
}

type SetTheme struct {
	Theme string
}

type UpdateThemeSettings struct {
	Settings map[string]any
}

type UpdateGlobalSettings struct {
	Settings map[string]any
}

// SetSections replaces the section list. Components keep existing; their
// back-references follow the new sections.
type SetSections struct {
	Sections []domain.Section
}

// SetState replaces the whole document after repairing it.
type SetState struct {
	Document domain.Document
}

// MergeState deep-merges Patch into the document's JSON form: objects merge
// key by key, any other value replaces. The result is repaired like SetState.
type MergeState struct {
	Patch map[string]any
}

// ResetState replaces the document with an empty one.
type ResetState struct{}

func (AddComponent) Type() ActionType          { return ActionAddComponent }
func (UpdateComponent) Type() ActionType       { return ActionUpdateComponent }
func (RemoveComponent) Type() ActionType       { return ActionRemoveComponent }
func (MoveComponent) Type() ActionType         { return ActionMoveComponent }
func (AssignComponent) Type() ActionType       { return ActionAssignComponent }
func (DuplicateComponent) Type() ActionType    { return ActionDuplicateComponent }
func (BatchUpdateComponents) Type() ActionType { return ActionBatchUpdateComponents }
func (ClearAllComponents) Type() ActionType    { return ActionClearAllComponents }
func (SetLayout) Type() ActionType             { return ActionSetLayout }
func (ReorderLayout) Type() ActionType         { return ActionReorderLayout }
func (AddSection) Type() ActionType            { return ActionAddSection }
func (UpdateSection) Type() ActionType         { return ActionUpdateSection }
func (RemoveSection) Type() ActionType         { return ActionRemoveSection }
func (MoveSection) Type() ActionType           { return ActionMoveSection }
func (SetTheme) Type() ActionType              { return ActionSetTheme }
func (UpdateThemeSettings) Type() ActionType   { return ActionUpdateThemeSettings }
func (UpdateGlobalSettings) Type() ActionType  { return ActionUpdateGlobalSettings }
func (SetSections) Type() ActionType           { return ActionSetSections }
func (SetState) Type() ActionType              { return ActionSetState }
func (MergeState) Type() ActionType            { return ActionMergeState }
func (ResetState) Type() ActionType            { return ActionResetState }

func (AddComponent) action()          {}
func (UpdateComponent) action()       {}
func (RemoveComponent) action()       {}
func (MoveComponent) action()         {}
func (AssignComponent) action()       {}
func (DuplicateComponent) action()    {}
func (BatchUpdateComponents) action() {}
func (ClearAllComponents) action()    {}
func (SetLayout) action()             {}
func (ReorderLayout) action()         {}
func (AddSection) action()            {}
func (UpdateSection) action()         {}
func (RemoveSection) action()         {}
func (MoveSection) action()           {}
func (SetTheme) action()              {}
func (UpdateThemeSettings) action()   {}
func (UpdateGlobalSettings) action()  {}
func (SetSections) action()           {}
func (SetState) action()              {}
func (MergeState) action()            {}
func (ResetState) action()            {}
