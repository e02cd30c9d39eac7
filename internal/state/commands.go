package state

import "mediakit/internal/domain"

// The helpers below build the matching action and dispatch it. IDs are
// generated up front so callers can refer to what they just created. A
// returned ID names nothing when middleware dropped the action, and nothing
// yet when the call came from a subscriber and was queued.

// AddComponent adds a component of type typ and returns its ID. sectionID
// may be empty to leave it unplaced. Check State before relying on the ID
// when middleware may reject the action.
func (s *Store) AddComponent(typ string, data map[string]any, sectionID string, column int) string {
	id := s.reducer.NewID()
	_ = s.Dispatch(AddComponent{
		Component: domain.Component{ID: id, Type: typ, Data: data},
		SectionID: sectionID,
		Column:    column,
	})
	return id
}

func (s *Store) UpdateComponent(id string, data map[string]any) {
	_ = s.Dispatch(UpdateComponent{ID: id, Data: data})
}

func (s *Store) RemoveComponent(id string) {
	_ = s.Dispatch(RemoveComponent{ID: id})
}

func (s *Store) MoveComponent(id string, dir Direction) {
	_ = s.Dispatch(MoveComponent{ID: id, Direction: dir})
}

// DuplicateComponent copies id and returns the ID the copy gets. No copy
// exists under it when id is unknown or the action was dropped.
func (s *Store) DuplicateComponent(id string) string {
	newID := s.reducer.NewID()
	_ = s.Dispatch(DuplicateComponent{ID: id, NewID: newID})
	return newID
}

// AddSection appends a section of type t and returns its ID, which is only
// assigned once the action is applied.
func (s *Store) AddSection(t domain.SectionType, settings map[string]any) string {
	id := s.reducer.NewID()
	_ = s.Dispatch(AddSection{Section: domain.Section{ID: id, Type: t, Settings: settings}})
	return id
}

func (s *Store) UpdateSection(u UpdateSection) {
	_ = s.Dispatch(u)
}

func (s *Store) RemoveSection(id string) {
	_ = s.Dispatch(RemoveSection{ID: id})
}

func (s *Store) SetLayout(ids ...string) {
	_ = s.Dispatch(SetLayout{IDs: ids})
}

func (s *Store) SetTheme(theme string) {
	_ = s.Dispatch(SetTheme{Theme: theme})
}

func (s *Store) UpdateGlobalSettings(settings map[string]any) {
	_ = s.Dispatch(UpdateGlobalSettings{Settings: settings})
}

func (s *Store) SetState(doc domain.Document) {
	_ = s.Dispatch(SetState{Document: doc})
}

func (s *Store) ResetState() {
	_ = s.Dispatch(ResetState{})
}
