package state

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"mediakit/internal/domain"
)

// Reducer computes the next document for an action. It never modifies the
// document it is given: changes are applied to a deep copy, and an action
// that changes nothing returns the input unchanged with changed == false.
type Reducer struct {
	Now   func() time.Time
	NewID func() string
}

// Reduce applies a to doc. Notes describe repairs and ignored requests; they
// are never errors.
func (r Reducer) Reduce(doc domain.Document, a Action) (next domain.Document, changed bool, notes []string) {
	rc := &reduction{Reducer: r, prev: doc}
	if rc.Now == nil {
		rc.Now = time.Now
	}
	if rc.NewID == nil {
		rc.NewID = domain.NewID
	}
	rc.now = rc.Now()

	switch a := a.(type) {
	case AddComponent:
		rc.addComponent(a)
	case UpdateComponent:
		rc.updateComponent(a)
	case RemoveComponent:
		rc.removeComponent(a)
	case MoveComponent:
		rc.moveComponent(a)
	case AssignComponent:
		rc.assignComponent(a)
	case DuplicateComponent:
		rc.duplicateComponent(a)
	case BatchUpdateComponents:
		for _, u := range a.Updates {
			rc.updateComponent(u)
		}
	case ClearAllComponents:
		rc.clearAll()
	case SetLayout:
		rc.setLayout(a)
	case ReorderLayout:
		rc.reorderLayout(a)
	case AddSection:
		rc.addSection(a)
	case UpdateSection:
		rc.updateSection(a)
	case RemoveSection:
		rc.removeSection(a)
	case MoveSection:
		rc.moveSection(a)
	case SetTheme:
		rc.setTheme(a)
	case UpdateThemeSettings:
		rc.mergeSettings(a.Settings, func(d *domain.Document) *map[string]any { return &d.ThemeSettings })
	case UpdateGlobalSettings:
		rc.mergeSettings(a.Settings, func(d *domain.Document) *map[string]any { return &d.GlobalSettings })
	case SetSections:
		rc.setSections(a)
	case SetState:
		rc.replace(a.Document)
	case MergeState:
		rc.mergeState(a)
	case ResetState:
		rc.replace(domain.NewDocument(rc.now))
	default:
		rc.notef("unhandled action %T ignored", a)
	}

	if rc.next == nil {
		return doc, false, rc.notes
	}
	rc.next.Meta.LastModified = rc.now
	if rc.next.Meta.Version == "" {
		rc.next.Meta.Version = domain.DocumentVersion
	}
	return *rc.next, true, rc.notes
}

// reduction is the working state of a single Reduce call. next stays nil
// until the first change, so no-ops never copy the document.
type reduction struct {
	Reducer
	prev  domain.Document
	next  *domain.Document
	now   time.Time
	notes []string
}

func (rc *reduction) notef(format string, args ...any) {
	rc.notes = append(rc.notes, fmt.Sprintf(format, args...))
}

// doc returns the document as it currently stands.
func (rc *reduction) doc() *domain.Document {
	if rc.next != nil {
		return rc.next
	}
	return &rc.prev
}

// edit returns the writable copy, cloning on first use.
func (rc *reduction) edit() *domain.Document {
	if rc.next == nil {
		d := rc.prev.Clone()
		if d.Components == nil {
			d.Components = map[string]domain.Component{}
		}
		rc.next = &d
	}
	return rc.next
}

// ─────────────────────────────────────────────────────────────
// Components
// ─────────────────────────────────────────────────────────────

func (rc *reduction) addComponent(a AddComponent) {
	c := a.Component.Clone()
	if c.ID == "" {
		c.ID = rc.NewID()
	}
	if _, dup := rc.doc().Components[c.ID]; dup {
		rc.notef("component %q already exists, add ignored", c.ID)
		return
	}
	if strings.TrimSpace(c.Type) == "" {
		rc.notef("component %q: missing type, set to %q", c.ID, domain.UnknownComponentType)
		c.Type = domain.UnknownComponentType
	}
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	c.SectionID, c.Column = "", 0
	if c.CreatedAt.IsZero() {
		c.CreatedAt = rc.now
	}
	c.UpdatedAt = rc.now

	target := -1
	if a.SectionID != "" {
		if target = rc.doc().SectionIndex(a.SectionID); target < 0 {
			rc.notef("component %q: section %q not found, left unplaced", c.ID, a.SectionID)
		}
	}

	d := rc.edit()
	d.Components[c.ID] = c
	if target >= 0 {
		rc.place(target, c.ID, a.Column)
	}
}

func (rc *reduction) updateComponent(u UpdateComponent) {
	c, ok := rc.doc().Components[u.ID]
	if !ok {
		rc.notef("component %q not found, update ignored", u.ID)
		return
	}
	if len(u.Data) == 0 || containsAll(c.Data, u.Data) {
		return
	}
	d := rc.edit()
	c = d.Components[u.ID]
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	for k, v := range u.Data {
		c.Data[k] = domain.CloneValue(v)
	}
	c.UpdatedAt = rc.now
	d.Components[u.ID] = c
}

func (rc *reduction) removeComponent(a RemoveComponent) {
	if _, ok := rc.doc().Components[a.ID]; !ok {
		rc.notef("component %q not found, remove ignored", a.ID)
		return
	}
	d := rc.edit()
	delete(d.Components, a.ID)
	unplace(d, a.ID)
	d.Layout = slices.DeleteFunc(d.Layout, func(id string) bool { return id == a.ID })
}

func (rc *reduction) moveComponent(a MoveComponent) {
	doc := rc.doc()
	if _, ok := doc.Components[a.ID]; !ok {
		rc.notef("component %q not found, move ignored", a.ID)
		return
	}

	var list []string
	p, inSection := doc.Locate(a.ID)
	switch {
	case inSection:
		list = sectionList(doc.Sections[doc.SectionIndex(p.SectionID)], p.Column)
	case slices.Contains(doc.Layout, a.ID):
		list = doc.Layout
	default:
		rc.notef("component %q is not placed anywhere, move ignored", a.ID)
		return
	}

	from := slices.Index(list, a.ID)
	to, ok := rc.target(from, len(list), a.Direction, a.To)
	if !ok {
		return
	}

	d := rc.edit()
	if inSection {
		s := &d.Sections[d.SectionIndex(p.SectionID)]
		setSectionList(s, p.Column, moveItem(sectionList(*s, p.Column), from, to))
		return
	}
	d.Layout = moveItem(d.Layout, from, to)
}

// target resolves where an item at index from should go. It reports false
// when the move would not change anything.
func (rc *reduction) target(from, n int, dir Direction, to int) (int, bool) {
	switch dir {
	case DirectionUp:
		to = from - 1
	case DirectionDown:
		to = from + 1
	case DirectionTo:
		to = min(max(to, 0), n-1)
	default:
		rc.notef("unknown direction %q, move ignored", dir)
		return 0, false
	}
	if to < 0 || to >= n || to == from {
		return 0, false
	}
	return to, true
}

func (rc *reduction) assignComponent(a AssignComponent) {
	doc := rc.doc()
	if _, ok := doc.Components[a.ID]; !ok {
		rc.notef("component %q not found, assign ignored", a.ID)
		return
	}
	cur, placed := doc.Locate(a.ID)

	if a.SectionID == "" {
		if !placed {
			return
		}
		unplace(rc.edit(), a.ID)
		return
	}

	idx := doc.SectionIndex(a.SectionID)
	if idx < 0 {
		rc.notef("section %q not found, assign of %q ignored", a.SectionID, a.ID)
		return
	}
	col := rc.column(doc.Sections[idx], a.Column, a.ID)
	if placed && cur.SectionID == a.SectionID && cur.Column == col {
		return
	}

	d := rc.edit()
	unplace(d, a.ID)
	rc.place(idx, a.ID, col)
}

func (rc *reduction) duplicateComponent(a DuplicateComponent) {
	doc := rc.doc()
	src, ok := doc.Components[a.ID]
	if !ok {
		rc.notef("component %q not found, duplicate ignored", a.ID)
		return
	}
	id := a.NewID
	if id == "" {
		id = rc.NewID()
	}
	if _, dup := doc.Components[id]; dup {
		rc.notef("component %q already exists, duplicate ignored", id)
		return
	}

	c := src.Clone()
	c.ID = id
	c.CreatedAt, c.UpdatedAt = rc.now, rc.now

	d := rc.edit()
	d.Components[id] = c
	if p, ok := d.Locate(a.ID); ok {
		s := &d.Sections[d.SectionIndex(p.SectionID)]
		setSectionList(s, p.Column, slices.Insert(sectionList(*s, p.Column), p.Index+1, id))
	}
	if i := slices.Index(d.Layout, a.ID); i >= 0 {
		d.Layout = slices.Insert(d.Layout, i+1, id)
	}
}

func (rc *reduction) clearAll() {
	doc := rc.doc()
	if len(doc.Components) == 0 && len(doc.Layout) == 0 {
		return
	}
	d := rc.edit()
	d.Components = map[string]domain.Component{}
	d.Layout = []string{}
	for i := range d.Sections {
		s := &d.Sections[i]
		s.Components = []string{}
		if s.Type.MultiColumn() {
			s.Columns = map[int][]string{}
			for col := 1; col <= s.Type.ColumnCount(); col++ {
				s.Columns[col] = []string{}
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Layout
// ─────────────────────────────────────────────────────────────

func (rc *reduction) setLayout(a SetLayout) {
	doc := rc.doc()
	ids := make([]string, 0, len(a.IDs))
	seen := map[string]bool{}
	for _, id := range a.IDs {
		if _, ok := doc.Components[id]; !ok {
			rc.notef("layout: component %q not found, dropped", id)
			continue
		}
		if seen[id] {
			rc.notef("layout: component %q repeated, dropped", id)
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if slices.Equal(ids, doc.Layout) {
		return
	}
	rc.edit().Layout = ids
}

func (rc *reduction) reorderLayout(a ReorderLayout) {
	n := len(rc.doc().Layout)
	if a.From < 0 || a.From >= n {
		rc.notef("layout: index %d out of range, reorder ignored", a.From)
		return
	}
	to, ok := rc.target(a.From, n, DirectionTo, a.To)
	if !ok {
		return
	}
	d := rc.edit()
	d.Layout = moveItem(d.Layout, a.From, to)
}

// ─────────────────────────────────────────────────────────────
// Sections
// ─────────────────────────────────────────────────────────────

func (rc *reduction) addSection(a AddSection) {
	s, notes := domain.ShapeSection(a.Section)
	rc.notes = append(rc.notes, notes...)
	if s.ID == "" {
		s.ID = rc.NewID()
	}
	if rc.doc().SectionIndex(s.ID) >= 0 {
		rc.notef("section %q already exists, add ignored", s.ID)
		return
	}
	d := rc.edit()
	d.Sections = append(d.Sections, s)
	rc.claim(len(d.Sections) - 1)
}

func (rc *reduction) updateSection(u UpdateSection) {
	doc := rc.doc()
	idx := doc.SectionIndex(u.ID)
	if idx < 0 {
		rc.notef("section %q not found, update ignored", u.ID)
		return
	}

	s := doc.Sections[idx].Clone()
	switch {
	case u.Layout == "":
	case !u.Layout.Valid():
		rc.notef("section %q: unknown type %q ignored", u.ID, u.Layout)
	default:
		s = s.Convert(u.Layout)
	}
	if len(u.Settings) > 0 {
		if s.Settings == nil {
			s.Settings = map[string]any{}
		}
		for k, v := range u.Settings {
			s.Settings[k] = domain.CloneValue(v)
		}
	}
	if u.Components != nil {
		ids := slices.Clone(u.Components)
		if s.Type.MultiColumn() {
			s.Columns = emptyColumns(s.Type)
			s.Columns[1] = ids
		} else {
			s.Components = ids
		}
	}
	if u.Columns != nil {
		if !s.Type.MultiColumn() {
			rc.notef("section %q: columns ignored for a %s section", u.ID, s.Type)
		} else {
			for col, ids := range u.Columns {
				if col < 1 || col > s.Type.ColumnCount() {
					rc.notef("section %q: column %d out of range, ignored", u.ID, col)
					continue
				}
				s.Columns[col] = slices.Clone(ids)
			}
		}
	}

	if reflect.DeepEqual(s, doc.Sections[idx]) {
		return
	}
	d := rc.edit()
	d.Sections[idx] = s
	rc.claim(idx)
}

func (rc *reduction) removeSection(a RemoveSection) {
	idx := rc.doc().SectionIndex(a.ID)
	if idx < 0 {
		rc.notef("section %q not found, remove ignored", a.ID)
		return
	}
	d := rc.edit()
	for _, id := range d.Sections[idx].IDs() {
		if c, ok := d.Components[id]; ok {
			c.SectionID, c.Column = "", 0
			d.Components[id] = c
		}
	}
	d.Sections = slices.Delete(d.Sections, idx, idx+1)
}

func (rc *reduction) moveSection(a MoveSection) {
	doc := rc.doc()
	idx := doc.SectionIndex(a.ID)
	if idx < 0 {
		rc.notef("section %q not found, move ignored", a.ID)
		return
	}
	if a.Direction == DirectionTo {
		rc.notef("section %q: direction %q not supported, move ignored", a.ID, a.Direction)
		return
	}
	to, ok := rc.target(idx, len(doc.Sections), a.Direction, 0)
	if !ok {
		return
	}
	d := rc.edit()
	d.Sections[idx], d.Sections[to] = d.Sections[to], d.Sections[idx]
}

// claim makes the section at idx consistent: unknown IDs are dropped, repeats
// are dropped, and IDs held by other sections are taken from them.
func (rc *reduction) claim(idx int) {
	d := rc.edit()
	s := &d.Sections[idx]
	seen := map[string]bool{}
	filter := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := d.Components[id]; !ok {
				rc.notef("section %q: component %q not found, dropped", s.ID, id)
				continue
			}
			if seen[id] {
				rc.notef("section %q: component %q repeated, dropped", s.ID, id)
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
		return out
	}
	if s.Type.MultiColumn() {
		for col := 1; col <= s.Type.ColumnCount(); col++ {
			s.Columns[col] = filter(s.Columns[col])
		}
	} else {
		s.Components = filter(s.Components)
	}

	for i := range d.Sections {
		if i == idx {
			continue
		}
		other := &d.Sections[i]
		drop := func(id string) bool { return seen[id] }
		other.Components = slices.DeleteFunc(other.Components, drop)
		for col, ids := range other.Columns {
			other.Columns[col] = slices.DeleteFunc(ids, drop)
		}
	}

	// back-references of everything this section held before or holds now
	for id, c := range d.Components {
		if seen[id] {
			col, _ := s.Find(id)
			c.SectionID, c.Column = s.ID, col
		} else if c.SectionID == s.ID {
			c.SectionID, c.Column = "", 0
		} else {
			continue
		}
		d.Components[id] = c
	}
}

// ─────────────────────────────────────────────────────────────
// Theme, settings, whole document
// ─────────────────────────────────────────────────────────────

func (rc *reduction) setTheme(a SetTheme) {
	theme := strings.TrimSpace(a.Theme)
	if theme == "" {
		theme = domain.DefaultTheme
	}
	if theme == rc.doc().Theme {
		return
	}
	rc.edit().Theme = theme
}

func (rc *reduction) mergeSettings(patch map[string]any, field func(*domain.Document) *map[string]any) {
	if len(patch) == 0 {
		return
	}
	cur := *field(rc.doc())
	if containsAll(cur, patch) {
		return
	}
	m := field(rc.edit())
	if *m == nil {
		*m = map[string]any{}
	}
	for k, v := range patch {
		(*m)[k] = domain.CloneValue(v)
	}
}

func (rc *reduction) setSections(a SetSections) {
	d := rc.prev.Clone()
	d.Sections = make([]domain.Section, 0, len(a.Sections))
	for _, s := range a.Sections {
		d.Sections = append(d.Sections, s.Clone())
	}
	rc.replace(d)
}

func (rc *reduction) mergeState(a MergeState) {
	if len(a.Patch) == 0 {
		return
	}
	patch, err := jsonObject(a.Patch)
	if err != nil {
		rc.notef("merge state: patch is not a JSON object, ignored: %v", err)
		return
	}
	base, err := jsonObject(rc.prev)
	if err != nil {
		rc.notef("merge state: document not encodable, ignored: %v", err)
		return
	}
	if !deepMerge(base, patch) {
		return
	}
	b, err := json.Marshal(base)
	if err != nil {
		rc.notef("merge state: merged document not encodable, ignored: %v", err)
		return
	}
	doc, notes, err := domain.ParseDocument(b)
	rc.notes = append(rc.notes, notes...)
	if err != nil {
		rc.notef("merge state: %v, ignored", err)
		return
	}
	rc.replace(doc)
}

// deepMerge copies src into dst. Objects present on both sides merge
// recursively; everything else replaces. It reports whether dst changed.
func deepMerge(dst, src map[string]any) bool {
	changed := false
	for k, v := range src {
		sub, isObject := v.(map[string]any)
		cur, hasObject := dst[k].(map[string]any)
		if isObject && hasObject {
			changed = deepMerge(cur, sub) || changed
			continue
		}
		if old, ok := dst[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		dst[k] = v
		changed = true
	}
	return changed
}

// jsonObject returns v in its generic JSON form.
func jsonObject(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (rc *reduction) replace(doc domain.Document) {
	fixed, notes := domain.Normalize(doc, rc.NewID)
	rc.notes = append(rc.notes, notes...)
	if fixed.Meta.CreatedAt.IsZero() {
		fixed.Meta.CreatedAt = rc.now
	}

	if sameDocument(fixed, rc.prev) {
		return
	}
	rc.next = &fixed
}

// sameDocument compares two documents ignoring Meta.LastModified.
func sameDocument(a, b domain.Document) bool {
	a.Meta.LastModified = b.Meta.LastModified
	return reflect.DeepEqual(a, b)
}

// ─────────────────────────────────────────────────────────────
// Placement helpers
// ─────────────────────────────────────────────────────────────

// column clamps a requested column for section s.
func (rc *reduction) column(s domain.Section, col int, id string) int {
	if !s.Type.MultiColumn() {
		return 0
	}
	if col < 1 || col > s.Type.ColumnCount() {
		if col != 0 {
			rc.notef("component %q: column %d out of range for section %q, using column 1", id, col, s.ID)
		}
		return 1
	}
	return col
}

// place appends id to the section at idx and updates its back-reference.
func (rc *reduction) place(idx int, id string, col int) {
	d := rc.edit()
	s := &d.Sections[idx]
	col = rc.column(*s, col, id)
	setSectionList(s, col, append(sectionList(*s, col), id))
	c := d.Components[id]
	c.SectionID, c.Column = s.ID, col
	d.Components[id] = c
}

// unplace removes id from every section and clears its back-reference.
func unplace(d *domain.Document, id string) {
	drop := func(x string) bool { return x == id }
	for i := range d.Sections {
		s := &d.Sections[i]
		s.Components = slices.DeleteFunc(s.Components, drop)
		for col, ids := range s.Columns {
			s.Columns[col] = slices.DeleteFunc(ids, drop)
		}
	}
	if c, ok := d.Components[id]; ok {
		c.SectionID, c.Column = "", 0
		d.Components[id] = c
	}
}

func sectionList(s domain.Section, col int) []string {
	if s.Type.MultiColumn() {
		return s.Columns[col]
	}
	return s.Components
}

func setSectionList(s *domain.Section, col int, ids []string) {
	if s.Type.MultiColumn() {
		if s.Columns == nil {
			s.Columns = map[int][]string{}
		}
		s.Columns[col] = ids
		return
	}
	s.Components = ids
}

func emptyColumns(t domain.SectionType) map[int][]string {
	cols := make(map[int][]string, t.ColumnCount())
	for col := 1; col <= t.ColumnCount(); col++ {
		cols[col] = []string{}
	}
	return cols
}

// moveItem returns a copy of list with the item at from moved to index to.
func moveItem(list []string, from, to int) []string {
	out := slices.Clone(list)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

// containsAll reports whether every key of patch is already in m with an
// equal value.
func containsAll(m, patch map[string]any) bool {
	for k, v := range patch {
		cur, ok := m[k]
		if !ok || !reflect.DeepEqual(cur, v) {
			return false
		}
	}
	return true
}
