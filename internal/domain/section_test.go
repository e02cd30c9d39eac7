package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mediakit/internal/domain"
)

func TestSectionType_ColumnCount(t *testing.T) {
	tests := []struct {
		typ  domain.SectionType
		want int
	}{
		{domain.SectionFullWidth, 1},
		{domain.SectionTwoColumn, 2},
		{domain.SectionThreeColumn, 3},
		{"nonsense", 1},
	}
	for _, tt := range tests {
		if got := tt.typ.ColumnCount(); got != tt.want {
			t.Errorf("%q.ColumnCount() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestSection_Convert(t *testing.T) {
	three := domain.Section{
		ID:      "s",
		Type:    domain.SectionThreeColumn,
		Columns: map[int][]string{1: {"a"}, 2: {"b"}, 3: {"c"}},
	}

	two := three.Convert(domain.SectionTwoColumn)
	assert.Equal(t, map[int][]string{1: {"a"}, 2: {"b", "c"}}, two.Columns)

	full := two.Convert(domain.SectionFullWidth)
	assert.Equal(t, []string{"a", "b", "c"}, full.Components)
	assert.Nil(t, full.Columns)

	back := full.Convert(domain.SectionThreeColumn)
	assert.Equal(t, map[int][]string{1: {"a", "b", "c"}, 2: {}, 3: {}}, back.Columns)
	assert.Empty(t, back.Components)

	// the receiver is left alone
	assert.Equal(t, []string{"c"}, three.Columns[3])
}

func TestSection_FindAndIDs(t *testing.T) {
	s := domain.Section{
		Type:    domain.SectionTwoColumn,
		Columns: map[int][]string{1: {"a", "b"}, 2: {"c"}},
	}

	col, idx := s.Find("c")
	assert.Equal(t, 2, col)
	assert.Equal(t, 0, idx)

	_, idx = s.Find("zzz")
	assert.Equal(t, -1, idx)

	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())
}

func TestDocument_LocateAndOrphans(t *testing.T) {
	doc := domain.Document{
		Components: map[string]domain.Component{"a": {}, "b": {}, "c": {}},
		Sections:   []domain.Section{{ID: "s", Type: domain.SectionFullWidth, Components: []string{"a"}}},
		Layout:     []string{"b"},
	}

	p, ok := doc.Locate("a")
	assert.True(t, ok)
	assert.Equal(t, domain.Placement{SectionID: "s", Index: 0}, p)

	assert.True(t, doc.Referenced("b"))
	assert.Equal(t, []string{"c"}, doc.Orphans())
	assert.Equal(t, []string{"a", "b", "c"}, doc.ComponentIDs())
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := domain.Document{
		Components: map[string]domain.Component{
			"a": {ID: "a", Data: map[string]any{"tags": []any{"x"}, "nested": map[string]any{"k": "v"}}},
		},
		Sections: []domain.Section{{ID: "s", Components: []string{"a"}}},
	}

	cp := doc.Clone()
	cp.Components["a"].Data["nested"].(map[string]any)["k"] = "changed"
	cp.Components["a"].Data["tags"].([]any)[0] = "y"
	cp.Sections[0].Components[0] = "z"

	assert.Equal(t, "v", doc.Components["a"].Data["nested"].(map[string]any)["k"])
	assert.Equal(t, "x", doc.Components["a"].Data["tags"].([]any)[0])
	assert.Equal(t, "a", doc.Sections[0].Components[0])
}
