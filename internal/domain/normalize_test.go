package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediakit/internal/domain"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestNormalize_RepairsComponents(t *testing.T) {
	doc := domain.Document{
		Components: map[string]domain.Component{
			"a": {ID: "wrong", Type: ""},
			"":  {Type: "hero"},
		},
	}

	out, notes := domain.Normalize(doc, sequentialIDs("gen"))

	require.Contains(t, out.Components, "a")
	require.Contains(t, out.Components, "gen-1")
	assert.NotContains(t, out.Components, "")
	assert.Equal(t, "a", out.Components["a"].ID)
	assert.Equal(t, domain.UnknownComponentType, out.Components["a"].Type)
	assert.NotNil(t, out.Components["a"].Data)
	assert.Equal(t, "gen-1", out.Components["gen-1"].ID)
	assert.Len(t, notes, 3)
}

func TestNormalize_DuplicatePlacementKeepsFirst(t *testing.T) {
	doc := domain.NewDocument(time.Time{})
	doc.Components["x"] = domain.Component{ID: "x", Type: "hero", Data: map[string]any{}}
	doc.Sections = []domain.Section{
		{ID: "s1", Type: domain.SectionFullWidth, Components: []string{"x"}},
		{ID: "s2", Type: domain.SectionTwoColumn, Columns: map[int][]string{2: {"x"}}},
	}

	out, _ := domain.Normalize(doc, domain.NewID)

	assert.Equal(t, []string{"x"}, out.Sections[0].Components)
	assert.Equal(t, map[int][]string{1: {}, 2: {}}, out.Sections[1].Columns)
	assert.Equal(t, "s1", out.Components["x"].SectionID)
	assert.Equal(t, 0, out.Components["x"].Column)
}

func TestNormalize_SectionIDsUniqueAndBackReferences(t *testing.T) {
	doc := domain.NewDocument(time.Time{})
	doc.Components["a"] = domain.Component{ID: "a", Type: "hero", SectionID: "gone", Column: 3}
	doc.Components["b"] = domain.Component{ID: "b", Type: "hero"}
	doc.Sections = []domain.Section{
		{ID: "s", Type: domain.SectionThreeColumn, Columns: map[int][]string{3: {"b"}}},
		{ID: "s", Type: domain.SectionFullWidth},
		{Type: "bogus"},
	}

	out, _ := domain.Normalize(doc, sequentialIDs("sec"))

	require.Len(t, out.Sections, 3)
	assert.Equal(t, "s", out.Sections[0].ID)
	assert.Equal(t, "sec-1", out.Sections[1].ID)
	assert.Equal(t, "sec-2", out.Sections[2].ID)
	assert.Equal(t, domain.SectionFullWidth, out.Sections[2].Type)

	assert.Equal(t, "", out.Components["a"].SectionID)
	assert.Equal(t, 0, out.Components["a"].Column)
	assert.Equal(t, "s", out.Components["b"].SectionID)
	assert.Equal(t, 3, out.Components["b"].Column)
	assert.Equal(t, []string{"a"}, out.Orphans())
}

func TestNormalize_OutOfRangeColumnsClamp(t *testing.T) {
	doc := domain.NewDocument(time.Time{})
	for _, id := range []string{"a", "b", "c"} {
		doc.Components[id] = domain.Component{ID: id, Type: "hero"}
	}
	doc.Sections = []domain.Section{{
		ID:         "s",
		Type:       domain.SectionTwoColumn,
		Components: []string{"c"},
		Columns:    map[int][]string{0: {"a"}, 5: {"b"}},
	}}

	out, _ := domain.Normalize(doc, domain.NewID)

	assert.Equal(t, map[int][]string{1: {"a", "c"}, 2: {"b"}}, out.Sections[0].Columns)
	assert.Empty(t, out.Sections[0].Components)
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	doc := domain.NewDocument(time.Time{})
	doc.Components["a"] = domain.Component{ID: "a", Type: "hero"}
	doc.Layout = []string{"a", "missing"}

	_, _ = domain.Normalize(doc, domain.NewID)

	assert.Equal(t, []string{"a", "missing"}, doc.Layout)
	assert.Nil(t, doc.Components["a"].Data)
}

func TestNormalize_NeverDeletesComponents(t *testing.T) {
	doc := domain.NewDocument(time.Time{})
	doc.Components["lonely"] = domain.Component{ID: "lonely", Type: "hero"}

	out, _ := domain.Normalize(doc, domain.NewID)

	assert.Contains(t, out.Components, "lonely")
	assert.Equal(t, []string{"lonely"}, out.Orphans())
}
