package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediakit/internal/plugins"
	"mediakit/internal/service"
)

func TestRegisterBuiltins(t *testing.T) {
	r := service.NewComponentRegistry()
	plugins.RegisterBuiltins(r)

	assert.Equal(t, []string{
		"biography", "booking-calendar", "contact", "hero", "interviews", "logo-grid",
		"offers", "podcast-player", "questions", "social", "topics", "video-intro",
	}, r.Types())

	d, ok := r.Defaults("topics")
	require.True(t, ok)
	assert.Equal(t, "Speaking Topics", d["title"])

	// callers get their own copy
	d["title"] = "changed"
	again, _ := r.Defaults("topics")
	assert.Equal(t, "Speaking Topics", again["title"])

	_, ok = r.Defaults("carousel")
	assert.False(t, ok)
}

func TestRegisterBuiltins_Twice(t *testing.T) {
	r := service.NewComponentRegistry()
	plugins.RegisterBuiltins(r)
	assert.Panics(t, func() { plugins.RegisterBuiltins(r) })
}
