package plugins

import "mediakit/internal/service"

// ─────────────────────────────────────────────────────────────
// Built-in component types
// ─────────────────────────────────────────────────────────────

// componentType is a service.ComponentType with static defaults.
type componentType struct {
	name     string
	defaults map[string]any
}

func (c componentType) Type() string             { return c.name }
func (c componentType) Defaults() map[string]any { return c.defaults }

// Builtins returns the component types every media kit understands.
func Builtins() []service.ComponentType {
	return []service.ComponentType{
		componentType{"hero", map[string]any{
			"name":     "",
			"title":    "",
			"tagline":  "",
			"imageUrl": "",
		}},
		componentType{"biography", map[string]any{
			"name":     "",
			"short":    "",
			"medium":   "",
			"long":     "",
			"imageUrl": "",
		}},
		componentType{"topics", map[string]any{
			"title":  "Speaking Topics",
			"topics": []any{},
		}},
		componentType{"contact", map[string]any{
			"email":   "",
			"phone":   "",
			"website": "",
		}},
		componentType{"social", map[string]any{
			"title": "Connect",
			"links": []any{},
		}},
		componentType{"questions", map[string]any{
			"title":     "Interview Questions",
			"questions": []any{},
		}},
		componentType{"offers", map[string]any{
			"title":  "Offers",
			"offers": []any{},
		}},
		componentType{"logo-grid", map[string]any{
			"title": "As Featured On",
			"logos": []any{},
		}},
		componentType{"video-intro", map[string]any{
			"title":    "",
			"videoUrl": "",
		}},
		componentType{"podcast-player", map[string]any{
			"title":    "Listen",
			"feedUrl":  "",
			"episodes": []any{},
		}},
		componentType{"booking-calendar", map[string]any{
			"title":      "Book a Call",
			"bookingUrl": "",
		}},
		componentType{"interviews", map[string]any{
			"title":      "Past Interviews",
			"interviews": []any{},
		}},
	}
}

// RegisterBuiltins adds every built-in type to r.
func RegisterBuiltins(r *service.ComponentRegistry) {
	for _, t := range Builtins() {
		r.Register(t)
	}
}
