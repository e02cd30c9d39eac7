package mcpserver

import (
	"encoding/json"
	"fmt"
)

// objectArg reads an argument that may arrive either as a JSON object or as
// a string holding one.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, fmt.Errorf("%s: invalid JSON object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: expected an object, got %T", key, v)
	}
}

// rawArg re-encodes an argument so it can be decoded as an action payload.
// Strings are taken to be JSON already.
func rawArg(args map[string]any, key string) (json.RawMessage, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if !json.Valid([]byte(s)) {
			// a bare string payload, e.g. an ID
			b, _ := json.Marshal(s)
			return b, nil
		}
		return json.RawMessage(s), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func boolPtr(b bool) *bool { return &b }
