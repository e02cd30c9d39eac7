package state

import (
	"maps"

	"go.uber.org/zap"

	"mediakit/internal/domain"
)

// Next hands an action to the rest of the chain.
type Next func(Action)

// Middleware sees every action before the reducer. It may pass the action
// on unchanged, pass a modified action, or drop it by not calling next.
type Middleware func(a Action, next Next)

// Chain wraps final with mws; the first middleware runs first.
func Chain(final Next, mws ...Middleware) Next {
	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		if mw == nil {
			continue
		}
		next = func(a Action) { mw(a, inner) }
	}
	return next
}

// Logging logs every action at debug level.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(a Action, next Next) {
		logger.Debug("Dispatch", zap.String("action", string(a.Type())))
		next(a)
	}
}

// Validation drops actions that target an item without naming it.
func Validation(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(a Action, next Next) {
		if field, ok := missingID(a); ok {
			logger.Warn("Action dropped: missing id",
				zap.String("action", string(a.Type())),
				zap.String("field", field))
			return
		}
		next(a)
	}
}

func missingID(a Action) (string, bool) {
	var id, field string
	switch a := a.(type) {
	case UpdateComponent:
		id, field = a.ID, "id"
	case RemoveComponent:
		id, field = a.ID, "id"
	case MoveComponent:
		id, field = a.ID, "id"
	case AssignComponent:
		id, field = a.ID, "id"
	case DuplicateComponent:
		id, field = a.ID, "id"
	case UpdateSection:
		id, field = a.ID, "section_id"
	case RemoveSection:
		id, field = a.ID, "section_id"
	case MoveSection:
		id, field = a.ID, "section_id"
	default:
		return "", false
	}
	return field, id == ""
}

// DefaultsProvider returns the default data for a component type.
type DefaultsProvider interface {
	Defaults(componentType string) (map[string]any, bool)
}

// Defaults fills fields missing from new components with the defaults of
// their type. Fields the caller set are kept.
func Defaults(provider DefaultsProvider, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(a Action, next Next) {
		add, ok := a.(AddComponent)
		if !ok || provider == nil {
			next(a)
			return
		}
		defaults, known := provider.Defaults(add.Component.Type)
		if !known {
			logger.Debug("No defaults for component type", zap.String("type", add.Component.Type))
			next(a)
			return
		}
		data := make(map[string]any, len(defaults)+len(add.Component.Data))
		for k, v := range defaults {
			data[k] = domain.CloneValue(v)
		}
		maps.Copy(data, add.Component.Data)
		add.Component.Data = data
		next(add)
	}
}
