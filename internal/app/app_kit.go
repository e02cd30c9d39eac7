package app

import (
	"context"
	"encoding/json"
	"fmt"

	"mediakit/internal/domain"
	"mediakit/internal/state"
)

// ============================================================
// Kits
// ============================================================

func (a *App) ListKits(ctx context.Context) ([]domain.KitSummary, error) {
	return a.kits.List(ctx)
}

// CreateKit creates an empty kit and writes it straight away.
func (a *App) CreateKit(ctx context.Context, name string) (domain.KitSummary, error) {
	kit, err := a.kits.Create(ctx, name)
	if err != nil {
		return domain.KitSummary{}, err
	}
	if err := a.kits.Save(ctx, kit.ID); err != nil {
		return domain.KitSummary{}, err
	}
	return kit, nil
}

func (a *App) ShowKit(ctx context.Context, id string) (domain.Document, error) {
	if _, err := a.kits.Open(ctx, id); err != nil {
		return domain.Document{}, err
	}
	return a.kits.State(id)
}

func (a *App) DeleteKit(ctx context.Context, id string) error {
	return a.kits.Delete(ctx, id)
}

// ApplyActions decodes body as a JSON array of {type, payload} actions and
// dispatches them as one batch, then saves the kit. Actions that fail to
// decode are reported and skipped.
func (a *App) ApplyActions(ctx context.Context, id string, body []byte) (ApplyResult, error) {
	var actions []state.RawAction
	if err := json.Unmarshal(body, &actions); err != nil {
		return ApplyResult{}, fmt.Errorf("decode actions: %w", err)
	}
	if _, err := a.kits.Open(ctx, id); err != nil {
		return ApplyResult{}, err
	}

	res := ApplyResult{KitID: id}
	err := a.kits.Batch(id, func(s *state.Store) {
		for i, raw := range actions {
			if err := s.DispatchRaw(raw); err != nil {
				res.Rejected = append(res.Rejected, fmt.Sprintf("#%d %s: %v", i, raw.Type, err))
				continue
			}
			res.Applied++
		}
	})
	if err != nil {
		return ApplyResult{}, err
	}
	if err := a.kits.Save(ctx, id); err != nil {
		return ApplyResult{}, err
	}
	if res.Version, err = a.kits.Version(id); err != nil {
		return ApplyResult{}, err
	}
	return res, nil
}

// ImportKit replaces a kit's document with a JSON document, creating the
// kit if needed, and saves it.
func (a *App) ImportKit(ctx context.Context, id string, body []byte) error {
	if err := a.kits.Import(ctx, id, body); err != nil {
		return err
	}
	return a.kits.Save(ctx, id)
}

func (a *App) Orphans(ctx context.Context, id string) ([]string, error) {
	if _, err := a.kits.Open(ctx, id); err != nil {
		return nil, err
	}
	return a.kits.Orphans(id)
}
