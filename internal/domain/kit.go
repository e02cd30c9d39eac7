package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a kit or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Kit is one persisted media kit page.
type Kit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// KitSummary is a kit without its document, used for listings.
type KitSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (k Kit) Summary() KitSummary {
	return KitSummary{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt, UpdatedAt: k.UpdatedAt}
}

// Snapshot is a labelled copy of a kit's document at a point in time.
type Snapshot struct {
	ID        string    `json:"id"`
	KitID     string    `json:"kitId"`
	Label     string    `json:"label"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"createdAt"`
}

type KitStore interface {
	SaveKit(ctx context.Context, k *Kit) error
	GetKit(ctx context.Context, id string) (*Kit, error)
	ListKits(ctx context.Context) ([]KitSummary, error)
	DeleteKit(ctx context.Context, id string) error
}

type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, s *Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	// ListSnapshots returns snapshots of a kit newest first, without documents.
	ListSnapshots(ctx context.Context, kitID string) ([]Snapshot, error)
	// PruneSnapshots keeps the newest keep snapshots of a kit.
	PruneSnapshots(ctx context.Context, kitID string, keep int) error
	DeleteSnapshots(ctx context.Context, kitID string) error
}
