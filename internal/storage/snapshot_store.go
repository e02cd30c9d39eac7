package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediakit/internal/domain"
)

// SnapshotStore keeps labelled copies of kit documents in SQL.
type SnapshotStore struct {
	db *DB
}

func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	body, err := json.Marshal(snap.Document)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	_, err = s.db.exec(ctx,
		`INSERT INTO kit_snapshots (id, kit_id, label, document_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.KitID, snap.Label, string(body), snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	var (
		snap    domain.Snapshot
		body    string
		created int64
	)
	err := s.db.queryRow(ctx,
		`SELECT id, kit_id, label, document_json, created_at FROM kit_snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.KitID, &snap.Label, &body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	doc, _, err := domain.DecodeDocument([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	snap.Document = doc
	snap.CreatedAt = fromNanos(created)
	return &snap, nil
}

func (s *SnapshotStore) ListSnapshots(ctx context.Context, kitID string) ([]domain.Snapshot, error) {
	rows, err := s.db.query(ctx,
		`SELECT id, kit_id, label, created_at FROM kit_snapshots
		 WHERE kit_id = ? ORDER BY created_at DESC, id DESC`, kitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []domain.Snapshot{}
	for rows.Next() {
		var (
			snap    domain.Snapshot
			created int64
		)
		if err := rows.Scan(&snap.ID, &snap.KitID, &snap.Label, &created); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.CreatedAt = fromNanos(created)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots of a kit.
func (s *SnapshotStore) PruneSnapshots(ctx context.Context, kitID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	// collect first, then delete: sqlite runs on a single connection
	ids, err := s.snapshotIDs(ctx, kitID)
	if err != nil {
		return err
	}
	if len(ids) <= keep {
		return nil
	}
	for _, id := range ids[keep:] {
		if _, err := s.db.exec(ctx, `DELETE FROM kit_snapshots WHERE id = ?`, id); err != nil {
			return fmt.Errorf("prune snapshot %s: %w", id, err)
		}
	}
	return nil
}

func (s *SnapshotStore) DeleteSnapshots(ctx context.Context, kitID string) error {
	if _, err := s.db.exec(ctx, `DELETE FROM kit_snapshots WHERE kit_id = ?`, kitID); err != nil {
		return fmt.Errorf("delete snapshots of %s: %w", kitID, err)
	}
	return nil
}

// snapshotIDs returns the kit's snapshot IDs newest first.
func (s *SnapshotStore) snapshotIDs(ctx context.Context, kitID string) ([]string, error) {
	rows, err := s.db.query(ctx,
		`SELECT id FROM kit_snapshots WHERE kit_id = ? ORDER BY created_at DESC, id DESC`, kitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshot ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
