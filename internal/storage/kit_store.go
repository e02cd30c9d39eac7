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

// KitStore implements domain.KitStore over SQL.
type KitStore struct {
	db *DB
}

func NewKitStore(db *DB) *KitStore {
	return &KitStore{db: db}
}

// SaveKit inserts or replaces the kit. CreatedAt is kept from the stored row
// when there is one.
func (s *KitStore) SaveKit(ctx context.Context, k *domain.Kit) error {
	body, err := json.Marshal(k.Document)
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", k.ID, err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var created int64
	err = tx.QueryRowContext(ctx, s.db.rebind(`SELECT created_at FROM media_kits WHERE id = ?`), k.ID).Scan(&created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if k.CreatedAt.IsZero() {
			k.CreatedAt = time.Now()
		}
	case err != nil:
		return fmt.Errorf("lookup kit %s: %w", k.ID, err)
	default:
		k.CreatedAt = fromNanos(created)
		if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM media_kits WHERE id = ?`), k.ID); err != nil {
			return fmt.Errorf("replace kit %s: %w", k.ID, err)
		}
	}
	k.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, s.db.rebind(
		`INSERT INTO media_kits (id, name, document_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		k.ID, k.Name, string(body), k.CreatedAt.UnixNano(), k.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert kit %s: %w", k.ID, err)
	}
	return tx.Commit()
}

func (s *KitStore) GetKit(ctx context.Context, id string) (*domain.Kit, error) {
	var (
		k                domain.Kit
		body             string
		created, updated int64
	)
	err := s.db.queryRow(ctx,
		`SELECT id, name, document_json, created_at, updated_at FROM media_kits WHERE id = ?`, id,
	).Scan(&k.ID, &k.Name, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get kit %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get kit %s: %w", id, err)
	}
	doc, _, err := domain.DecodeDocument([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode kit %s: %w", id, err)
	}
	k.Document = doc
	k.CreatedAt = fromNanos(created)
	k.UpdatedAt = fromNanos(updated)
	return &k, nil
}

// ListKits returns every kit, most recently updated first.
func (s *KitStore) ListKits(ctx context.Context) ([]domain.KitSummary, error) {
	rows, err := s.db.query(ctx, `SELECT id, name, created_at, updated_at FROM media_kits ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	defer rows.Close()

	kits := []domain.KitSummary{}
	for rows.Next() {
		var (
			k                domain.KitSummary
			created, updated int64
		)
		if err := rows.Scan(&k.ID, &k.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan kit: %w", err)
		}
		k.CreatedAt = fromNanos(created)
		k.UpdatedAt = fromNanos(updated)
		kits = append(kits, k)
	}
	return kits, rows.Err()
}

func (s *KitStore) DeleteKit(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM media_kits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete kit %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete kit %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
