package storage

import (
	"context"
	"fmt"

	"mediakit/internal/config"
	"mediakit/internal/domain"
)

// Backend bundles the stores of one configured database.
type Backend struct {
	Kits      domain.KitStore
	Snapshots domain.SnapshotStore
	close     func() error
}

// Open connects to the database named by cfg.
func Open(ctx context.Context, cfg config.Storage) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		m, err := OpenMongo(ctx, cfg.DSN, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &Backend{Kits: m, Snapshots: m, close: m.Close}, nil
	case config.DriverSQLite, config.DriverMySQL, config.DriverPostgres:
		db, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLBackend(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// NewSQLBackend wraps an open SQL database.
func NewSQLBackend(db *DB) *Backend {
	return &Backend{
		Kits:      NewKitStore(db),
		Snapshots: NewSnapshotStore(db),
		close:     db.Close,
	}
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}
