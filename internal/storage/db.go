package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialects understood by OpenSQL. The names match database/sql driver names.
const (
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// DB wraps a database/sql connection together with its dialect.
type DB struct {
	conn    *sql.DB
	dialect string
}

// OpenSQL opens (or creates) the database and runs migrations. For sqlite the
// dsn is a file path.
func OpenSQL(ctx context.Context, dialect, dsn string) (*DB, error) {
	var err error
	switch dialect {
	case DialectSQLite:
		dsn, err = sqliteDSN(dsn)
	case DialectMySQL:
		dsn = mysqlDSN(dsn)
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer at a time, otherwise SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create db directory: %w", err)
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
}

func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true&charset=utf8mb4"
	}
	return dsn + "?parseTime=true&charset=utf8mb4"
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Dialect() string {
	return db.dialect
}

// rebind rewrites ? placeholders to $1, $2... for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.rebind(query), args...)
}

func (db *DB) migrate(ctx context.Context) error {
	body := "TEXT"
	indexIfNotExists := "IF NOT EXISTS "
	if db.dialect == DialectMySQL {
		body = "LONGTEXT"
		indexIfNotExists = ""
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS media_kits (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			document_json ` + body + ` NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kit_snapshots (
			id VARCHAR(64) PRIMARY KEY,
			kit_id VARCHAR(64) NOT NULL,
			label VARCHAR(255) NOT NULL,
			document_json ` + body + ` NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX ` + indexIfNotExists + `idx_kit_snapshots_kit ON kit_snapshots(kit_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			// mysql has no CREATE INDEX IF NOT EXISTS
			if strings.HasPrefix(m, "CREATE INDEX") && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
