package storage

import "testing"

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	got := pg.rebind(`SELECT id FROM t WHERE a = ? AND b = ?`)
	if want := `SELECT id FROM t WHERE a = $1 AND b = $2`; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &DB{dialect: DialectSQLite}
	if got := lite.rebind(`a = ?`); got != `a = ?` {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	tests := map[string]string{
		"u:p@tcp(h:3306)/db":                "u:p@tcp(h:3306)/db?parseTime=true&charset=utf8mb4",
		"u:p@tcp(h:3306)/db?tls=true":       "u:p@tcp(h:3306)/db?tls=true&parseTime=true&charset=utf8mb4",
		"u:p@tcp(h:3306)/db?parseTime=true": "u:p@tcp(h:3306)/db?parseTime=true",
	}
	for in, want := range tests {
		if got := mysqlDSN(in); got != want {
			t.Errorf("mysqlDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
