package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestConnect_Validation(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}

	if _, err := Connect(context.Background(), "invalid-dsn"); err == nil {
		t.Fatalf("expected error for invalid dsn")
	}
}

func TestParseURL(t *testing.T) {
	tests := map[string]struct {
		url     string
		dialect Dialect
		target  string
		wantErr bool
	}{
		"postgres":        {url: "postgres://u:p@localhost/db", dialect: DialectPostgres, target: "postgres://u:p@localhost/db"},
		"postgresql":      {url: "postgresql://localhost/db", dialect: DialectPostgres, target: "postgresql://localhost/db"},
		"sqlite relative": {url: "sqlite:///data/prospeccao.db", dialect: DialectSQLite, target: "data/prospeccao.db"},
		"sqlite absolute": {url: "sqlite:////var/lib/prospeccao.db", dialect: DialectSQLite, target: "/var/lib/prospeccao.db"},
		"sqlite memory":   {url: "sqlite:///:memory:", dialect: DialectSQLite, target: MemoryPath},
		"empty":           {url: "", wantErr: true},
		"sqlite no path":  {url: "sqlite:///", wantErr: true},
		"unsupported":     {url: "mysql://localhost/db", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dialect, target, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dialect != tt.dialect || target != tt.target {
				t.Fatalf("got (%s, %s), want (%s, %s)", dialect, target, tt.dialect, tt.target)
			}
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty path")
	}

	path := filepath.Join(t.TempDir(), "nested", "prospeccao.db")
	db, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"businesses", "message_logs", "campaign_sessions"} {
		var name string
		row := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err := row.Scan(&name); err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}

	// applying the schema twice must be harmless
	db2, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	db2.Close()
}
