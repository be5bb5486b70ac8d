package database

import (
	"fmt"
	"strings"
)

// Dialect names a supported storage backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseURL resolves DATABASE_URL into a dialect and a driver target.
// SQLite URLs follow the SQLAlchemy convention: sqlite:///relative/path.db,
// sqlite:////absolute/path.db and sqlite:///:memory:.
func ParseURL(raw string) (Dialect, string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", "", fmt.Errorf("database url must not be empty")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DialectPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", raw)
		}
		return DialectSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme: %q", raw)
	}
}
