package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects the SQL flavour of a Store
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite3"
	default:
		return "unknown"
	}
}

// ParseDialect maps a store type name to a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported store type %q", s)
	}
}

// DriverName returns the database/sql driver name
func (d Dialect) DriverName() string {
	return d.String()
}

// rebind rewrites ? placeholders to $n for Postgres
func (d Dialect) rebind(query string) string {
	if d != Postgres {
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

// inClause returns a membership test on column and its arguments
func (d Dialect) inClause(column string, values []string) (string, []any) {
	if d == Postgres {
		return column + " = ANY(?)", []any{pq.Array(values)}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + placeholders + ")", args
}

func (d Dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS registry_snapshots (
			id VARCHAR(64) PRIMARY KEY,
			digest VARCHAR(128) NOT NULL,
			loaded_at TIMESTAMP NOT NULL,
			warnings TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_registry_snapshots_loaded_at ON registry_snapshots(loaded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS registry_aspects (
			snapshot_id VARCHAR(64) NOT NULL REFERENCES registry_snapshots(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			schema_name VARCHAR(512) NOT NULL,
			source TEXT NOT NULL,
			warnings TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS searchable_fields (
			snapshot_id VARCHAR(64) NOT NULL REFERENCES registry_snapshots(id) ON DELETE CASCADE,
			aspect_name VARCHAR(255) NOT NULL,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			field_name VARCHAR(255) NOT NULL,
			schema_type VARCHAR(32) NOT NULL,
			annotation TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, aspect_name, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searchable_fields_field_name ON searchable_fields(field_name)`,
	}
}
