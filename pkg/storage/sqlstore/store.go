// Package sqlstore persists registry snapshots in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/storage"
)

var tracer = otel.Tracer("datahub/sqlstore")

// Config holds database connection configuration
type Config struct {
	Dialect     Dialect
	DSN         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// Store implements storage.SpecStore on database/sql
type Store struct {
	db      *sql.DB
	dialect Dialect
	metrics *observability.Metrics
}

// Open connects to the database, verifies the connection and creates the
// tables.
func Open(ctx context.Context, cfg Config, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open(cfg.Dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Dialect, err)
	}

	if cfg.Dialect == SQLite {
		// a private in-memory database exists per connection
		db.SetMaxOpenConns(1)
	} else if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Dialect, err)
	}

	s := New(db, cfg.Dialect, metrics)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database
func New(db *sql.DB, dialect Dialect, metrics *observability.Metrics) *Store {
	return &Store{db: db, dialect: dialect, metrics: metrics}
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// SaveSnapshot writes the snapshot, its aspects and their fields in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *storage.SnapshotRecord) (err error) {
	ctx, span := s.startSpan(ctx, "save_snapshot")
	start := time.Now()
	defer func() { s.finish(span, "save_snapshot", start, err) }()

	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	span.SetAttributes(
		attribute.String("snapshot.id", snapshot.ID),
		attribute.Int("snapshot.aspects", len(snapshot.Aspects)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	warnings, err := json.Marshal(nonNil(snapshot.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO registry_snapshots (id, digest, loaded_at, warnings) VALUES (?, ?, ?, ?)`),
		snapshot.ID, snapshot.Digest, snapshot.LoadedAt.UTC(), string(warnings),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", snapshot.ID, err)
	}

	insertAspect := s.dialect.rebind(
		`INSERT INTO registry_aspects (snapshot_id, name, schema_name, source, warnings, position) VALUES (?, ?, ?, ?, ?, ?)`)
	insertField := s.dialect.rebind(
		`INSERT INTO searchable_fields (snapshot_id, aspect_name, position, path, field_name, schema_type, annotation) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	for i, aspect := range snapshot.Aspects {
		aspectWarnings, mErr := json.Marshal(nonNil(aspect.Warnings))
		if mErr != nil {
			err = fmt.Errorf("failed to marshal warnings of %s: %w", aspect.Name, mErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, insertAspect,
			snapshot.ID, aspect.Name, aspect.SchemaName, aspect.Source, string(aspectWarnings), i,
		); err != nil {
			return fmt.Errorf("failed to insert aspect %s: %w", aspect.Name, err)
		}

		for j, field := range aspect.Fields {
			ann, mErr := json.Marshal(field.Annotation)
			if mErr != nil {
				err = fmt.Errorf("failed to marshal annotation at %s: %w", field.Path, mErr)
				return err
			}
			if _, err = tx.ExecContext(ctx, insertField,
				snapshot.ID, aspect.Name, j, field.Path, field.FieldName, field.SchemaType, string(ann),
			); err != nil {
				return fmt.Errorf("failed to insert field %s of %s: %w", field.Path, aspect.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// LoadLatest returns the most recently loaded snapshot
func (s *Store) LoadLatest(ctx context.Context) (snapshot *storage.SnapshotRecord, err error) {
	ctx, span := s.startSpan(ctx, "load_latest")
	start := time.Now()
	defer func() { s.finish(span, "load_latest", start, err) }()

	var (
		rec      storage.SnapshotRecord
		warnings string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, digest, loaded_at, warnings FROM registry_snapshots ORDER BY loaded_at DESC LIMIT 1`,
	).Scan(&rec.ID, &rec.Digest, &rec.LoadedAt, &warnings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	if err = json.Unmarshal([]byte(warnings), &rec.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings of snapshot %s: %w", rec.ID, err)
	}

	if rec.Aspects, err = s.loadAspects(ctx, rec.ID); err != nil {
		return nil, err
	}
	fields, err := s.queryFields(ctx,
		`SELECT aspect_name, path, field_name, schema_type, annotation FROM searchable_fields WHERE snapshot_id = ? ORDER BY aspect_name, position`,
		rec.ID,
	)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rec.Aspects))
	for i, a := range rec.Aspects {
		index[a.Name] = i
	}
	for _, f := range fields {
		if i, ok := index[f.Aspect]; ok {
			rec.Aspects[i].Fields = append(rec.Aspects[i].Fields, f)
		}
	}

	span.SetAttributes(attribute.String("snapshot.id", rec.ID))
	return &rec, nil
}

func (s *Store) loadAspects(ctx context.Context, snapshotID string) ([]storage.AspectRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT name, schema_name, source, warnings FROM registry_aspects WHERE snapshot_id = ? ORDER BY position`),
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query aspects of snapshot %s: %w", snapshotID, err)
	}
	defer rows.Close()

	var aspects []storage.AspectRecord
	for rows.Next() {
		var (
			a        storage.AspectRecord
			warnings string
		)
		if err := rows.Scan(&a.Name, &a.SchemaName, &a.Source, &warnings); err != nil {
			return nil, fmt.Errorf("failed to scan aspect: %w", err)
		}
		if err := json.Unmarshal([]byte(warnings), &a.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings of aspect %s: %w", a.Name, err)
		}
		a.Fields = []storage.FieldRecord{}
		aspects = append(aspects, a)
	}
	return aspects, rows.Err()
}

// SearchableFieldsByName returns the fields of the latest snapshot indexed
// under any of names
func (s *Store) SearchableFieldsByName(ctx context.Context, names []string) (fields []storage.FieldRecord, err error) {
	ctx, span := s.startSpan(ctx, "fields_by_name")
	start := time.Now()
	defer func() { s.finish(span, "fields_by_name", start, err) }()

	if len(names) == 0 {
		return nil, nil
	}

	clause, args := s.dialect.inClause("f.field_name", names)
	query := `SELECT f.aspect_name, f.path, f.field_name, f.schema_type, f.annotation
		FROM searchable_fields f
		WHERE f.snapshot_id = (SELECT id FROM registry_snapshots ORDER BY loaded_at DESC LIMIT 1)
		AND ` + clause + `
		ORDER BY f.aspect_name, f.position`
	return s.queryFields(ctx, query, args...)
}

func (s *Store) queryFields(ctx context.Context, query string, args ...any) ([]storage.FieldRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query searchable fields: %w", err)
	}
	defer rows.Close()

	var fields []storage.FieldRecord
	for rows.Next() {
		var (
			f   storage.FieldRecord
			ann string
		)
		if err := rows.Scan(&f.Aspect, &f.Path, &f.FieldName, &f.SchemaType, &ann); err != nil {
			return nil, fmt.Errorf("failed to scan searchable field: %w", err)
		}
		if err := json.Unmarshal([]byte(ann), &f.Annotation); err != nil {
			return nil, fmt.Errorf("failed to decode annotation at %s: %w", f.Path, err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlstore."+op, trace.WithAttributes(
		attribute.String("db.system", s.dialect.String()),
	))
}

func (s *Store) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.ObserveStoreOperation(op, start, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
