// Package sqlite provides a SQLite-backed replay store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/storage"
	"github.com/c360studio/semrec/storage/sqlite/migrations"
	"github.com/c360studio/semrec/temporal"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists recorded fact groups in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// Open opens a SQLite replay store and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applyMigrations(sqlDB *sql.DB) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append stores one fact group and records its instant.
func (s *Store) Append(ctx context.Context, g fact.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ErrNotConfigured
	}

	instant := uuid.Nil
	if g.Instant != "" {
		id, err := storage.InstantID(g.Instant)
		if err != nil {
			return err
		}
		instant = id
	}
	body, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal fact group: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if instant != uuid.Nil {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO instants (session, instant_id, at_nanos) VALUES (?, ?, ?)`,
			g.Session, instant.String(), toNanos(g.At))
		if err != nil && !isUniqueViolation(err) {
			return fmt.Errorf("record instant: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO fact_groups (session, instant_id, subject, at_nanos, body) VALUES (?, ?, ?, ?, ?)`,
		g.Session, instant.String(), g.Subject, toNanos(g.At), string(body)); err != nil {
		return fmt.Errorf("insert fact group: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Instants returns the recorded instants of a session in ascending order.
func (s *Store) Instants(ctx context.Context, session string) ([]temporal.Instant, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT instant_id, at_nanos FROM instants WHERE session = ? ORDER BY at_nanos`, session)
	if err != nil {
		return nil, fmt.Errorf("query instants: %w", err)
	}
	defer rows.Close()

	var out []temporal.Instant
	for rows.Next() {
		var (
			rawID string
			at    int64
		)
		if err := rows.Scan(&rawID, &at); err != nil {
			return nil, fmt.Errorf("scan instant: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse instant id: %w", err)
		}
		out = append(out, temporal.Instant{ID: id, Timestamp: fromNanos(at)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instants: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// Sessions returns the recorded sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session FROM instants GROUP BY session ORDER BY MAX(at_nanos) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// FactsAt returns the groups recorded at an instant, in append order.
func (s *Store) FactsAt(ctx context.Context, session string, instant temporal.Instant) ([]fact.Group, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	return s.groups(ctx,
		`SELECT body FROM fact_groups WHERE session = ? AND instant_id = ? ORDER BY seq`,
		session, instant.ID.String())
}

// SessionFacts returns every group of a session in append order.
func (s *Store) SessionFacts(ctx context.Context, session string) ([]fact.Group, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	return s.groups(ctx, `SELECT body FROM fact_groups WHERE session = ? ORDER BY seq`, session)
}

func (s *Store) groups(ctx context.Context, query string, args ...any) ([]fact.Group, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fact groups: %w", err)
	}
	defer rows.Close()

	var out []fact.Group
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan fact group: %w", err)
		}
		g, err := fact.UnmarshalGroup([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact groups: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
