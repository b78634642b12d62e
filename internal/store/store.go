// Package store persists profiles, mastery, history, audit records,
// evaluations, session checkpoints and model-call events in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// builder produces SQLite statements for every repository.
var builder = entsql.Dialect(dialect.SQLite)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the database handle and hands out repositories.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open connects to the SQLite database at dsn, applies pragmas and migrates
// the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx := context.Background()
	migrate, err := schema.NewMigrate(entsql.OpenDB(dialect.SQLite, db))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init migration: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Concurrent sessions serialize on a single connection.
	db.SetMaxOpenConns(1)

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ProfileRepo returns the profile and mastery repository.
func (s *Store) ProfileRepo() ProfileRepo {
	return &profileRepo{db: s.db}
}

// HistoryRepo returns the history event repository.
func (s *Store) HistoryRepo() HistoryRepo {
	return &historyRepo{db: s.db, seq: s.seq}
}

// AuditRepo returns the audit log repository.
func (s *Store) AuditRepo() AuditRepo {
	return &auditRepo{db: s.db, seq: s.seq}
}

// CycleRepo returns the repository that commits a tutoring cycle atomically.
func (s *Store) CycleRepo() CycleRepo {
	return &cycleRepo{db: s.db, seq: s.seq}
}

// CheckpointRepo returns the session checkpoint repository.
func (s *Store) CheckpointRepo() CheckpointRepo {
	return &checkpointRepo{db: s.db}
}

// EventRepo returns the model-call event repository.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// withPragmas appends the connection pragmas to dsn.
func withPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// DefaultDBPath resolves the database file path in priority order:
// 1. TUTOR_DB environment variable
// 2. $XDG_DATA_HOME/agentic-tutor/tutor.db
// 3. ~/.local/share/agentic-tutor/tutor.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TUTOR_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "agentic-tutor", "tutor.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
