package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recut/internal/config"
)

// Store manages the job index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the job index at its configured location, creating parent
// directories on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}
	return OpenPath(cfg.RegistryPath())
}

// OpenPath opens the index at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	store := &Store{db: db, path: dbPath}
	if err := store.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// configure applies connection pragmas: WAL so CLI and daemon handles can
// read concurrently, foreign keys on, and a 5s busy timeout.
func (s *Store) configure() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SQLite reports busy (code 5) when another handle holds the write lock.
// Writes wait out this schedule before giving up; reads never need it
// because WAL lets them proceed alongside a writer.
var busyBackoff = []time.Duration{
	10 * time.Millisecond,
	20 * time.Millisecond,
	40 * time.Millisecond,
	80 * time.Millisecond,
}

const sqliteBusyCode = 5

func sqliteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code() == sqliteBusyCode {
		return true
	}
	text := err.Error()
	return strings.Contains(text, "SQLITE_BUSY") || strings.Contains(text, "database is locked")
}

// exec runs a write statement, retrying through short busy windows caused by
// the other process's handle.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for attempt := 0; ; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil || !sqliteBusy(err) || attempt >= len(busyBackoff) {
			return res, err
		}
		select {
		case <-time.After(busyBackoff[attempt]):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
