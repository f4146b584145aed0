package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current index schema version. The index holds derived
// data only, so a layout change never migrates: the old tables drop and the
// index repopulates from job documents on access or a full rescan.
const schemaVersion = 1

func (s *Store) initSchema(ctx context.Context) error {
	version, err := s.storedVersion(ctx)
	if err != nil {
		return err
	}
	if version == schemaVersion {
		return nil
	}
	return s.rebuild(ctx)
}

// storedVersion reports the schema version on disk, or 0 for a fresh or
// unstamped database.
func (s *Store) storedVersion(ctx context.Context) (int, error) {
	stamped, err := s.tableExists(ctx, "schema_version")
	if err != nil {
		return 0, err
	}
	if !stamped {
		return 0, nil
	}
	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect sqlite_master: %w", err)
	}
	return count > 0, nil
}

// rebuild drops whatever index tables exist and recreates the current layout,
// all in one transaction so a crash cannot leave the index half-built.
func (s *Store) rebuild(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS jobs",
		"DROP TABLE IF EXISTS schema_version",
		schemaSQL,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild index schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema rebuild: %w", err)
	}
	return nil
}
