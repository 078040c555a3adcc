package store

import (
	"context"
	"database/sql"
	"fmt"

	"todolist/internal/logging"
)

// SchemaVersion is stamped into PRAGMA user_version when the tasks table is
// created. It is a static marker; nothing reads it back to decide on upgrades.
const SchemaVersion = 1

const tasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL
);
`

// initialize creates the tasks table.
func (s *TaskStore) initialize(ctx context.Context) error {
	existed, err := tableExists(ctx, s.db, "tasks")
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, tasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}

	if !existed {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		logging.Store("Created tasks table (schema v%d)", SchemaVersion)
	} else {
		logging.StoreDebug("Tasks table already present")
	}
	return nil
}

// schemaVersion reads PRAGMA user_version.
func (s *TaskStore) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
