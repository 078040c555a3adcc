package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"todolist/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// DatabaseFile is the default file name of the task database.
const DatabaseFile = "tasks.db"

// Task is a persisted to-do item. ID is assigned by the store.
type Task struct {
	ID          int64
	Title       string
	Description string
}

// Options configures Open.
type Options struct {
	// Path of the database file, or ":memory:".
	Path string

	// Driver is "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
	// Empty means "sqlite3".
	Driver string

	// BusyTimeout for SQLite lock waits. Zero means 5s.
	BusyTimeout time.Duration
}

// TaskStore persists tasks in a single SQLite table.
type TaskStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	driver string
	closed bool
}

// Open initializes the SQLite database described by opts.
func Open(opts Options) (*TaskStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	driver := opts.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	if driver != "sqlite3" && driver != "sqlite" {
		return nil, fmt.Errorf("%w: unknown driver %q", ErrStorageInit, driver)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: database path required", ErrStorageInit)
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	logging.Store("Opening task store at %s (driver=%s)", opts.Path, driver)

	if opts.Path != ":memory:" {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("%w: create directory: %w", ErrStorageInit, err)
		}
	}

	db, err := sql.Open(driver, opts.Path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", opts.Path, err)
		return nil, fmt.Errorf("%w: open database: %w", ErrStorageInit, err)
	}
	// One connection: SQLite serializes writers, and :memory: is per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		db.Close()
		logging.StoreError("Failed to reach database at %s: %v", opts.Path, err)
		return nil, fmt.Errorf("%w: open database: %w", ErrStorageInit, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &TaskStore{db: db, dbPath: opts.Path, driver: driver}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		logging.StoreError("Failed to initialize schema: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	logging.Store("Task store ready")
	return s, nil
}

// Insert appends a task and returns its new id.
func (s *TaskStore) Insert(ctx context.Context, title, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description) VALUES (?, ?)`, title, description)
	if err != nil {
		logging.StoreError("Insert failed: %v", err)
		return 0, fmt.Errorf("%w: insert task: %w", ErrStorageWrite, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read new task id: %w", ErrStorageWrite, err)
	}

	logging.Get(logging.CategoryStore).StructuredLog("debug", "task inserted", map[string]interface{}{
		"id":    id,
		"title": title,
	})
	return id, nil
}

// ListAll returns every task, oldest first. The order follows the id and is
// not part of the contract.
func (s *TaskStore) ListAll(ctx context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description FROM tasks ORDER BY id`)
	if err != nil {
		logging.StoreError("ListAll query failed: %v", err)
		return nil, fmt.Errorf("%w: query tasks: %w", ErrStorageRead, err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description); err != nil {
			return nil, fmt.Errorf("%w: scan task: %w", ErrStorageRead, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tasks: %w", ErrStorageRead, err)
	}

	logging.StoreDebug("ListAll returned %d tasks", len(tasks))
	return tasks, nil
}

// Count returns the number of stored tasks.
func (s *TaskStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count tasks: %w", ErrStorageRead, err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *TaskStore) Path() string {
	return s.dbPath
}

// Driver returns the database/sql driver name in use.
func (s *TaskStore) Driver() string {
	return s.driver
}

// Close closes the database connection. Further calls return ErrClosed.
func (s *TaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	logging.Store("Closing task store at %s", s.dbPath)
	return s.db.Close()
}
