package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"studio-go/internal/localstore/migrations"
	"studio-go/internal/studio"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the LocalStore interface using SQLite.
//
// Projects and queue items are stored as JSON documents in a `data` column,
// with the ordering timestamp mirrored into an indexed column. This keeps the
// schema stable while the document shapes evolve.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	clock  studio.Clock
	shared bool
}

// sharedHandle is a refcounted database connection. Every store opened on the
// same file path shares one *sql.DB, so concurrent stores in a single process
// see each other's writes immediately instead of fighting over file locks.
type sharedHandle struct {
	db   *sql.DB
	refs int
}

var (
	handlesMu sync.Mutex
	handles   = make(map[string]*sharedHandle)
)

// Open opens (creating if necessary) the store at path and migrates it to the
// latest schema. path can be a file path or ":memory:" for an in-memory store.
// In-memory stores are never shared; each Open gets a private database.
func Open(path string, clock studio.Clock) (*SQLiteStore, error) {
	if clock == nil {
		clock = studio.RealClock{}
	}

	if path == ":memory:" {
		db, err := OpenConnection(path)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return &SQLiteStore{db: db, path: path, clock: clock}, nil
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()

	h, ok := handles[path]
	if !ok {
		db, err := OpenConnection(path)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		h = &sharedHandle{db: db}
		handles[path] = h
	}
	h.refs++

	return &SQLiteStore{db: h.db, path: path, clock: clock, shared: true}, nil
}

// NewFromDB wraps an existing database connection.
// The caller is responsible for schema setup and for closing the connection.
func NewFromDB(db *sql.DB, clock studio.Clock) *SQLiteStore {
	if clock == nil {
		clock = studio.RealClock{}
	}
	return &SQLiteStore{db: db, path: "", clock: clock}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// This is exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for locks instead of failing immediately; shared handles make
	// contention rare but a second process can still race on the file.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Project operations

func (s *SQLiteStore) PutProject(ctx context.Context, project *studio.Project) (*studio.Project, error) {
	if project == nil || project.ID == "" {
		return nil, fmt.Errorf("project must have an id")
	}

	stored := studio.SanitizeProject(project)
	stored.LastUpdated = s.clock.Now().UnixMilli()

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding project: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, data, last_updated) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, last_updated = excluded.last_updated`,
		stored.ID, string(data), stored.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("storing project: %w", err)
	}

	return stored, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*studio.Project, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM projects WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding project: %w", err)
	}
	return decodeProject(data)
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*studio.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*studio.Project
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		project, err := decodeProject(data)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// Queue operations

func (s *SQLiteStore) PutQueueItem(ctx context.Context, item *studio.QueueItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("queue item must have an id")
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding queue item: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queue_items (id, data, added_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, added_at = excluded.added_at`,
		item.ID, string(data), item.AddedAt)
	if err != nil {
		return fmt.Errorf("storing queue item: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetQueueItem(ctx context.Context, id string) (*studio.QueueItem, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM queue_items WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding queue item: %w", err)
	}
	return decodeQueueItem(data)
}

func (s *SQLiteStore) ListQueueItems(ctx context.Context) ([]*studio.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM queue_items`)
	if err != nil {
		return nil, fmt.Errorf("listing queue items: %w", err)
	}
	defer rows.Close()

	var items []*studio.QueueItem
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning queue item: %w", err)
		}
		item, err := decodeQueueItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing queue items: %w", err)
	}
	return items, nil
}

// PatchQueueItem applies patch to the stored item inside a transaction so a
// concurrent patch can't lose fields. Returns ErrNotFound if no item exists.
func (s *SQLiteStore) PatchQueueItem(ctx context.Context, id string, patch studio.QueuePatch) (*studio.QueueItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM queue_items WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("queue item %s: %w", id, studio.ErrNotFound)
		}
		return nil, fmt.Errorf("finding queue item: %w", err)
	}

	item, err := decodeQueueItem(data)
	if err != nil {
		return nil, err
	}
	patch.Apply(item)

	encoded, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encoding queue item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET data = ? WHERE id = ?`, string(encoded), id); err != nil {
		return nil, fmt.Errorf("updating queue item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return item, nil
}

func (s *SQLiteStore) DeleteQueueItem(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting queue item: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close releases this store's reference to the underlying connection. The
// connection itself is closed only when the last store sharing it closes.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if !s.shared {
		return s.db.Close()
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()

	h, ok := handles[s.path]
	if !ok {
		return nil
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	delete(handles, s.path)
	return h.db.Close()
}

func decodeProject(data string) (*studio.Project, error) {
	var project studio.Project
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	return &project, nil
}

func decodeQueueItem(data string) (*studio.QueueItem, error) {
	var item studio.QueueItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("decoding queue item: %w", err)
	}
	return &item, nil
}

// Compile-time check that SQLiteStore implements the LocalStore interface
var _ studio.LocalStore = (*SQLiteStore)(nil)
