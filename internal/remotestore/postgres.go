package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio-go/internal/studio"

	_ "github.com/lib/pq" // Postgres driver
)

// DefaultTimeout is the per-call deadline applied when none is configured.
// The local store is always the source of truth, so a slow cloud round trip
// should fail fast and let the caller degrade rather than hang.
const DefaultTimeout = 5 * time.Second

// PostgresStore implements the RemoteStore interface on a hosted Postgres table:
//
//	CREATE TABLE projects (
//	    id         TEXT PRIMARY KEY,
//	    user_id    TEXT NOT NULL,
//	    title      TEXT NOT NULL,
//	    data       JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX idx_projects_user_id ON projects(user_id);
//
// updated_at is assigned by the database server on every write, so ordering
// across devices never depends on a client clock.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// Open connects to the database at dsn and verifies the connection.
func Open(dsn string, timeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := New(db, timeout)

	ctx, cancel := store.callContext()
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return store, nil
}

// New wraps an existing database connection. The caller owns the connection.
func New(db *sql.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresStore{db: db, timeout: timeout}
}

func (s *PostgresStore) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *PostgresStore) UpsertProject(ctx context.Context, ownerID string, project *studio.Project) error {
	if project == nil || project.ID == "" {
		return fmt.Errorf("project must have an id")
	}
	if ownerID == "" {
		return fmt.Errorf("owner id required")
	}

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The conflict update is guarded on user_id so an id collision with
	// another owner's row updates nothing instead of leaking across owners.
	query := `
		INSERT INTO projects (id, user_id, title, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, data = EXCLUDED.data, updated_at = now()
		WHERE projects.user_id = EXCLUDED.user_id
	`
	if _, err := s.db.ExecContext(ctx, query, project.ID, ownerID, project.Title, data); err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchProject(ctx context.Context, ownerID, id string) (*studio.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT data, updated_at FROM projects
		WHERE id = $1 AND user_id = $2
	`

	var data []byte
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}

	return decodeRow(data, updatedAt)
}

func (s *PostgresStore) ListProjects(ctx context.Context, ownerID string) ([]*studio.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT data, updated_at FROM projects
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*studio.Project
	for rows.Next() {
		var data []byte
		var updatedAt time.Time
		if err := rows.Scan(&data, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		project, err := decodeRow(data, updatedAt)
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

func (s *PostgresStore) DeleteProject(ctx context.Context, ownerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `DELETE FROM projects WHERE id = $1 AND user_id = $2`
	if _, err := s.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// decodeRow turns a stored payload plus its server update time back into a
// project. LastUpdated is derived from updated_at so the merge layer compares
// one timeline regardless of which store a project came from.
func decodeRow(data []byte, updatedAt time.Time) (*studio.Project, error) {
	var project studio.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	project.LastUpdated = updatedAt.UnixMilli()
	project.Synced = true
	return &project, nil
}

// Compile-time check that PostgresStore implements the RemoteStore interface
var _ studio.RemoteStore = (*PostgresStore)(nil)
