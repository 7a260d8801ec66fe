// Package registry persists session metadata in SQLite so sessions survive
// process restarts and can be listed or removed later.
package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Status values for a registered session.
const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

// Session is one registered session workspace.
type Session struct {
	ID          string
	Name        string
	ProjectRoot string
	Workspace   string
	Branch      string
	Status      string
	CreatedAt   time.Time
}

// Registry is a SQLite-backed session store.
type Registry struct {
	db *sql.DB
}

// Open opens the registry at the standard location in the XDG data home.
func Open() (*Registry, error) {
	dbPath := filepath.Join(xdg.DataHome, "devsess", "devsess.db")
	return OpenPath(dbPath)
}

// OpenPath opens a registry at a custom database path. Useful for testing.
func OpenPath(dbPath string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			project_root TEXT NOT NULL,
			workspace    TEXT NOT NULL,
			branch       TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_root);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	`
	_, err := db.Exec(schema)
	return err
}

// Save persists a session, updating it if the ID already exists.
func (r *Registry) Save(s *Session) error {
	if s == nil {
		return fmt.Errorf("cannot save nil session")
	}
	if s.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	query := `
		INSERT INTO sessions (id, name, project_root, workspace, branch, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			workspace = excluded.workspace,
			branch = excluded.branch,
			status = excluded.status
	`
	_, err := r.db.Exec(query,
		s.ID, s.Name, s.ProjectRoot, s.Workspace, s.Branch, s.Status, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a session by its ID.
func (r *Registry) Load(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	query := `
		SELECT id, name, project_root, workspace, branch, status, created_at
		FROM sessions
		WHERE id = ?
	`
	var s Session
	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &s.Name, &s.ProjectRoot, &s.Workspace, &s.Branch, &s.Status, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// FindByName retrieves a session by its human-readable name within a project.
func (r *Registry) FindByName(projectRoot, name string) (*Session, error) {
	query := `
		SELECT id, name, project_root, workspace, branch, status, created_at
		FROM sessions
		WHERE project_root = ? AND name = ? AND status = ?
	`
	var s Session
	err := r.db.QueryRow(query, projectRoot, name, StatusActive).Scan(
		&s.ID, &s.Name, &s.ProjectRoot, &s.Workspace, &s.Branch, &s.Status, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// ListByProject returns all active sessions of a project, most recent first.
func (r *Registry) ListByProject(projectRoot string) ([]*Session, error) {
	query := `
		SELECT id, name, project_root, workspace, branch, status, created_at
		FROM sessions
		WHERE project_root = ? AND status = ?
		ORDER BY created_at DESC
	`
	return r.querySessions(query, projectRoot, StatusActive)
}

// ListAll returns every active session, most recent first.
func (r *Registry) ListAll() ([]*Session, error) {
	query := `
		SELECT id, name, project_root, workspace, branch, status, created_at
		FROM sessions
		WHERE status = ?
		ORDER BY created_at DESC
	`
	return r.querySessions(query, StatusActive)
}

func (r *Registry) querySessions(query string, args ...interface{}) ([]*Session, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*Session, 0)
	for rows.Next() {
		var s Session
		err := rows.Scan(
			&s.ID, &s.Name, &s.ProjectRoot, &s.Workspace, &s.Branch, &s.Status, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// Remove deletes a session row.
func (r *Registry) Remove(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	result, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}
