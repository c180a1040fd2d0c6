package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists operation history in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Config holds history store configuration.
type Config struct {
	Path string
}

// NewStore creates a new history store instance.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &Store{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *Store) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *Store) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Append records one finished operation.
func (s *Store) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO entries (
			id, workspace, operation, provider, nodes, outcome,
			started_at, completed_at, duration_seconds, output_lines, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Workspace,
		entry.Operation,
		entry.Provider,
		entry.Nodes,
		entry.Outcome,
		entry.StartedAt,
		entry.CompletedAt,
		entry.DurationSeconds,
		entry.OutputLines,
		entry.Error,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// Get retrieves one entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT id, workspace, operation, provider, nodes, outcome,
		       started_at, completed_at, duration_seconds, output_lines, error, created_at
		FROM entries
		WHERE id = ?
	`

	entry := &Entry{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.Workspace,
		&entry.Operation,
		&entry.Provider,
		&entry.Nodes,
		&entry.Outcome,
		&entry.StartedAt,
		&entry.CompletedAt,
		&entry.DurationSeconds,
		&entry.OutputLines,
		&entry.Error,
		&entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history entry not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	return entry, nil
}

// List lists entries for a workspace, newest first. An empty workspace
// lists across all workspaces.
func (s *Store) List(ctx context.Context, workspace string, limit, offset int) ([]*Entry, error) {
	query := `
		SELECT id, workspace, operation, provider, nodes, outcome,
		       started_at, completed_at, duration_seconds, output_lines, error, created_at
		FROM entries
		WHERE (? = '' OR workspace = ?)
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, workspace, workspace, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry := &Entry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Workspace,
			&entry.Operation,
			&entry.Provider,
			&entry.Nodes,
			&entry.Outcome,
			&entry.StartedAt,
			&entry.CompletedAt,
			&entry.DurationSeconds,
			&entry.OutputLines,
			&entry.Error,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
