package framestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on created_at for list ordering
const currentSchemaVersion = 1

// Store is the frame persistence contract. Two conforming
// implementations exist: SQLiteStore (primary) and MemStore (fallback).
// Consumers depend only on this interface, never on which backend is live.
type Store interface {
	// Add inserts a frame, assigning id/createdAt/source when absent,
	// and returns the frame's id. Adding an id that already exists is
	// an acknowledged no-op returning the same id.
	Add(ctx context.Context, f CustomFrame) (string, error)

	// Get returns the frame with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (CustomFrame, error)

	// List returns all frames, newest first then id ascending.
	List(ctx context.Context) ([]CustomFrame, error)

	// Delete removes the frame with the given id, or ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Clear removes every frame. Diagnostic/recovery path.
	Clear(ctx context.Context) error

	// Count returns the number of stored frames.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error

	// IsUsingFallback reports whether the in-memory fallback is live.
	// The only way callers may distinguish the backends.
	IsUsingFallback() bool
}

// SQLiteStore is the primary indexed backend.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens the SQLite database at path, applying pragmas
// and schema migrations. Idempotent - safe to call multiple times.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// A single-connection pool serializes writers, so Add/Delete are safe
// to call concurrently from multiple UI triggers.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsUsingFallback always reports false for the SQLite backend.
func (s *SQLiteStore) IsUsingFallback() bool { return false }

// Add inserts a frame. ON CONFLICT(id) DO NOTHING keeps re-inserts of
// the same id idempotent, which the legacy migration relies on.
func (s *SQLiteStore) Add(ctx context.Context, f CustomFrame) (string, error) {
	f = withDefaults(f)
	if err := f.Validate(); err != nil {
		return "", fmt.Errorf("add frame: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_frames (id, name, image_data, mime_type, created_at, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Name,
		f.ImageData,
		f.MimeType,
		f.CreatedAt.UTC().Format(time.RFC3339Nano),
		f.Source,
	)
	if err != nil {
		return "", fmt.Errorf("add frame: %w", err)
	}
	return f.ID, nil
}

// Get returns the frame with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (CustomFrame, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, image_data, mime_type, created_at, source
		FROM custom_frames
		WHERE id = ?
	`, id)

	f, err := scanFrame(row)
	if err == sql.ErrNoRows {
		return CustomFrame{}, fmt.Errorf("frame %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return CustomFrame{}, fmt.Errorf("get frame %q: %w", id, err)
	}
	return f, nil
}

// List returns all frames with deterministic ordering: newest first,
// then id ascending as the tiebreaker.
func (s *SQLiteStore) List(ctx context.Context) ([]CustomFrame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, image_data, mime_type, created_at, source
		FROM custom_frames
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	frames := []CustomFrame{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("list frames: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	return frames, nil
}

// Delete removes the frame with the given id, reporting ErrNotFound
// for a missing id so no deletion fails silently.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_frames WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete frame %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete frame %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("frame %q: %w", id, ErrNotFound)
	}
	return nil
}

// Clear removes every frame.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM custom_frames`); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	return nil
}

// Count returns the number of stored frames.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_frames`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count frames: %w", err)
	}
	return n, nil
}

// withDefaults fills the server-assigned fields of a frame.
func withDefaults(f CustomFrame) CustomFrame {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Source == "" {
		f.Source = SourceUserUpload
	}
	return f
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFrame(s scanner) (CustomFrame, error) {
	var f CustomFrame
	var created string
	if err := s.Scan(&f.ID, &f.Name, &f.ImageData, &f.MimeType, &created, &f.Source); err != nil {
		return CustomFrame{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return CustomFrame{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	f.CreatedAt = t
	return f, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runSchemaMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runSchemaMigrations applies incremental schema migrations based on
// user_version.
func runSchemaMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_custom_frames_created
			ON custom_frames(created_at DESC, id ASC)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
