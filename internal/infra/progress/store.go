// Package progress persists per-media resume positions in SQLite so a
// session can pick up where the viewer left off.
package progress

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the progress database.
	DefaultDBPath = "data/progress.db"
)

// Position is a stored resume position for one piece of media.
type Position struct {
	MediaID   string    `json:"mediaId"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Completed reports whether the media was watched to the end.
func (p Position) Completed() bool {
	return p.Duration > 0 && p.Position >= p.Duration
}

// Store is the SQLite-backed resume-position store.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewStore creates a store instance for the given database path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultDBPath
	}
	return &Store{
		path: path,
	}
}

// Open opens the database and initializes the schema.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open progress database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s.db = db

	if err := s.initSchema(); err != nil {
		s.db.Close()
		s.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", s.path).Msg("Progress database opened")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// initSchema initializes the database schema.
func (s *Store) initSchema() error {
	currentVersion := s.getSchemaVersion()

	if currentVersion == "" {
		if err := s.createSchema(); err != nil {
			return err
		}
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating progress schema")
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

// createSchema creates all database tables.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resume_positions (
		media_id TEXT PRIMARY KEY,
		position_seconds REAL NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resume_updated ON resume_positions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS progress_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// getSchemaVersion returns the stored schema version.
func (s *Store) getSchemaVersion() string {
	var version string
	err := s.db.QueryRow("SELECT value FROM progress_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// setMeta sets a metadata value.
func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO progress_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, time.Now().Format(time.RFC3339), value, time.Now().Format(time.RFC3339))
	return err
}

// Save upserts the resume position for a piece of media.
func (s *Store) Save(mediaID string, position, duration float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return fmt.Errorf("database not open")
	}
	if mediaID == "" {
		return fmt.Errorf("empty media id")
	}
	if position < 0 {
		position = 0
	}

	now := time.Now().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO resume_positions (media_id, position_seconds, duration_seconds, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(media_id) DO UPDATE SET
			position_seconds = ?,
			duration_seconds = ?,
			updated_at = ?
	`, mediaID, position, duration, now, position, duration, now)
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Get returns the stored resume position for a piece of media.
func (s *Store) Get(mediaID string) (Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return Position{}, false, fmt.Errorf("database not open")
	}

	var (
		pos       Position
		updatedAt string
	)
	err := s.db.QueryRow(`
		SELECT media_id, position_seconds, duration_seconds, updated_at
		FROM resume_positions WHERE media_id = ?
	`, mediaID).Scan(&pos.MediaID, &pos.Position, &pos.Duration, &updatedAt)
	if err == sql.ErrNoRows {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to read position: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		pos.UpdatedAt = t
	}
	return pos, true, nil
}

// Recent returns the most recently updated positions, newest first.
func (s *Store) Recent(limit int) ([]Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("database not open")
	}
	if limit <= 0 {
		limit = 20
	}

	// rowid breaks ties between saves within the same second
	rows, err := s.db.Query(`
		SELECT media_id, position_seconds, duration_seconds, updated_at
		FROM resume_positions
		ORDER BY updated_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var (
			pos       Position
			updatedAt string
		)
		if err := rows.Scan(&pos.MediaID, &pos.Position, &pos.Duration, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			pos.UpdatedAt = t
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// Delete removes a stored position.
func (s *Store) Delete(mediaID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return fmt.Errorf("database not open")
	}
	_, err := s.db.Exec("DELETE FROM resume_positions WHERE media_id = ?", mediaID)
	return err
}
