package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore SQLite history storage implementation
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the dispatcher is sequential anyway
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

// initTables initializes database tables
func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			tool TEXT NOT NULL,
			success INTEGER NOT NULL,
			output TEXT NOT NULL,
			error TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}
	return nil
}

// Record saves an invocation
func (s *SQLiteStore) Record(inv *Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.StartedAt.IsZero() {
		inv.StartedAt = time.Now()
	}

	_, err := s.db.Exec(
		"INSERT INTO invocations (id, tool, success, output, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		inv.ID, inv.Tool, inv.Success, inv.Output, inv.Error, inv.StartedAt.UTC(), inv.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Recent gets the latest invocations
func (s *SQLiteStore) Recent(limit int) ([]*Invocation, error) {
	rows, err := s.db.Query(
		`SELECT id, tool, success, output, error, started_at, duration_ms
		 FROM invocations
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get invocations: %w", err)
	}
	return scanInvocations(rows)
}

// ByTool gets the latest invocations of one tool
func (s *SQLiteStore) ByTool(tool string, limit int) ([]*Invocation, error) {
	rows, err := s.db.Query(
		`SELECT id, tool, success, output, error, started_at, duration_ms
		 FROM invocations
		 WHERE tool = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		tool, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get invocations: %w", err)
	}
	return scanInvocations(rows)
}

// Clear deletes all invocations
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM invocations"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanInvocations(rows *sql.Rows) ([]*Invocation, error) {
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		var inv Invocation
		var durationMs int64
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Success, &inv.Output, &inv.Error, &inv.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durationMs) * time.Millisecond
		invocations = append(invocations, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invocations: %w", err)
	}
	return invocations, nil
}

var _ Store = (*SQLiteStore)(nil)
