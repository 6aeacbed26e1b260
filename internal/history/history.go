package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/dbnav/internal/config"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query        TEXT NOT NULL,
	server       TEXT,
	driver       TEXT,
	database_name TEXT,
	executed_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms  INTEGER,
	row_count    INTEGER,
	is_error     BOOLEAN DEFAULT FALSE
)`

// Entry represents a single executed query in the history log.
type Entry struct {
	ID           int64
	Query        string
	Server       string
	Driver       string
	DatabaseName string
	ExecutedAt   time.Time
	DurationMS   int64
	RowCount     int64
	IsError      bool
}

// History provides SQLite-backed query history storage.
type History struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &History{db: db}, nil
}

// New opens the history database at its default location,
// ConfigDir()/history.db.
func New() (*History, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("history: config dir: %w", err)
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Add inserts a new history entry.
func (h *History) Add(entry Entry) error {
	_, err := h.db.Exec(
		`INSERT INTO history (query, server, driver, database_name, executed_at, duration_ms, row_count, is_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Query,
		entry.Server,
		entry.Driver,
		entry.DatabaseName,
		entry.ExecutedAt,
		entry.DurationMS,
		entry.RowCount,
		entry.IsError,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

// Search returns history entries whose query text matches the given pattern
// using SQL LIKE, most recent first, limited to limit rows.
func (h *History) Search(pattern string, limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, query, server, driver, database_name, executed_at, duration_ms, row_count, is_error
		 FROM history
		 WHERE query LIKE ?
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recent history entries, limited to limit rows.
func (h *History) Recent(limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, query, server, driver, database_name, executed_at, duration_ms, row_count, is_error
		 FROM history
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Clear deletes all history entries.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Query,
			&e.Server,
			&e.Driver,
			&e.DatabaseName,
			&e.ExecutedAt,
			&e.DurationMS,
			&e.RowCount,
			&e.IsError,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
