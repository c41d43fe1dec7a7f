// Package store keeps a local ledger of upload attempts in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"catbox/internal"
)

// DefaultLimit is how many rows Recent returns when asked for zero or fewer
const DefaultLimit = 20

// History is the upload ledger
type History struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/catbox-cli/history.db, falling back to ~/.local/share
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("history: locate home: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "catbox-cli", "history.db"), nil
}

// Open opens (or creates) the ledger at path
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}

	return &History{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS uploads (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id    TEXT NOT NULL,
		path        TEXT NOT NULL,
		url         TEXT,
		error       TEXT,
		uploaded_at TEXT NOT NULL
	)`)
	return err
}

// NewBatchID returns an identifier grouping the uploads of one command
func NewBatchID() string {
	return uuid.NewString()
}

// Record appends one entry. A zero UploadedAt is stamped with the current time.
func (h *History) Record(ctx context.Context, entry internal.HistoryEntry) error {
	if entry.BatchID == "" || entry.Path == "" {
		return internal.NewValidationError("history_entry", "batch id and path are required")
	}
	if entry.UploadedAt.IsZero() {
		entry.UploadedAt = time.Now()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO uploads (batch_id, path, url, error, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		entry.BatchID, entry.Path, entry.URL, entry.Error, entry.UploadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]internal.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT batch_id, path, COALESCE(url, ''), COALESCE(error, ''), uploaded_at
		 FROM uploads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []internal.HistoryEntry
	for rows.Next() {
		var (
			entry internal.HistoryEntry
			stamp string
		)
		if err := rows.Scan(&entry.BatchID, &entry.Path, &entry.URL, &entry.Error, &stamp); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		entry.UploadedAt, err = time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return nil, fmt.Errorf("history: bad timestamp %q: %w", stamp, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close releases the database handle
func (h *History) Close() error {
	return h.db.Close()
}
