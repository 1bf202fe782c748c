package sync

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vishal-go/GitSync/internal/vault"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS sync_journal (
    path TEXT PRIMARY KEY,
    hash TEXT NOT NULL,
    size INTEGER NOT NULL,
    is_binary INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_journal_hash ON sync_journal(hash);
`

// Journal persists the last-synced snapshot between runs using SQLite.
// It is owned exclusively by the Engine.
type Journal struct {
	db     *sql.DB
	mu     gosync.RWMutex
	dbPath string
}

// OpenJournal creates or opens the journal database at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal db at %s: %w", dbPath, err)
	}

	// SQLite in WAL mode works best with a single writer connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: db, dbPath: dbPath}, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Get returns the last-synced entry for a path, or nil when unknown.
func (j *Journal) Get(path string) (*vault.FileEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var entry vault.FileEntry
	err := j.db.QueryRow(
		"SELECT path, hash, size, is_binary FROM sync_journal WHERE path = ?", path,
	).Scan(&entry.Path, &entry.Hash, &entry.Size, &entry.IsBinary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal query %s: %w", path, err)
	}
	return &entry, nil
}

// Set inserts or replaces the last-synced entry for a path.
func (j *Journal) Set(entry *vault.FileEntry) error {
	if entry == nil {
		return fmt.Errorf("journal: cannot set nil entry")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		"INSERT OR REPLACE INTO sync_journal (path, hash, size, is_binary) VALUES (?, ?, ?, ?)",
		entry.Path, entry.Hash, entry.Size, entry.IsBinary,
	)
	if err != nil {
		return fmt.Errorf("journal set %s: %w", entry.Path, err)
	}
	return nil
}

// Delete removes a path from the journal.
func (j *Journal) Delete(path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.db.Exec("DELETE FROM sync_journal WHERE path = ?", path); err != nil {
		return fmt.Errorf("journal delete %s: %w", path, err)
	}
	return nil
}

// State returns the entire last-synced snapshot.
func (j *Journal) State() (vault.Snapshot, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.Query("SELECT path, hash, size, is_binary FROM sync_journal")
	if err != nil {
		return nil, fmt.Errorf("journal query state: %w", err)
	}
	defer rows.Close()

	state := vault.NewSnapshot()
	for rows.Next() {
		var entry vault.FileEntry
		if err := rows.Scan(&entry.Path, &entry.Hash, &entry.Size, &entry.IsBinary); err != nil {
			return nil, fmt.Errorf("journal scan row: %w", err)
		}
		state.Add(&entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal iterate state: %w", err)
	}
	return state, nil
}

// Count returns the number of journal entries.
func (j *Journal) Count() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var count int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM sync_journal").Scan(&count); err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return count, nil
}
