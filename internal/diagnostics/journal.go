package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
)

const (
	journalDirPermissions  = 0750
	journalFilePermissions = 0600
	journalBusyTimeoutMS   = 5000
	journalConnectTimeout  = 5 * time.Second

	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// Entry kinds recorded in the journal.
const (
	EntryStatus    = "status"
	EntryLinkState = "link_state"
)

// Entry is one persisted journal row.
type Entry struct {
	ID        int64     `json:"id"`
	Node      string    `json:"node"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal persists status lines and link state transitions to SQLite so a
// restarted node still has its recent history.
//
// SQLite works best with a single writer; the connection pool is pinned
// to one connection.
type Journal struct {
	db   *sql.DB
	path string
}

// OpenJournal opens (creating if needed) the journal database and ensures
// the schema exists.
//
// Parameters:
//   - cfg: Journal configuration from config.yaml
//
// Returns:
//   - *Journal: Ready journal
//   - error: If the file cannot be opened or the schema cannot be created
func OpenJournal(cfg config.JournalConfig) (*Journal, error) {
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, journalDirPermissions); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path,
		journalBusyTimeoutMS,
	)
	if cfg.Path == ":memory:" {
		connStr = ":memory:"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), journalConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying journal connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS status_journal (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			node       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			value      TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);
		CREATE INDEX IF NOT EXISTS idx_status_journal_created
			ON status_journal(created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	if cfg.Path != ":memory:" {
		// File might not exist yet on first run; permissions apply after
		// the first write otherwise.
		_ = os.Chmod(cfg.Path, journalFilePermissions)
	}

	return &Journal{db: db, path: cfg.Path}, nil
}

// Record inserts one journal entry.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - node: Node name
//   - kind: EntryStatus or EntryLinkState
//   - value: The status line or state name
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) Record(ctx context.Context, node, kind, value string) error {
	if node == "" {
		return fmt.Errorf("node name is required")
	}
	if kind == "" {
		kind = EntryStatus
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO status_journal (node, kind, value) VALUES (?, ?, ?)",
		node,
		kind,
		value,
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}

	return nil
}

// Recent returns the most recent journal entries, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, node, kind, value, created_at
		 FROM status_journal
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Node, &entry.Kind, &entry.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		timestamp, err := parseJournalTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := j.db.ExecContext(ctx,
		"DELETE FROM status_journal WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// HealthCheck verifies the journal database is accessible.
func (j *Journal) HealthCheck(ctx context.Context) error {
	var result int
	if err := j.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("journal health check failed: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the journal file.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	return nil
}

// parseJournalTimestamp parses a timestamp stored in SQLite.
func parseJournalTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
