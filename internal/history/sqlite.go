package history

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLiteStore opens or creates the journal database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS outcomes (
		key TEXT NOT NULL PRIMARY KEY,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		status TEXT NOT NULL,
		url TEXT,
		last_error TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
	CREATE INDEX IF NOT EXISTS idx_outcomes_updated_at ON outcomes(updated_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Save upserts a record, stamping it with the current time. Writes are
// serialized to avoid SQLITE_BUSY from concurrent workers.
func (s *SQLiteStore) Save(record *Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		record.UpdatedAt = time.Now()

		query := `
		INSERT INTO outcomes (key, path, size, status, url, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			path = excluded.path,
			size = excluded.size,
			status = excluded.status,
			url = excluded.url,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
		`

		_, err := s.db.Exec(query,
			record.Key,
			record.Path,
			record.Size,
			record.Status,
			record.URL,
			record.LastError,
			record.UpdatedAt,
		)
		return err
	})
}

// Get returns the record for a key, or nil if none exists.
func (s *SQLiteStore) Get(key string) (*Record, error) {
	query := `
	SELECT key, path, size, status, url, last_error, updated_at
	FROM outcomes WHERE key = ?
	`

	row := s.db.QueryRow(query, key)

	var record Record
	var url, lastError sql.NullString

	err := row.Scan(
		&record.Key,
		&record.Path,
		&record.Size,
		&record.Status,
		&url,
		&lastError,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.URL = url.String
	record.LastError = lastError.String
	return &record, nil
}

// ListByStatus returns all records with the given status, oldest
// first.
func (s *SQLiteStore) ListByStatus(status Status) ([]*Record, error) {
	query := `
	SELECT key, path, size, status, url, last_error, updated_at
	FROM outcomes WHERE status = ?
	ORDER BY updated_at ASC
	`

	rows, err := s.db.Query(query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		var url, lastError sql.NullString

		err := rows.Scan(
			&record.Key,
			&record.Path,
			&record.Size,
			&record.Status,
			&url,
			&lastError,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		record.URL = url.String
		record.LastError = lastError.String
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxAttempts = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = operation()
		if err == nil || !isBusyError(err) {
			return err
		}
		time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
	}
	return err
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

var _ Store = (*SQLiteStore)(nil)
