package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists registry entries between runs, keyed by logical path.
type Store interface {
	Save(ctx context.Context, e *Entry) error
	Load(ctx context.Context, logicalPath string) (*Entry, error)
	LoadAll(ctx context.Context) ([]*Entry, error)
	Close() error
}

// SQLiteStore implements Store using SQLite. Structured fields are kept as JSON columns.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) a registry database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ErrStoreOpenFailed.WithCause(err).WithContext("path", dbPath)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ErrSchemaFailed.WithCause(err).WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		logical_path TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		headings TEXT NOT NULL,
		variables TEXT NOT NULL,
		links TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces the row for e.LogicalPath.
func (s *SQLiteStore) Save(ctx context.Context, e *Entry) error {
	headings, err := json.Marshal(e.Headings)
	if err != nil {
		return ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
	}
	variables, err := json.Marshal(e.Variables)
	if err != nil {
		return ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
	}
	linksJSON, err := json.Marshal(e.Links)
	if err != nil {
		return ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
	}

	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (logical_path, title, fingerprint, updated_at, headings, variables, links)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(logical_path) DO UPDATE SET
			title = excluded.title,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at,
			headings = excluded.headings,
			variables = excluded.variables,
			links = excluded.links`,
		e.LogicalPath, e.Title, e.Fingerprint, updated.UnixNano(), headings, variables, linksJSON,
	)
	if err != nil {
		return ErrSaveFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
	}
	return nil
}

// Load returns the entry stored for logicalPath, or ErrEntryNotFound.
func (s *SQLiteStore) Load(ctx context.Context, logicalPath string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectEntries+" WHERE logical_path = ?", logicalPath)
	if err != nil {
		return nil, ErrQueryFailed.WithCause(err).WithContext("logical_path", logicalPath)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound.WithContext("logical_path", logicalPath)
	}
	return entries[0], nil
}

// LoadAll returns every stored entry ordered by logical path.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectEntries+" ORDER BY logical_path")
	if err != nil {
		return nil, ErrQueryFailed.WithCause(err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

const selectEntries = "SELECT logical_path, title, fingerprint, updated_at, headings, variables, links FROM documents"

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var (
			e                          Entry
			updated                    int64
			headings, variables, links []byte
		)
		if err := rows.Scan(&e.LogicalPath, &e.Title, &e.Fingerprint, &updated, &headings, &variables, &links); err != nil {
			return nil, ErrQueryFailed.WithCause(err)
		}
		e.UpdatedAt = time.Unix(0, updated).UTC()

		if err := json.Unmarshal(headings, &e.Headings); err != nil {
			return nil, ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
		}
		if err := json.Unmarshal(variables, &e.Variables); err != nil {
			return nil, ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
		}
		if err := json.Unmarshal(links, &e.Links); err != nil {
			return nil, ErrEncodeFailed.WithCause(err).WithContext("logical_path", e.LogicalPath)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQueryFailed.WithCause(err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
