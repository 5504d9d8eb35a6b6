package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// SQLiteStorage is the SQLite-backed MetadataStore. It also owns the chunks
// table used by SQLiteVectorStore.
type SQLiteStorage struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; pragmas stick to the one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("create data directory", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, storageErr("apply migrations", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn inside a transaction, committing on success.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// acquire takes the read side of the close guard.
func (s *SQLiteStorage) acquire() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, ErrClosed)
	}
	return s.mu.RUnlock, nil
}

// File operations

// GetAll returns every file record keyed by path.
func (s *SQLiteStorage) GetAll(ctx context.Context) (map[string]types.FileRecord, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `SELECT path, hash, mtime FROM files`)
	if err != nil {
		return nil, storageErr("list files", err)
	}
	defer func() { _ = rows.Close() }()

	records := make(map[string]types.FileRecord)
	for rows.Next() {
		var rec types.FileRecord
		if err := rows.Scan(&rec.Path, &rec.Hash, &rec.ModTime); err != nil {
			return nil, storageErr("scan file row", err)
		}
		records[rec.Path] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list files", err)
	}
	return records, nil
}

// Get returns the record for path or ErrNotFound.
func (s *SQLiteStorage) Get(ctx context.Context, path string) (types.FileRecord, error) {
	release, err := s.acquire()
	if err != nil {
		return types.FileRecord{}, err
	}
	defer release()

	rec := types.FileRecord{Path: path}
	err = s.db.QueryRowContext(ctx, `SELECT hash, mtime FROM files WHERE path = ?`, path).
		Scan(&rec.Hash, &rec.ModTime)
	if err == sql.ErrNoRows {
		return types.FileRecord{}, ErrNotFound
	}
	if err != nil {
		return types.FileRecord{}, storageErr("get file", err)
	}
	return rec, nil
}

// Upsert inserts or replaces the record for rec.Path.
func (s *SQLiteStorage) Upsert(ctx context.Context, rec types.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	query := `
		INSERT INTO files (path, hash, mtime, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			mtime = excluded.mtime,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, rec.Path, rec.Hash, rec.ModTime); err != nil {
		return storageErr("upsert file", err)
	}
	return nil
}

// Delete removes the record for path.
func (s *SQLiteStorage) Delete(ctx context.Context, path string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return storageErr("delete file", err)
	}
	return nil
}

// Count returns the number of file records.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	release, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, storageErr("count files", err)
	}
	return n, nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (string, error) {
	release, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	return SchemaVersion(ctx, s.db)
}

var _ MetadataStore = (*SQLiteStorage)(nil)
