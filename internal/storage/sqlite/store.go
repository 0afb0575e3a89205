package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/steveyegge/rwallet/internal/storage"
)

var _ storage.Store = (*SQLiteStorage)(nil)

// SQLiteStorage implements storage.Store on a single SQLite kv table.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool
}

// setupWASMCache configures WASM compilation caching to reduce SQLite startup time.
// Returns the cache directory path (empty string if using in-memory cache).
//
// The cache lives in ~/.cache/rwallet/wasm/ and is keyed by wazero version.
// Falls back to an in-memory cache if the directory cannot be created.
func setupWASMCache() string {
	cacheDir := ""
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "rwallet", "wasm")
	}

	var cache wazero.CompilationCache
	if cacheDir != "" {
		if c, err := wazero.NewCompilationCacheWithDir(cacheDir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
		cacheDir = ""
	}

	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
	return cacheDir
}

func init() {
	_ = setupWASMCache()
}

// New opens (creating if needed) the SQLite database at path.
// ":memory:" opens a private in-memory database, useful in tests.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	var connStr string
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))

	switch {
	case path == ":memory:":
		// Single connection keeps the private in-memory database alive and shared.
		connStr = "file::memory:?mode=memory&cache=private&_pragma=journal_mode(DELETE)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	case strings.HasPrefix(path, "file:"):
		connStr = storage.SQLiteConnString(path, false)
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = storage.SQLiteConnString(path, false)
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The wallet is a single-writer workload; one connection avoids lock
	// contention between pooled connections inside one process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if !isInMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if !isInMemory && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &SQLiteStorage{db: db, dbPath: absPath}, nil
}

// Get returns the value stored at key.
func (s *SQLiteStorage) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	return getValue(ctx, s.db, key)
}

// Has reports whether key holds a value.
func (s *SQLiteStorage) Has(ctx context.Context, key storage.Key) (bool, error) {
	if s.closed.Load() {
		return false, storage.ErrClosed
	}
	return hasValue(ctx, s.db, key)
}

// Set stores value at key outside of any explicit transaction.
func (s *SQLiteStorage) Set(ctx context.Context, key storage.Key, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return setValue(ctx, s.db, key, value)
}

// Delete removes key.
func (s *SQLiteStorage) Delete(ctx context.Context, key storage.Key) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return deleteValue(ctx, s.db, key)
}

// Close closes the database connection.
// It checkpoints the WAL so writes are flushed to the main database file
// between CLI invocations.
func (s *SQLiteStorage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the absolute path to the database file.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// IsClosed returns true if Close() has been called.
func (s *SQLiteStorage) IsClosed() bool {
	return s.closed.Load()
}

// queryer is satisfied by both *sql.DB and *sql.Conn.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getValue(ctx context.Context, q queryer, key storage.Key) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, string(key)).Scan(&value)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("get %s", key), err)
	}
	return value, nil
}

func hasValue(ctx context.Context, q queryer, key storage.Key) (bool, error) {
	_, err := getValue(ctx, q, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func setValue(ctx context.Context, q queryer, key storage.Key, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(key), value)
	return wrapDBError(fmt.Sprintf("set %s", key), err)
}

func deleteValue(ctx context.Context, q queryer, key storage.Key) error {
	_, err := q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, string(key))
	return wrapDBError(fmt.Sprintf("delete %s", key), err)
}
