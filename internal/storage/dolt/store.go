// Package dolt implements the storage interface using Dolt, a versioned
// MySQL-compatible database.
//
// Every committed wallet transaction can optionally be recorded as a Dolt
// commit, giving a queryable history of owner changes and balance movements.
//
// Connection modes:
//   - Embedded: No server required, database/sql interface via dolthub/driver (cgo)
//   - Server: Connect to a running dolt sql-server via go-sql-driver/mysql
package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	// MySQL driver for server mode connections
	_ "github.com/go-sql-driver/mysql"

	"github.com/steveyegge/rwallet/internal/storage"
)

var _ storage.Store = (*DoltStore)(nil)

// DefaultSQLPort is the default dolt sql-server port.
const DefaultSQLPort = 3307

// DoltStore implements storage.Store on a Dolt kv table.
type DoltStore struct {
	db         *sql.DB
	dbPath     string
	closed     atomic.Bool
	mu         sync.RWMutex
	serverMode bool
	autoCommit bool

	// embeddedConnector is non-nil only in embedded mode. It must be closed
	// to release filesystem locks held by the embedded engine.
	embeddedConnector io.Closer

	committerName  string
	committerEmail string
}

// Config holds Dolt database configuration.
type Config struct {
	Path           string // Path to Dolt database directory (embedded mode)
	CommitterName  string
	CommitterEmail string
	Database       string // Database name within Dolt (default: "rwallet")

	// AutoCommit records a Dolt commit after every successful transaction.
	AutoCommit bool

	ServerMode     bool
	ServerHost     string // default: 127.0.0.1
	ServerPort     int    // default: 3307
	ServerUser     string // default: root
	ServerPassword string // default: $RW_DOLT_PASSWORD
	ServerTLS      bool
}

const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

// isRetryableError returns true if the error is a transient connection error
// that should be retried in server mode.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"database is read only",
		"lost connection", // MySQL 2013: mid-query disconnect
		"gone away",       // MySQL 2006: idle connection timeout
		"i/o timeout",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// isSerializationError reports whether a transaction lost a write-write race
// and can be retried from the start.
func isSerializationError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "error 1213") ||
		strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "serialization failure") ||
		strings.Contains(errStr, "transaction commit conflict")
}

// withRetry executes an operation with retry for transient errors.
// Only active in server mode; embedded mode has driver-level retry.
func (s *DoltStore) withRetry(ctx context.Context, op func() error) error {
	if !s.serverMode {
		return op()
	}

	bo := newServerRetryBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

var validDatabaseNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

// validateDatabaseName guards the backtick-quoted CREATE DATABASE statement.
func validateDatabaseName(name string) error {
	if !validDatabaseNameRe.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = "rwallet"
	}
	if cfg.CommitterName == "" {
		cfg.CommitterName = os.Getenv("GIT_AUTHOR_NAME")
		if cfg.CommitterName == "" {
			cfg.CommitterName = "rwallet"
		}
	}
	if cfg.CommitterEmail == "" {
		cfg.CommitterEmail = os.Getenv("GIT_AUTHOR_EMAIL")
		if cfg.CommitterEmail == "" {
			cfg.CommitterEmail = "rwallet@local"
		}
	}
	if cfg.ServerMode {
		if cfg.ServerHost == "" {
			cfg.ServerHost = "127.0.0.1"
		}
		if cfg.ServerPort == 0 {
			cfg.ServerPort = DefaultSQLPort
		}
		if cfg.ServerUser == "" {
			cfg.ServerUser = "root"
		}
		if cfg.ServerPassword == "" {
			cfg.ServerPassword = os.Getenv("RW_DOLT_PASSWORD")
		}
	}
}

// New opens a Dolt store in embedded or server mode.
func New(ctx context.Context, cfg *Config) (*DoltStore, error) {
	applyDefaults(cfg)
	if err := validateDatabaseName(cfg.Database); err != nil {
		return nil, err
	}

	if !cfg.ServerMode {
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required")
		}
		return newEmbeddedMode(ctx, cfg)
	}

	// Fail-fast TCP check before MySQL protocol initialization, so a stopped
	// server gives an immediate clear error instead of a driver timeout.
	addr := net.JoinHostPort(cfg.ServerHost, fmt.Sprintf("%d", cfg.ServerPort))
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("dolt server unreachable at %s: %w\n\nStart one with:\n  dolt sql-server --port %d", addr, err, cfg.ServerPort)
	}
	_ = conn.Close()

	db, err := openServerConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newServerStore(ctx, db, cfg)
}

// NewFromDSN connects to a MySQL-compatible server using a ready-made
// go-sql-driver/mysql DSN. The database named in the DSN must exist.
func NewFromDSN(ctx context.Context, dsn string, autoCommit bool) (*DoltStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Dolt server connection: %w", err)
	}
	cfg := &Config{ServerMode: true, AutoCommit: autoCommit}
	applyDefaults(cfg)
	return newServerStore(ctx, db, cfg)
}

func newServerStore(ctx context.Context, db *sql.DB, cfg *Config) (*DoltStore, error) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &DoltStore{
		db:             db,
		serverMode:     true,
		autoCommit:     cfg.AutoCommit,
		committerName:  cfg.CommitterName,
		committerEmail: cfg.CommitterEmail,
	}
	if err := s.withRetry(ctx, func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping Dolt database: %w", err)
	}
	if err := s.withRetry(ctx, func() error { return initSchemaOnDB(ctx, db) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// openServerConnection opens a connection to a dolt sql-server, creating the
// database first if needed.
func openServerConnection(ctx context.Context, cfg *Config) (*sql.DB, error) {
	initDB, err := sql.Open("mysql", storage.MySQLDSN(cfg.ServerUser, cfg.ServerPassword, cfg.ServerHost, cfg.ServerPort, "", cfg.ServerTLS))
	if err != nil {
		return nil, fmt.Errorf("failed to open init connection: %w", err)
	}
	defer func() { _ = initDB.Close() }()

	_, err = initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)) //nolint:gosec // G201: validated by validateDatabaseName
	if err != nil {
		// Dolt may return error 1007 even with IF NOT EXISTS
		errLower := strings.ToLower(err.Error())
		if !strings.Contains(errLower, "database exists") && !strings.Contains(errLower, "1007") {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	db, err := sql.Open("mysql", storage.MySQLDSN(cfg.ServerUser, cfg.ServerPassword, cfg.ServerHost, cfg.ServerPort, cfg.Database, cfg.ServerTLS))
	if err != nil {
		return nil, fmt.Errorf("failed to open Dolt server connection: %w", err)
	}
	return db, nil
}

const schema = `CREATE TABLE IF NOT EXISTS kv (
    kv_key VARCHAR(255) PRIMARY KEY,
    value LONGBLOB NOT NULL,
    updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`

func initSchemaOnDB(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func getValue(ctx context.Context, q queryer, key storage.Key) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, "SELECT value FROM kv WHERE kv_key = ?", string(key)).Scan(&value)
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
	if value == nil {
		value = []byte{}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (kv_key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP(6))
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)
	`, string(key), value)
	return wrapDBError(fmt.Sprintf("set %s", key), err)
}

func deleteValue(ctx context.Context, q queryer, key storage.Key) error {
	_, err := q.ExecContext(ctx, "DELETE FROM kv WHERE kv_key = ?", string(key))
	return wrapDBError(fmt.Sprintf("delete %s", key), err)
}

func (s *DoltStore) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	var v []byte
	err := s.withRetry(ctx, func() error {
		var err error
		v, err = getValue(ctx, s.db, key)
		if errors.Is(err, storage.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	})
	return v, err
}

func (s *DoltStore) Has(ctx context.Context, key storage.Key) (bool, error) {
	if s.closed.Load() {
		return false, storage.ErrClosed
	}
	var ok bool
	err := s.withRetry(ctx, func() error {
		var err error
		ok, err = hasValue(ctx, s.db, key)
		return err
	})
	return ok, err
}

func (s *DoltStore) Set(ctx context.Context, key storage.Key, value []byte) error {
	return s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.Set(ctx, key, value)
	})
}

func (s *DoltStore) Delete(ctx context.Context, key storage.Key) error {
	return s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.Delete(ctx, key)
	})
}

// Close closes the database connection and, in embedded mode, the engine.
func (s *DoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.db != nil {
		if cerr := closeWithin(closeTimeout, "db", s.db.Close); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = errors.Join(err, cerr)
		}
	}
	if s.embeddedConnector != nil {
		if cerr := closeWithin(closeTimeout, "engine", s.embeddedConnector.Close); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = errors.Join(err, cerr)
		}
		s.embeddedConnector = nil
	}
	s.db = nil
	return err
}

// closeTimeout bounds each step of Close. The embedded engine can hang on
// shutdown.
const closeTimeout = 5 * time.Second

// closeWithin runs fn, giving up after d. A timed-out fn keeps running in
// the background.
func closeWithin(d time.Duration, what string, fn func() error) error {
	errc := make(chan error, 1)
	go func() { errc <- fn() }()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case err := <-errc:
		return err
	case <-t.C:
		return fmt.Errorf("dolt: closing %s timed out after %v", what, d)
	}
}

// Path returns the database directory path (empty in server mode).
func (s *DoltStore) Path() string {
	return s.dbPath
}

func (s *DoltStore) commitAuthorString() string {
	return fmt.Sprintf("%s <%s>", s.committerName, s.committerEmail)
}

// Commit creates a Dolt commit of all working-set changes.
func (s *DoltStore) Commit(ctx context.Context, message string) error {
	// In SQL procedure mode Dolt defaults the author to the SQL user; pass an
	// explicit author for deterministic history.
	err := s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "CALL DOLT_COMMIT('-Am', ?, '--author', ?, '--allow-empty')", message, s.commitAuthorString())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CommitInfo represents a Dolt commit.
type CommitInfo struct {
	Hash    string
	Author  string
	Email   string
	Date    time.Time
	Message string
}

// Log returns recent commit history, newest first.
func (s *DoltStore) Log(ctx context.Context, limit int) ([]CommitInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commit_hash, committer, email, date, message
		FROM dolt_log
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	defer rows.Close()

	var commits []CommitInfo
	for rows.Next() {
		var c CommitInfo
		if err := rows.Scan(&c.Hash, &c.Author, &c.Email, &c.Date, &c.Message); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

func absDir(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return "", fmt.Errorf("database path %q is a file, not a directory", path)
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	// The embedded driver stacks its working directory onto relative paths.
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return abs, nil
}
