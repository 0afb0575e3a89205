//go:build cgo

package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
)

const embeddedOpenMaxElapsed = 30 * time.Second

func newEmbeddedOpenBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = embeddedOpenMaxElapsed
	return bo
}

// newEmbeddedMode creates a DoltStore using the embedded Dolt engine (requires CGO).
func newEmbeddedMode(ctx context.Context, cfg *Config) (*DoltStore, error) {
	absPath, err := absDir(cfg.Path)
	if err != nil {
		return nil, err
	}

	initDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail)
	dbDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail, cfg.Database)

	// UOW 1: ensure database exists.
	if err := withEmbeddedDolt(ctx, initDSN, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)) //nolint:gosec // G201: validated by validateDatabaseName
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create dolt database: %w", err)
	}

	// UOW 2: initialize schema (idempotent).
	if err := withEmbeddedDolt(ctx, dbDSN, initSchemaOnDB); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db, connector, err := openEmbeddedConnection(dbDSN)
	if err != nil {
		return nil, err
	}

	// The embedded driver derives a session context from the first Connect and
	// reuses it, so the first connection must not use a cancellable ctx.
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		_ = connector.Close()
		return nil, fmt.Errorf("failed to ping Dolt database: %w", err)
	}

	return &DoltStore{
		db:                db,
		dbPath:            absPath,
		embeddedConnector: connector,
		autoCommit:        cfg.AutoCommit,
		committerName:     cfg.CommitterName,
		committerEmail:    cfg.CommitterEmail,
	}, nil
}

// withEmbeddedDolt runs fn against a short-lived embedded connector, closing
// the DB and connector (releasing engine locks) before returning.
func withEmbeddedDolt(ctx context.Context, dsn string, fn func(ctx context.Context, db *sql.DB) error) (err error) {
	cfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return err
	}
	cfg.BackOff = newEmbeddedOpenBackoff()

	connector, err := embedded.NewConnector(cfg)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)

	defer func() {
		cerr := errors.Join(ignoreContextCanceled(db.Close()), ignoreContextCanceled(connector.Close()))
		err = errors.Join(err, cerr)
	}()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	return fn(ctx, db)
}

// openEmbeddedConnection opens a connection using the embedded Dolt driver.
// The connector must be closed by the caller to release filesystem locks.
func openEmbeddedConnection(dsn string) (*sql.DB, *embedded.Connector, error) {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Dolt DSN: %w", err)
	}
	openCfg.BackOff = newEmbeddedOpenBackoff()

	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Dolt connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Dolt embedded mode is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, connector, nil
}

func ignoreContextCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
