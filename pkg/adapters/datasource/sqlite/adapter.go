// Package sqlite is the SQLite datasource adapter, backed by mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Adapter is a pooled SQLite database file.
type Adapter struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ datasource.Datasource = (*Adapter)(nil)

// Open opens the database file at path with foreign key enforcement enabled.
func Open(ctx context.Context, path string, poolSize int32, logger *zap.Logger) (*Adapter, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(int(poolSize))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Adapter{
		db:     db,
		path:   path,
		logger: logger.Named("sqlite"),
	}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// DB exposes the pool for fixtures and migrations.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Type implements datasource.Datasource.
func (a *Adapter) Type() string {
	return "sqlite"
}

// Ping implements datasource.Datasource.
func (a *Adapter) Ping(ctx context.Context) error {
	return datasource.PingSQL(ctx, a.db)
}

// Begin implements datasource.Datasource. Read-only sessions switch the
// connection to query_only for the lifetime of the transaction.
func (a *Adapter) Begin(ctx context.Context, opts datasource.SessionOptions) (datasource.Session, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sqlite transaction: %w", err)
	}

	sess := &Session{SQLSession: datasource.SQLSession{Tx: tx}, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		if _, err := tx.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("enable query_only: %w", err)
		}
	}
	return sess, nil
}

// Close implements datasource.Datasource.
func (a *Adapter) Close() error {
	return a.db.Close()
}
