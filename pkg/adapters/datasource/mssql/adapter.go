// Package mssql is the SQL Server datasource adapter, backed by go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

// Adapter provides SQL Server connectivity with SQL authentication.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ datasource.Datasource = (*Adapter)(nil)

// Open opens the pool and tests the connection immediately.
func Open(ctx context.Context, cfg datasource.ConnectionConfig, logger *zap.Logger) (*Adapter, error) {
	logger = logger.Named("mssql")

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(int(cfg.PoolSize))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	logger.Info("Connected to SQL Server",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)))

	return &Adapter{db: db, logger: logger}, nil
}

// Type implements datasource.Datasource.
func (a *Adapter) Type() string {
	return "sqlserver"
}

// Ping implements datasource.Datasource.
func (a *Adapter) Ping(ctx context.Context) error {
	return datasource.PingSQL(ctx, a.db)
}

// Begin implements datasource.Datasource. SQL Server has no read-only
// transaction mode, so opts.ReadOnly is not enforced here.
func (a *Adapter) Begin(ctx context.Context, opts datasource.SessionOptions) (datasource.Session, error) {
	if opts.ReadOnly {
		a.logger.Debug("Read-only sessions are not enforced by SQL Server; relying on the SQL guard")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sqlserver transaction: %w", err)
	}
	return &Session{SQLSession: datasource.SQLSession{Tx: tx}}, nil
}

// Close implements datasource.Datasource.
func (a *Adapter) Close() error {
	return a.db.Close()
}
