// Package mysql is the MySQL datasource adapter, backed by go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Adapter is a pooled MySQL connection.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ datasource.Datasource = (*Adapter)(nil)

// Open opens the pool and pings the server.
func Open(ctx context.Context, cfg datasource.ConnectionConfig, logger *zap.Logger) (*Adapter, error) {
	logger = logger.Named("mysql")

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql config: %w", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(int(cfg.PoolSize))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	logger.Info("Connected to MySQL",
		zap.String("database", cfg.Database),
		zap.Int32("pool_size", cfg.PoolSize))

	return &Adapter{db: db, logger: logger}, nil
}

// Type implements datasource.Datasource.
func (a *Adapter) Type() string {
	return "mysql"
}

// Ping implements datasource.Datasource.
func (a *Adapter) Ping(ctx context.Context) error {
	return datasource.PingSQL(ctx, a.db)
}

// Begin implements datasource.Datasource. Read-only sessions use
// START TRANSACTION READ ONLY through database/sql.
func (a *Adapter) Begin(ctx context.Context, opts datasource.SessionOptions) (datasource.Session, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin mysql transaction: %w", err)
	}
	return &Session{SQLSession: datasource.SQLSession{Tx: tx}}, nil
}

// Close implements datasource.Datasource.
func (a *Adapter) Close() error {
	return a.db.Close()
}
