// Package postgres is the PostgreSQL datasource adapter, backed by pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

// Adapter provides PostgreSQL connectivity through a pgx pool.
type Adapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ datasource.Datasource = (*Adapter)(nil)

// Open creates the connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg datasource.ConnectionConfig, logger *zap.Logger) (*Adapter, error) {
	logger = logger.Named("postgres")

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.PoolSize
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)),
		zap.Int32("max_conns", poolConfig.MaxConns))

	return &Adapter{pool: pool, logger: logger}, nil
}

// Type implements datasource.Datasource.
func (a *Adapter) Type() string {
	return "postgres"
}

// Ping implements datasource.Datasource.
func (a *Adapter) Ping(ctx context.Context) error {
	var one int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("SELECT 1 failed: %w", err)
	}
	return nil
}

// Begin implements datasource.Datasource.
func (a *Adapter) Begin(ctx context.Context, opts datasource.SessionOptions) (datasource.Session, error) {
	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}

	tx, err := a.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("begin postgres transaction: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Close implements datasource.Datasource.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}
