// Package datasource defines the contract between the query engine and the
// relational database being queried. Adapters register themselves from init().
package datasource

import "context"

// Datasource is an open connection pool to the queried database.
type Datasource interface {
	// Type returns the registered adapter type, e.g. "postgres".
	Type() string

	// Ping runs SELECT 1 against the database.
	Ping(ctx context.Context) error

	// Begin opens a request-scoped session. The caller must end it with
	// exactly one of Commit or Rollback.
	Begin(ctx context.Context, opts SessionOptions) (Session, error)

	// Close releases the pool.
	Close() error
}

// SessionOptions configures a session transaction.
type SessionOptions struct {
	// ReadOnly asks the database to reject writes for the session.
	// Adapters that cannot enforce it ignore the flag.
	ReadOnly bool
}

// QueryExecutor runs raw SQL text and returns every row.
type QueryExecutor interface {
	Query(ctx context.Context, sqlQuery string) (*QueryResult, error)
}

// Catalog exposes the live structural metadata of the database, one table at a time.
type Catalog interface {
	// TableNames returns user tables in a stable order.
	TableNames(ctx context.Context) ([]string, error)

	// Columns returns the table's columns in ordinal order.
	Columns(ctx context.Context, table string) ([]ColumnMetadata, error)

	// PrimaryKey returns the columns of the table's primary key (empty if none).
	PrimaryKey(ctx context.Context, table string) ([]string, error)

	// ForeignKeys returns the table's outgoing foreign keys.
	ForeignKeys(ctx context.Context, table string) ([]ForeignKeyMetadata, error)

	// UniqueConstraints returns declared unique constraints.
	UniqueConstraints(ctx context.Context, table string) ([]UniqueConstraintMetadata, error)

	// Indexes returns secondary indexes that do not back a primary key or unique constraint.
	Indexes(ctx context.Context, table string) ([]IndexMetadata, error)
}

// Session is a single transaction on one connection.
type Session interface {
	QueryExecutor
	Catalog

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
