package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLSession implements the transactional half of Session on a database/sql
// transaction. Adapters built on database/sql embed it and add their Catalog.
type SQLSession struct {
	Tx *sql.Tx
}

// Query runs sqlQuery inside the session transaction.
func (s *SQLSession) Query(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	rows, err := s.Tx.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows)
}

// Commit commits the session transaction.
func (s *SQLSession) Commit(_ context.Context) error {
	if err := s.Tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback rolls back the session transaction. Rolling back a finished
// transaction is not an error.
func (s *SQLSession) Rollback(_ context.Context) error {
	if err := s.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// ScanRows drains rows into a QueryResult. Byte slices are returned as strings
// so results serialise as text rather than base64.
func ScanRows(rows *sql.Rows) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([][]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// PingSQL runs SELECT 1 on a database/sql pool.
func PingSQL(ctx context.Context, db *sql.DB) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("SELECT 1 failed: %w", err)
	}
	return nil
}

// GroupColumns collects ordered (name, column) pairs into per-name column lists,
// preserving first-seen name order. Catalog queries return one row per key column.
func GroupColumns(pairs [][2]string) (names []string, columns map[string][]string) {
	columns = make(map[string][]string)
	for _, p := range pairs {
		if _, seen := columns[p[0]]; !seen {
			names = append(names, p[0])
		}
		columns[p[0]] = append(columns[p[0]], p[1])
	}
	return names, columns
}
