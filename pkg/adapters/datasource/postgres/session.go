package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Session is one pgx transaction. Catalog queries are scoped to current_schema().
type Session struct {
	tx pgx.Tx
}

var _ datasource.Session = (*Session)(nil)

// Query runs sqlQuery inside the transaction. pgx uses the extended protocol,
// so text holding more than one statement is rejected by the server.
func (s *Session) Query(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	rows, err := s.tx.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := &datasource.QueryResult{
		Columns: make([]string, len(fieldDescs)),
		Rows:    make([][]any, 0),
	}
	for i, fd := range fieldDescs {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// normalizeValue maps pgx decoded values onto JSON-friendly scalars.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// Commit implements datasource.Session.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback implements datasource.Session. Rolling back a closed transaction is not an error.
func (s *Session) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// TableNames implements datasource.Catalog.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := s.tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}
	return names, nil
}

// Columns implements datasource.Catalog. A column is flagged unique when a
// single-column unique index that is not the primary key covers it.
func (s *Session) Columns(ctx context.Context, table string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			COALESCE(uq.is_unique, false) AS is_unique,
			c.column_default
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT DISTINCT a.attname AS column_name, true AS is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique
			  AND NOT ix.indisprimary
			  AND n.nspname = current_schema()
			  AND t.relname = $1
			  AND ix.indnatts = 1
		) uq ON c.column_name = uq.column_name
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	rows, err := s.tx.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Unique, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

// PrimaryKey implements datasource.Catalog.
func (s *Session) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT a.attname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE ix.indisprimary
		  AND n.nspname = current_schema()
		  AND t.relname = $1
		ORDER BY k.ord
	`

	rows, err := s.tx.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query primary key: %w", err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan primary key: %w", err)
	}
	return cols, nil
}

// ForeignKeys implements datasource.Catalog.
func (s *Session) ForeignKeys(ctx context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	const query = `
		SELECT
			con.conname,
			ft.relname AS referred_table,
			a.attname AS constrained_column,
			fa.attname AS referred_column
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class ft ON ft.oid = con.confrelid
		JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
		WHERE con.contype = 'f'
		  AND n.nspname = current_schema()
		  AND t.relname = $1
		ORDER BY con.conname, k.ord
	`

	rows, err := s.tx.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name, referredTable, constrained, referred string
		if err := rows.Scan(&name, &referredTable, &constrained, &referred); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(fks)
			byName[name] = idx
			fks = append(fks, datasource.ForeignKeyMetadata{Name: name, ReferredTable: referredTable})
		}
		fks[idx].ConstrainedColumns = append(fks[idx].ConstrainedColumns, constrained)
		fks[idx].ReferredColumns = append(fks[idx].ReferredColumns, referred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}
	return fks, nil
}

// UniqueConstraints implements datasource.Catalog.
func (s *Session) UniqueConstraints(ctx context.Context, table string) ([]datasource.UniqueConstraintMetadata, error) {
	const query = `
		SELECT con.conname, a.attname
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		WHERE con.contype = 'u'
		  AND n.nspname = current_schema()
		  AND t.relname = $1
		ORDER BY con.conname, k.ord
	`

	pairs, err := s.namedColumns(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query unique constraints: %w", err)
	}

	names, cols := datasource.GroupColumns(pairs)
	out := make([]datasource.UniqueConstraintMetadata, 0, len(names))
	for _, name := range names {
		out = append(out, datasource.UniqueConstraintMetadata{Name: name, Columns: cols[name]})
	}
	return out, nil
}

// Indexes implements datasource.Catalog. Indexes backing a constraint are excluded.
func (s *Session) Indexes(ctx context.Context, table string) ([]datasource.IndexMetadata, error) {
	const query = `
		SELECT i.relname, ix.indisunique, a.attname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = current_schema()
		  AND t.relname = $1
		  AND NOT ix.indisprimary
		  AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid)
		ORDER BY i.relname, k.ord
	`

	rows, err := s.tx.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []datasource.IndexMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(indexes)
			byName[name] = idx
			indexes = append(indexes, datasource.IndexMetadata{Name: name, Unique: unique})
		}
		indexes[idx].Columns = append(indexes[idx].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexes: %w", err)
	}
	return indexes, nil
}

func (s *Session) namedColumns(ctx context.Context, query, table string) ([][2]string, error) {
	rows, err := s.tx.Query(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
