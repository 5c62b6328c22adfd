package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Session is a MySQL transaction. Catalog queries are scoped to DATABASE().
type Session struct {
	datasource.SQLSession
}

var _ datasource.Session = (*Session)(nil)

// TableNames implements datasource.Catalog.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	const query = `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`
	names, err := s.strings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	return names, nil
}

// Columns implements datasource.Catalog. COLUMN_KEY 'UNI' marks a column that
// leads a single-column unique index.
func (s *Session) Columns(ctx context.Context, table string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_KEY,
			COLUMN_DEFAULT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := s.Tx.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var col datasource.ColumnMetadata
		var nullable, key string
		var defaultValue sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &key, &defaultValue); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.Unique = strings.EqualFold(key, "UNI")
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// PrimaryKey implements datasource.Catalog.
func (s *Session) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = 'PRIMARY'
		ORDER BY SEQ_IN_INDEX
	`
	cols, err := s.strings(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	return cols, nil
}

// ForeignKeys implements datasource.Catalog.
func (s *Session) ForeignKeys(ctx context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	const query = `
		SELECT
			CONSTRAINT_NAME,
			COLUMN_NAME,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION
	`
	rows, err := s.Tx.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(fks)
			byName[name] = idx
			fks = append(fks, datasource.ForeignKeyMetadata{Name: name, ReferredTable: refTable})
		}
		fks[idx].ConstrainedColumns = append(fks[idx].ConstrainedColumns, column)
		fks[idx].ReferredColumns = append(fks[idx].ReferredColumns, refColumn)
	}
	return fks, rows.Err()
}

// UniqueConstraints implements datasource.Catalog.
func (s *Session) UniqueConstraints(ctx context.Context, table string) ([]datasource.UniqueConstraintMetadata, error) {
	const query = `
		SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE k
			ON k.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND k.TABLE_NAME = tc.TABLE_NAME
			AND k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = DATABASE() AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = 'UNIQUE'
		ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION
	`
	rows, err := s.Tx.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique constraints: %w", err)
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names, cols := datasource.GroupColumns(pairs)
	out := make([]datasource.UniqueConstraintMetadata, 0, len(names))
	for _, name := range names {
		out = append(out, datasource.UniqueConstraintMetadata{Name: name, Columns: cols[name]})
	}
	return out, nil
}

// Indexes implements datasource.Catalog. MySQL backs every key constraint with
// an index of the same name; those are excluded.
func (s *Session) Indexes(ctx context.Context, table string) ([]datasource.IndexMetadata, error) {
	const query = `
		SELECT st.INDEX_NAME, st.COLUMN_NAME, st.NON_UNIQUE
		FROM information_schema.STATISTICS st
		WHERE st.TABLE_SCHEMA = DATABASE() AND st.TABLE_NAME = ?
		  AND st.INDEX_NAME <> 'PRIMARY'
		  AND NOT EXISTS (
			SELECT 1 FROM information_schema.TABLE_CONSTRAINTS tc
			WHERE tc.TABLE_SCHEMA = st.TABLE_SCHEMA
			  AND tc.TABLE_NAME = st.TABLE_NAME
			  AND tc.CONSTRAINT_NAME = st.INDEX_NAME
		  )
		ORDER BY st.INDEX_NAME, st.SEQ_IN_INDEX
	`
	rows, err := s.Tx.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	defer rows.Close()

	var indexes []datasource.IndexMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name string
		var column sql.NullString
		var nonUnique int
		if err := rows.Scan(&name, &column, &nonUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		// Functional key parts have no column name.
		if !column.Valid {
			continue
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(indexes)
			byName[name] = idx
			indexes = append(indexes, datasource.IndexMetadata{Name: name, Unique: nonUnique == 0})
		}
		indexes[idx].Columns = append(indexes[idx].Columns, column.String)
	}
	return indexes, rows.Err()
}

func (s *Session) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.Tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
