package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Session is a SQL Server transaction. Catalog queries resolve tables in the
// caller's default schema.
type Session struct {
	datasource.SQLSession
}

var _ datasource.Session = (*Session)(nil)

// objectIDExpr resolves @table in the default schema with QUOTENAME so odd
// identifiers cannot break out of the lookup.
const objectIDExpr = `OBJECT_ID(QUOTENAME(SCHEMA_NAME()) + N'.' + QUOTENAME(@table))`

// TableNames implements datasource.Catalog.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	const query = `
	SELECT t.name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	  AND t.schema_id = SCHEMA_ID()
	ORDER BY t.name
	`

	rows, err := s.Tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return names, nil
}

// Columns implements datasource.Catalog. Unique is set for columns covered by a
// single-column unique index that is not the primary key.
func (s *Session) Columns(ctx context.Context, table string) ([]datasource.ColumnMetadata, error) {
	query := `
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN uq.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_unique,
	    dc.definition AS default_value
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_unique = 1 AND i.is_primary_key = 0
	      AND (SELECT COUNT(*) FROM sys.index_columns x
	           WHERE x.object_id = i.object_id AND x.index_id = i.index_id AND x.is_included_column = 0) = 1
	) uq ON c.object_id = uq.object_id AND c.column_id = uq.column_id
	WHERE c.object_id = ` + objectIDExpr + `
	ORDER BY c.column_id
	`

	rows, err := s.Tx.QueryContext(ctx, query, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var col datasource.ColumnMetadata
		var isNullable, isUnique int
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &isNullable, &isUnique, &def); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col.Nullable = isNullable == 1
		col.Unique = isUnique == 1
		if def.Valid {
			col.DefaultValue = &def.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return columns, nil
}

// PrimaryKey implements datasource.Catalog.
func (s *Session) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	query := `
	SELECT c.name
	FROM sys.indexes i
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.is_primary_key = 1
	  AND i.object_id = ` + objectIDExpr + `
	ORDER BY ic.key_ordinal
	`

	rows, err := s.Tx.QueryContext(ctx, query, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query primary key: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan primary key row: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary key rows: %w", err)
	}
	return cols, nil
}

// ForeignKeys implements datasource.Catalog.
func (s *Session) ForeignKeys(ctx context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	query := `
	SELECT
	    fk.name AS constraint_name,
	    OBJECT_NAME(fk.referenced_object_id) AS referred_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS constrained_column,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS referred_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	WHERE fk.parent_object_id = ` + objectIDExpr + `
	ORDER BY fk.name, fkc.constraint_column_id
	`

	rows, err := s.Tx.QueryContext(ctx, query, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name, referredTable, constrained, referred string
		if err := rows.Scan(&name, &referredTable, &constrained, &referred); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
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
		return nil, fmt.Errorf("iterate foreign key rows: %w", err)
	}
	return fks, nil
}

// UniqueConstraints implements datasource.Catalog.
func (s *Session) UniqueConstraints(ctx context.Context, table string) ([]datasource.UniqueConstraintMetadata, error) {
	query := `
	SELECT i.name, c.name
	FROM sys.indexes i
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.is_unique_constraint = 1
	  AND i.object_id = ` + objectIDExpr + `
	ORDER BY i.name, ic.key_ordinal
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

// Indexes implements datasource.Catalog. Primary keys and unique constraints are excluded.
func (s *Session) Indexes(ctx context.Context, table string) ([]datasource.IndexMetadata, error) {
	query := `
	SELECT i.name, CASE WHEN i.is_unique = 1 THEN 1 ELSE 0 END, c.name
	FROM sys.indexes i
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.is_primary_key = 0
	  AND i.is_unique_constraint = 0
	  AND i.type > 0
	  AND ic.is_included_column = 0
	  AND i.object_id = ` + objectIDExpr + `
	ORDER BY i.name, ic.key_ordinal
	`

	rows, err := s.Tx.QueryContext(ctx, query, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []datasource.IndexMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		var unique int
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(indexes)
			byName[name] = idx
			indexes = append(indexes, datasource.IndexMetadata{Name: name, Unique: unique == 1})
		}
		indexes[idx].Columns = append(indexes[idx].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}
	return indexes, nil
}

func (s *Session) namedColumns(ctx context.Context, query, table string) ([][2]string, error) {
	rows, err := s.Tx.QueryContext(ctx, query, sql.Named("table", table))
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
