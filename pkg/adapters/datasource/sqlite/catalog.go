package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// Session is one SQLite transaction with PRAGMA-based catalog access.
type Session struct {
	datasource.SQLSession
	readOnly bool
}

var _ datasource.Session = (*Session)(nil)

// Commit restores write access on the pooled connection before committing.
func (s *Session) Commit(ctx context.Context) error {
	s.restoreWrites(ctx)
	return s.SQLSession.Commit(ctx)
}

// Rollback restores write access on the pooled connection before rolling back.
func (s *Session) Rollback(ctx context.Context) error {
	s.restoreWrites(ctx)
	return s.SQLSession.Rollback(ctx)
}

func (s *Session) restoreWrites(ctx context.Context) {
	if s.readOnly {
		_, _ = s.Tx.ExecContext(ctx, "PRAGMA query_only = OFF")
	}
}

// TableNames implements datasource.Catalog.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.Tx.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// Columns implements datasource.Catalog.
func (s *Session) Columns(ctx context.Context, table string) ([]datasource.ColumnMetadata, error) {
	rows, err := s.pragma(ctx, "table_info", table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	columns := make([]datasource.ColumnMetadata, 0, len(rows))
	for _, r := range rows {
		col := datasource.ColumnMetadata{
			Name:     asString(r["name"]),
			DataType: asString(r["type"]),
			Nullable: asInt(r["notnull"]) == 0,
		}
		if r["dflt_value"] != nil {
			def := asString(r["dflt_value"])
			col.DefaultValue = &def
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// PrimaryKey implements datasource.Catalog.
func (s *Session) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pragma(ctx, "table_info", table)
	if err != nil {
		return nil, fmt.Errorf("query primary key: %w", err)
	}

	// pk holds the 1-based position within the key, 0 for non-key columns.
	ordered := make(map[int64]string)
	var maxPos int64
	for _, r := range rows {
		if pos := asInt(r["pk"]); pos > 0 {
			ordered[pos] = asString(r["name"])
			maxPos = max(maxPos, pos)
		}
	}

	pk := make([]string, 0, len(ordered))
	for i := int64(1); i <= maxPos; i++ {
		if name, ok := ordered[i]; ok {
			pk = append(pk, name)
		}
	}
	return pk, nil
}

// ForeignKeys implements datasource.Catalog. SQLite foreign keys are unnamed.
func (s *Session) ForeignKeys(ctx context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	rows, err := s.pragma(ctx, "foreign_key_list", table)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}

	byID := make(map[int64]*datasource.ForeignKeyMetadata)
	var order []int64
	for _, r := range rows {
		id := asInt(r["id"])
		fk, ok := byID[id]
		if !ok {
			fk = &datasource.ForeignKeyMetadata{ReferredTable: asString(r["table"])}
			byID[id] = fk
			order = append(order, id)
		}
		fk.ConstrainedColumns = append(fk.ConstrainedColumns, asString(r["from"]))
		fk.ReferredColumns = append(fk.ReferredColumns, asString(r["to"]))
	}

	// PRAGMA lists the most recently declared key first; report declaration order.
	fks := make([]datasource.ForeignKeyMetadata, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		fks = append(fks, *byID[order[i]])
	}
	return fks, nil
}

// UniqueConstraints implements datasource.Catalog.
func (s *Session) UniqueConstraints(ctx context.Context, table string) ([]datasource.UniqueConstraintMetadata, error) {
	indexes, err := s.indexList(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("query unique constraints: %w", err)
	}

	var out []datasource.UniqueConstraintMetadata
	for _, idx := range indexes {
		if idx.origin == "u" {
			out = append(out, datasource.UniqueConstraintMetadata{Name: idx.Name, Columns: idx.Columns})
		}
	}
	return out, nil
}

// Indexes implements datasource.Catalog. Only explicitly created indexes are
// reported; automatic indexes behind PRIMARY KEY and UNIQUE are skipped.
func (s *Session) Indexes(ctx context.Context, table string) ([]datasource.IndexMetadata, error) {
	indexes, err := s.indexList(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}

	var out []datasource.IndexMetadata
	for _, idx := range indexes {
		if idx.origin == "c" {
			out = append(out, idx.IndexMetadata)
		}
	}
	return out, nil
}

type sqliteIndex struct {
	datasource.IndexMetadata
	origin string
}

func (s *Session) indexList(ctx context.Context, table string) ([]sqliteIndex, error) {
	rows, err := s.pragma(ctx, "index_list", table)
	if err != nil {
		return nil, err
	}

	indexes := make([]sqliteIndex, 0, len(rows))
	for _, r := range rows {
		name := asString(r["name"])
		info, err := s.pragma(ctx, "index_info", name)
		if err != nil {
			return nil, fmt.Errorf("index_info %s: %w", name, err)
		}
		cols := make([]string, 0, len(info))
		for _, c := range info {
			cols = append(cols, asString(c["name"]))
		}
		indexes = append(indexes, sqliteIndex{
			IndexMetadata: datasource.IndexMetadata{
				Name:    name,
				Columns: cols,
				Unique:  asInt(r["unique"]) == 1,
			},
			origin: asString(r["origin"]),
		})
	}
	return indexes, nil
}

// pragma runs a table-valued PRAGMA and returns rows keyed by column name.
func (s *Session) pragma(ctx context.Context, name, arg string) ([]map[string]any, error) {
	rows, err := s.Tx.QueryContext(ctx, fmt.Sprintf("PRAGMA %s(%s)", name, quoteIdent(arg)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := datasource.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		m := make(map[string]any, len(row))
		for i, col := range result.Columns {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case sql.NullString:
		return t.String
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}
