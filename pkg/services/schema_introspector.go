package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/apperrors"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// SchemaIntrospector reads the live structure of the queried database.
type SchemaIntrospector interface {
	// Discover builds a fresh SchemaDescription from the catalog. Nothing is
	// cached between calls. Any metadata failure is wrapped in
	// apperrors.ErrSchemaDiscovery.
	Discover(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error)
}

type schemaIntrospector struct {
	logger *zap.Logger
}

var _ SchemaIntrospector = (*schemaIntrospector)(nil)

// NewSchemaIntrospector creates a schema introspector.
func NewSchemaIntrospector(logger *zap.Logger) SchemaIntrospector {
	return &schemaIntrospector{
		logger: logger.Named("schema"),
	}
}

func (s *schemaIntrospector) Discover(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error) {
	names, err := catalog.TableNames(ctx)
	if err != nil {
		return nil, s.fail("", err)
	}

	tables := make([]models.TableInfo, 0, len(names))
	for _, name := range names {
		table, err := s.describeTable(ctx, catalog, name)
		if err != nil {
			return nil, s.fail(name, err)
		}
		tables = append(tables, *table)
	}

	s.logger.Debug("Discovered schema", zap.Int("tables", len(tables)))

	return &models.SchemaDescription{
		TotalTables: len(tables),
		Tables:      tables,
	}, nil
}

func (s *schemaIntrospector) fail(table string, err error) error {
	s.logger.Error("Schema discovery failed", zap.String("table", table), zap.Error(err))
	if table == "" {
		return fmt.Errorf("%w: list tables: %w", apperrors.ErrSchemaDiscovery, err)
	}
	return fmt.Errorf("%w: table %s: %w", apperrors.ErrSchemaDiscovery, table, err)
}

func (s *schemaIntrospector) describeTable(ctx context.Context, catalog datasource.Catalog, name string) (*models.TableInfo, error) {
	columns, err := catalog.Columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	pk, err := catalog.PrimaryKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}
	fks, err := catalog.ForeignKeys(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}
	uniques, err := catalog.UniqueConstraints(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unique constraints: %w", err)
	}
	indexes, err := catalog.Indexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}

	pkSet := make(map[string]bool, len(pk))
	for _, col := range pk {
		pkSet[col] = true
	}

	// Only single-column constraints make an individual column unique.
	uniqueCols := make(map[string]bool)
	for _, uc := range uniques {
		if len(uc.Columns) == 1 {
			uniqueCols[uc.Columns[0]] = true
		}
	}

	table := &models.TableInfo{
		Name:        name,
		Columns:     make([]models.ColumnInfo, 0, len(columns)),
		Constraints: make([]models.ConstraintInfo, 0, len(uniques)),
		Indexes:     make([]models.IndexInfo, 0, len(indexes)),
	}

	for _, col := range columns {
		info := models.ColumnInfo{
			Name:         col.Name,
			Type:         col.DataType,
			Nullable:     col.Nullable,
			IsPrimaryKey: pkSet[col.Name],
			IsUnique:     col.Unique || uniqueCols[col.Name],
			ForeignKey:   findForeignKey(col.Name, fks),
		}
		if col.DefaultValue != nil {
			info.DefaultValue = *col.DefaultValue
		}
		table.Columns = append(table.Columns, info)
	}

	for _, uc := range uniques {
		table.Constraints = append(table.Constraints, models.ConstraintInfo{
			Name:    uc.Name,
			Type:    models.ConstraintTypeUnique,
			Columns: uc.Columns,
		})
	}

	for _, idx := range indexes {
		table.Indexes = append(table.Indexes, models.IndexInfo{
			Name:     idx.Name,
			Columns:  idx.Columns,
			IsUnique: idx.Unique,
		})
	}

	return table, nil
}

// findForeignKey returns "<table>.<column>" for the first foreign key that
// constrains col. Composite keys report their first referred column.
func findForeignKey(col string, fks []datasource.ForeignKeyMetadata) *string {
	for _, fk := range fks {
		for _, c := range fk.ConstrainedColumns {
			if c != col {
				continue
			}
			ref := fk.ReferredTable
			if len(fk.ReferredColumns) > 0 {
				ref += "." + fk.ReferredColumns[0]
			}
			return &ref
		}
	}
	return nil
}

// BuildSchemaPrompt renders the schema as the table listing given to the SQL
// generator:
//
//	Table employees(
//	  id (INTEGER),
//	  name (TEXT)
//	)
func BuildSchemaPrompt(desc *models.SchemaDescription) string {
	if desc == nil {
		return ""
	}

	var sb strings.Builder
	for _, table := range desc.Tables {
		sb.WriteString("Table ")
		sb.WriteString(table.Name)
		sb.WriteString("(\n")
		for i, col := range table.Columns {
			if i > 0 {
				sb.WriteString(",\n")
			}
			fmt.Fprintf(&sb, "  %s (%s)", col.Name, col.Type)
		}
		sb.WriteString("\n)\n")
	}
	return sb.String()
}
