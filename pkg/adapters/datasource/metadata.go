package datasource

// ColumnMetadata represents a discovered database column.
type ColumnMetadata struct {
	Name     string
	DataType string
	Nullable bool
	// Unique is the adapter's own per-column unique flag, when the catalog exposes one.
	Unique       bool
	DefaultValue *string
}

// ForeignKeyMetadata represents one foreign key constraint.
// Constrained and referred columns are positionally paired.
type ForeignKeyMetadata struct {
	Name               string
	ConstrainedColumns []string
	ReferredTable      string
	ReferredColumns    []string
}

// UniqueConstraintMetadata represents a declared unique constraint.
type UniqueConstraintMetadata struct {
	Name    string
	Columns []string
}

// IndexMetadata represents a secondary index.
type IndexMetadata struct {
	Name    string
	Columns []string
	Unique  bool
}

// QueryResult contains the rows of an executed statement, positionally aligned with Columns.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}
