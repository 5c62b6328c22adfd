package models

// SchemaDescription is a snapshot of the queried database's structure.
// It is rebuilt from live metadata on every request that needs it.
type SchemaDescription struct {
	TotalTables int         `json:"total_tables" yaml:"total_tables"`
	Tables      []TableInfo `json:"tables" yaml:"tables"`
}

// TableInfo describes one table in discovery order.
type TableInfo struct {
	Name        string           `json:"name" yaml:"name"`
	Columns     []ColumnInfo     `json:"columns" yaml:"columns"`
	Constraints []ConstraintInfo `json:"constraints" yaml:"constraints"`
	Indexes     []IndexInfo      `json:"indexes" yaml:"indexes"`
}

// ColumnInfo describes one column.
// ForeignKey is rendered as "<table>.<column>" when the column is constrained.
type ColumnInfo struct {
	Name         string  `json:"name" yaml:"name"`
	Type         string  `json:"type" yaml:"type"`
	Nullable     bool    `json:"nullable" yaml:"nullable"`
	IsPrimaryKey bool    `json:"is_primary_key" yaml:"is_primary_key"`
	IsUnique     bool    `json:"is_unique" yaml:"is_unique"`
	ForeignKey   *string `json:"foreign_key" yaml:"foreign_key,omitempty"`
	DefaultValue any     `json:"default_value" yaml:"default_value,omitempty"`
}

// ConstraintInfo describes a table-level constraint.
type ConstraintInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Type    string   `json:"type" yaml:"type"`
	Columns []string `json:"columns" yaml:"columns"`
}

// IndexInfo describes a secondary index.
type IndexInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Columns  []string `json:"columns" yaml:"columns"`
	IsUnique bool     `json:"is_unique" yaml:"is_unique"`
}

// ConstraintTypeUnique is the constraint type reported for unique constraints.
const ConstraintTypeUnique = "UNIQUE"
