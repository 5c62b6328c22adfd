package sql

import (
	"regexp"
	"strings"
)

// StatementType is the kind of SQL statement, judged by its leading keyword.
type StatementType string

const (
	TypeSelect      StatementType = "SELECT"
	TypeInsert      StatementType = "INSERT"
	TypeUpdate      StatementType = "UPDATE"
	TypeDelete      StatementType = "DELETE"
	TypeMerge       StatementType = "MERGE"
	TypeCall        StatementType = "CALL"
	TypeDDL         StatementType = "DDL"         // CREATE, ALTER, DROP, TRUNCATE, RENAME
	TypeTransaction StatementType = "TRANSACTION" // BEGIN, COMMIT, ROLLBACK, SAVEPOINT
	TypeUnknown     StatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH gone AS (DELETE FROM employees RETURNING *) SELECT * FROM gone
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*(?:NOT\s+)?(?:MATERIALIZED\s*)?\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

var leadingKeywords = []struct {
	prefix string
	kind   StatementType
}{
	{"SELECT", TypeSelect},
	{"INSERT", TypeInsert},
	{"UPDATE", TypeUpdate},
	{"DELETE", TypeDelete},
	{"MERGE", TypeMerge},
	{"CALL", TypeCall},
	{"EXEC", TypeCall},
	{"CREATE", TypeDDL},
	{"ALTER", TypeDDL},
	{"DROP", TypeDDL},
	{"TRUNCATE", TypeDDL},
	{"RENAME", TypeDDL},
	{"BEGIN", TypeTransaction},
	{"COMMIT", TypeTransaction},
	{"ROLLBACK", TypeTransaction},
	{"SAVEPOINT", TypeTransaction},
}

// DetectStatementType classifies a statement by its first keyword. A WITH
// query is a SELECT unless one of its CTEs modifies data, in which case it is
// TypeUnknown.
func DetectStatementType(sqlQuery string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sqlQuery))

	if strings.HasPrefix(normalized, "WITH") {
		if ContainsModifyingCTE(sqlQuery) {
			return TypeUnknown
		}
		return TypeSelect
	}

	for _, kw := range leadingKeywords {
		if strings.HasPrefix(normalized, kw.prefix) {
			return kw.kind
		}
	}
	return TypeUnknown
}

// ContainsModifyingCTE reports whether a WITH clause embeds INSERT, UPDATE,
// DELETE or MERGE.
func ContainsModifyingCTE(sqlQuery string) bool {
	return modifyingCTEPattern.MatchString(sqlQuery)
}

// IsReadOnly reports whether a statement type cannot change data or schema.
func IsReadOnly(t StatementType) bool {
	return t == TypeSelect
}
