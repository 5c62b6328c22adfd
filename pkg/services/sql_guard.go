package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/audit"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekam-query/pkg/sql"
)

// Markers written into SQLResult.GeneratedQuery and the error column.
const (
	BlockedPrefix        = "BLOCKED: "
	GenerationFailed     = "Failed"
	ErrorColumn          = "Error"
	generationErrorLabel = "SQL Generation Error: "
	executionErrorLabel  = "SQL Execution Error: "
	emptyCandidate       = "Empty"
)

// Block reasons recorded by the security auditor.
const (
	reasonNotSelect          = "not_select"
	reasonMultipleStatements = "multiple_statements"
	reasonModifyingCTE       = "modifying_cte"
	reasonStatementType      = "statement_type"
)

// SQLGuard turns a question into SQL, refuses anything that is not a SELECT,
// and runs what passes.
type SQLGuard interface {
	// GenerateAndExecute never returns an error: generation and execution
	// failures are reported in-band in the returned SQLResult.
	GenerateAndExecute(ctx context.Context, executor datasource.QueryExecutor, query, schemaPrompt string) *models.SQLResult
}

// SQLGuardOptions configures optional hardening.
type SQLGuardOptions struct {
	// Strict additionally blocks multiple statements, data-modifying CTEs and
	// non-SELECT statement types after the prefix gate.
	Strict bool
}

type sqlGuard struct {
	generator llm.SQLGenerator
	auditor   *audit.SecurityAuditor
	opts      SQLGuardOptions
	logger    *zap.Logger
}

var _ SQLGuard = (*sqlGuard)(nil)

// NewSQLGuard creates a guard that asks generator for SQL. A nil auditor
// disables security event logging.
func NewSQLGuard(generator llm.SQLGenerator, auditor *audit.SecurityAuditor, opts SQLGuardOptions, logger *zap.Logger) SQLGuard {
	return &sqlGuard{
		generator: generator,
		auditor:   auditor,
		opts:      opts,
		logger:    logger.Named("sql_guard"),
	}
}

// BuildSQLPrompt is the text given to the SQL generator.
func BuildSQLPrompt(schemaPrompt, query string) string {
	return "Tables:\n" + schemaPrompt + "\n\nQuery: " + query
}

func (g *sqlGuard) GenerateAndExecute(ctx context.Context, executor datasource.QueryExecutor, query, schemaPrompt string) *models.SQLResult {
	candidate, err := g.generator.Generate(ctx, BuildSQLPrompt(schemaPrompt, query))
	if err != nil {
		g.logger.Error("SQL generation failed", zap.Error(err))
		return errorResult(generationErrorLabel+err.Error(), GenerationFailed)
	}
	candidate = strings.TrimSpace(candidate)

	g.logger.Debug("Generated SQL", zap.String("sql", logging.SanitizeQuery(candidate)))

	executable, reason := g.check(candidate)
	if reason != "" {
		return g.block(ctx, query, candidate, reason)
	}

	result, err := executor.Query(ctx, executable)
	if err != nil {
		g.logger.Error("Generated SQL failed to execute",
			zap.String("sql", logging.SanitizeQuery(executable)),
			zap.String("error", logging.SanitizeError(err)))
		return errorResult(executionErrorLabel+err.Error(), executable)
	}

	if g.auditor != nil {
		g.auditor.LogExecutedSQL(ctx, audit.ExecutedSQLDetails{
			Query:        query,
			GeneratedSQL: executable,
			RowCount:     len(result.Rows),
		})
	}

	columns := result.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return &models.SQLResult{
		Columns:        columns,
		Rows:           rows,
		GeneratedQuery: executable,
	}
}

// check returns the text to execute, or a non-empty block reason.
func (g *sqlGuard) check(candidate string) (string, string) {
	if !strings.HasPrefix(strings.ToUpper(candidate), "SELECT") {
		return "", reasonNotSelect
	}
	if !g.opts.Strict {
		return candidate, ""
	}

	validated := sqlcheck.ValidateAndNormalize(candidate)
	if validated.Error != nil {
		return "", reasonMultipleStatements
	}
	if sqlcheck.ContainsModifyingCTE(validated.NormalizedSQL) {
		return "", reasonModifyingCTE
	}
	if !sqlcheck.IsReadOnly(sqlcheck.DetectStatementType(validated.NormalizedSQL)) {
		return "", reasonStatementType
	}
	return validated.NormalizedSQL, ""
}

func (g *sqlGuard) block(ctx context.Context, query, candidate, reason string) *models.SQLResult {
	if g.auditor != nil {
		g.auditor.LogBlockedSQL(ctx, audit.BlockedSQLDetails{
			Query:        query,
			GeneratedSQL: candidate,
			Reason:       reason,
		})
	}

	shown := candidate
	if shown == "" {
		shown = emptyCandidate
	}
	return &models.SQLResult{
		Columns:        []string{},
		Rows:           [][]any{},
		GeneratedQuery: BlockedPrefix + shown,
	}
}

func errorResult(message, generatedQuery string) *models.SQLResult {
	return &models.SQLResult{
		Columns:        []string{ErrorColumn},
		Rows:           [][]any{{message}},
		GeneratedQuery: generatedQuery,
	}
}
