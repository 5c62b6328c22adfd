package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// RegisterSchemaTool adds the live schema tool.
func RegisterSchemaTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription("Returns the live database schema: tables, columns, keys, unique constraints and indexes"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var desc *models.SchemaDescription
		err := database.WithSession(ctx, deps.Datasource, deps.SessionOptions, func(ctx context.Context, sess datasource.Session) error {
			var schemaErr error
			desc, schemaErr = deps.Engine.Schema(ctx, sess)
			return schemaErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		if desc.TotalTables == 0 {
			return NewErrorResult(CodeSchemaEmpty, "no tables found in the database"), nil
		}
		return jsonResult(desc)
	})
}
