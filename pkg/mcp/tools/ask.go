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

// RegisterAskTool adds the natural-language question tool.
func RegisterAskTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"ask",
		mcp.WithDescription("Answers a natural-language question from the employee database, "+
			"the ingested documents, or both. Returns the query type, any SQL result "+
			"(with the generated query) and the matching document chunks."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("The question, e.g. 'How many employees are in Engineering?'"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return NewErrorResult(CodeInvalidParameters, err.Error()), nil
		}
		query = trimString(query)
		if query == "" {
			return NewErrorResult(CodeInvalidParameters, "parameter 'query' cannot be empty"), nil
		}

		var resp *models.QueryResponse
		err = database.WithSession(ctx, deps.Datasource, deps.SessionOptions, func(ctx context.Context, sess datasource.Session) error {
			var askErr error
			resp, askErr = deps.Engine.Ask(ctx, sess, query)
			return askErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to answer query: %w", err)
		}
		return jsonResult(resp)
	})
}
