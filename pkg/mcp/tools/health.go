package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

type healthResult struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool pings the datasource and reports the server version.
func RegisterHealthTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, database connectivity and version"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Database: "connected", Version: deps.Version}
		if err := deps.Datasource.Ping(ctx); err != nil {
			deps.Logger.Warn("Health tool: database ping failed", zap.String("error", logging.SanitizeError(err)))
			result.Status = "degraded"
			result.Database = "disconnected"
		}
		return jsonResult(result)
	})
}
