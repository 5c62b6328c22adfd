// Package tools registers the read-only MCP tools that expose the query engine.
package tools

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/services"
)

// Deps holds what the tools need. Each tool call that touches the database
// opens its own session with SessionOptions.
type Deps struct {
	Engine         services.QueryEngine
	Datasource     datasource.Datasource
	SessionOptions datasource.SessionOptions
	Version        string
	Logger         *zap.Logger
}

// RegisterAll adds every tool to s.
func RegisterAll(s *server.MCPServer, deps *Deps) {
	RegisterHealthTool(s, deps)
	RegisterAskTool(s, deps)
	RegisterSchemaTool(s, deps)
}
