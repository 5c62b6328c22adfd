package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/services"
	"github.com/ekaya-inc/ekam-query/pkg/testhelpers"
)

// fakeEngine answers Ask and Schema from injected funcs.
type fakeEngine struct {
	askFunc    func(ctx context.Context, sess datasource.Session, query string) (*models.QueryResponse, error)
	schemaFunc func(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error)
	queries    []string
}

var _ services.QueryEngine = (*fakeEngine)(nil)

func (f *fakeEngine) Ask(ctx context.Context, sess datasource.Session, query string) (*models.QueryResponse, error) {
	f.queries = append(f.queries, query)
	return f.askFunc(ctx, sess, query)
}

func (f *fakeEngine) Schema(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error) {
	return f.schemaFunc(ctx, catalog)
}

func newToolServer(t *testing.T, engine services.QueryEngine) (*server.MCPServer, *Deps) {
	t.Helper()
	deps := &Deps{
		Engine:         engine,
		Datasource:     testhelpers.NewEmployeesDatasource(t),
		SessionOptions: datasource.SessionOptions{ReadOnly: true},
		Version:        "1.2.3",
		Logger:         zap.NewNop(),
	}
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAll(s, deps)
	return s, deps
}

type toolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	req, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": params})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), req))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected JSON-RPC error")
	require.Len(t, r.Result.Content, 1)
	return r.Result.Content[0].Text
}
