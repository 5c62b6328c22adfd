package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/mcp"
	"github.com/ekaya-inc/ekam-query/pkg/mcp/tools"
	"github.com/ekaya-inc/ekam-query/pkg/testhelpers"
)

func newMCPMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mcpServer := mcp.NewQueryServer("Ekam-Query", &tools.Deps{
		Datasource: testhelpers.NewEmployeesDatasource(t),
		Version:    "1.4.0",
		Logger:     zap.NewNop(),
	})
	mux := http.NewServeMux()
	NewMCPHandler(mcpServer, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestMCPHandler_RejectsNonPOST(t *testing.T) {
	mux := newMCPMux(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, "/mcp", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "POST", rec.Header().Get("Allow"))
	}
}

func TestMCPHandler_CallsHealthTool(t *testing.T) {
	mux := newMCPMux(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"health"}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Content, 1)
	assert.JSONEq(t, `{"status":"ok","database":"connected","version":"1.4.0"}`, resp.Result.Content[0].Text)
}
