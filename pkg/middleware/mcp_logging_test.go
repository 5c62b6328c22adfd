package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

func TestMCPRequestLogger(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantMessage string
		wantLevel   zapcore.Level
	}{
		{
			name:        "success",
			response:    `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`,
			wantMessage: "MCP response success",
			wantLevel:   zapcore.DebugLevel,
		},
		{
			name:        "tool error result",
			response:    `{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[]}}`,
			wantMessage: "MCP tool returned error result",
			wantLevel:   zapcore.DebugLevel,
		},
		{
			name:        "protocol error",
			response:    `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"unknown tool"}}`,
			wantMessage: "MCP response error",
			wantLevel:   zapcore.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)

			var bodySeen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				bodySeen = string(b)
				_, _ = w.Write([]byte(tt.response))
			})

			reqBody := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ask","arguments":{"query":"List all employees","api_key":"sk-123"}}}`
			req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(reqBody))
			rec := httptest.NewRecorder()
			MCPRequestLogger(zap.New(core))(next).ServeHTTP(rec, req)

			assert.Equal(t, reqBody, bodySeen, "body must be restored for the MCP server")
			assert.Equal(t, tt.response, rec.Body.String())

			require.Equal(t, 2, logs.Len())
			reqEntry := logs.All()[0]
			assert.Equal(t, "MCP request", reqEntry.Message)
			assert.Equal(t, "ask", reqEntry.ContextMap()["tool"])

			respEntry := logs.All()[1]
			assert.Equal(t, tt.wantMessage, respEntry.Message)
			assert.Equal(t, tt.wantLevel, respEntry.Level)
		})
	}
}

func TestSanitizeArguments(t *testing.T) {
	long := strings.Repeat("x", logging.MaxQueryLogLength+50)
	got := sanitizeArguments(map[string]any{
		"query":    "List   all\n employees",
		"api_key":  "sk-123",
		"password": "hunter2",
		"limit":    5,
		"long":     long,
	})

	assert.Equal(t, "List all employees", got["query"])
	assert.Equal(t, logging.RedactedText, got["api_key"])
	assert.Equal(t, logging.RedactedText, got["password"])
	assert.Equal(t, 5, got["limit"])
	assert.Len(t, got["long"], logging.MaxQueryLogLength+3)

	assert.Nil(t, sanitizeArguments(nil))
}
