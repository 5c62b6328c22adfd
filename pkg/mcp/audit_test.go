package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedToolLogger() (*ToolCallLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewToolCallLogger(zap.New(core)), recorded
}

func toolRequest(name string, args map[string]any) *mcplib.CallToolRequest {
	req := &mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestToolCallLogger_Duration(t *testing.T) {
	a, recorded := newObservedToolLogger()
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	current := start
	a.now = func() time.Time { return current }

	req := toolRequest("ask", map[string]any{"query": "List all employees"})
	a.beforeCallTool(context.Background(), 7, req)
	current = start.Add(250 * time.Millisecond)
	a.afterCallTool(context.Background(), 7, req, mcplib.NewToolResultText(`{"query_type":"SQL"}`))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ask", fields["tool"])
	assert.Equal(t, int64(250), fields["duration_ms"])
	assert.Equal(t, map[string]any{"query": "List all employees"}, fields["params"])

	_, pending := a.startTimes.Load(7)
	assert.False(t, pending, "start time is released after the call")
}

func TestToolCallLogger_ErrorResultIsWarning(t *testing.T) {
	a, recorded := newObservedToolLogger()
	req := toolRequest("ask", nil)

	a.afterCallTool(context.Background(), 1, req, &mcplib.CallToolResult{IsError: true})

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
}

func TestToolCallLogger_OnErrorIgnoresOtherMethods(t *testing.T) {
	a, recorded := newObservedToolLogger()

	a.onError(context.Background(), 1, mcplib.MethodToolsList, nil, assert.AnError)
	a.onError(context.Background(), 1, mcplib.MethodToolsCall, "not a request", assert.AnError)
	assert.Equal(t, 0, recorded.Len())

	a.onError(context.Background(), 1, mcplib.MethodToolsCall, toolRequest("get_schema", nil), assert.AnError)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
}

func TestSanitizeParams(t *testing.T) {
	long := strings.Repeat("x", maxParamSize+10)

	tests := []struct {
		name string
		in   any
		want map[string]any
	}{
		{"nil input", nil, nil},
		{"empty map", map[string]any{}, nil},
		{"not a map", "query", nil},
		{"natural language kept", map[string]any{"query": "What's Ada's salary?"}, map[string]any{"query": "What's Ada's salary?"}},
		{"sql literals redacted", map[string]any{"sql": "SELECT * FROM employees WHERE name = 'Ada'"},
			map[string]any{"sql": "SELECT * FROM employees WHERE name = '***'"}},
		{"escaped quotes redacted", map[string]any{"generated_sql": "SELECT 'it''s'"},
			map[string]any{"generated_sql": "SELECT '***'"}},
		{"non-strings preserved", map[string]any{"top_k": 5}, map[string]any{"top_k": 5}},
		{"nested maps", map[string]any{"filter": map[string]any{"sql": "x = 'y'"}},
			map[string]any{"filter": map[string]any{"sql": "x = '***'"}}},
		{"truncated", map[string]any{"query": long}, map[string]any{"query": long[:maxParamSize] + "...[truncated]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeParams(tt.in))
		})
	}
}

func TestSanitizeParams_HashesSensitiveKeys(t *testing.T) {
	got := sanitizeParams(map[string]any{"api_key": "sk-123", "Password": "hunter2", "name": "Ada"})

	assert.Equal(t, "Ada", got["name"])
	for _, key := range []string{"api_key", "Password"} {
		hashed, ok := got[key].(string)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(hashed, "sha256:"), hashed)
		assert.Len(t, hashed, len("sha256:")+16)
	}
	assert.Equal(t, hashSensitiveValue("sk-123"), got["api_key"], "hash is deterministic")
	assert.NotEqual(t, got["api_key"], got["Password"])
}

func TestSummarizeResult(t *testing.T) {
	assert.Nil(t, summarizeResult(nil))
	assert.Equal(t, map[string]any{"is_error": false}, summarizeResult(&mcplib.CallToolResult{}))

	got := summarizeResult(mcplib.NewToolResultText(strings.Repeat("a", 300)))
	assert.Equal(t, 1, got["content_count"])
	assert.Equal(t, strings.Repeat("a", 200)+"...[truncated]", got["preview"])
}
