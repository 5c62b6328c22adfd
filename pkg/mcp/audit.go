package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolCallLogger writes one structured log line per MCP tool call.
type ToolCallLogger struct {
	logger *zap.Logger
	now    func() time.Time

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolCallLogger creates a ToolCallLogger.
func NewToolCallLogger(logger *zap.Logger) *ToolCallLogger {
	return &ToolCallLogger{
		logger: logger.Named("mcp-audit"),
		now:    time.Now,
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolCallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolCallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, a.now())
}

func (a *ToolCallLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := a.fields(id, req)
	fields = append(fields, zap.Any("result", summarizeResult(result)))

	if result != nil && result.IsError {
		a.logger.Warn("MCP tool call returned an error result", fields...)
		return
	}
	a.logger.Info("MCP tool call", fields...)
}

func (a *ToolCallLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	fields := a.fields(id, req)
	fields = append(fields, zap.String("error", err.Error()))
	a.logger.Error("MCP tool call failed", fields...)
}

func (a *ToolCallLogger) fields(id any, req *mcplib.CallToolRequest) []zap.Field {
	start := a.now()
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}
	return []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Any("params", sanitizeParams(req.Params.Arguments)),
		zap.Int64("duration_ms", a.now().Sub(start).Milliseconds()),
	}
}

// maxParamSize is the maximum size of string parameters written to the log.
const maxParamSize = 10240 // 10KB

// sqlStringLiteralPattern matches SQL string literals: 'value', 'it''s escaped', etc.
var sqlStringLiteralPattern = regexp.MustCompile(`'(?:[^']*(?:'')?)*[^']*'`)

// sensitiveKeyParts flags parameter keys whose values are hashed instead of logged.
var sensitiveKeyParts = []string{"password", "secret", "token", "api_key", "apikey", "credential"}

// sanitizeParams sanitizes request parameters before logging.
// Applies: truncation, SQL string literal redaction, sensitive value hashing.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if isSensitiveKey(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		return sanitizeStringParam(key, val)
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

func sanitizeStringParam(key string, val string) string {
	if len(val) > maxParamSize {
		val = val[:maxParamSize] + "...[truncated]"
	}
	if isSQLParam(key) {
		val = redactSQLStringLiterals(val)
	}
	return val
}

// isSQLParam returns true if a parameter key carries raw SQL. Natural-language
// "query" arguments are logged as-is.
func isSQLParam(key string) bool {
	lower := strings.ToLower(key)
	return lower == "sql" || strings.HasSuffix(lower, "_sql")
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// redactSQLStringLiterals replaces string literal values in SQL with '***',
// preserving the query structure for debugging.
func redactSQLStringLiterals(sql string) string {
	return sqlStringLiteralPattern.ReplaceAllString(sql, "'***'")
}

// hashSensitiveValue returns a SHA-256 hash prefix, allowing correlation
// across log entries without writing the value.
func hashSensitiveValue(value any) string {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		str = fmt.Sprintf("%v", v)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}
	if len(result.Content) == 0 {
		return summary
	}

	summary["content_count"] = len(result.Content)
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			text := tc.Text
			if len(text) > 200 {
				text = text[:200] + "...[truncated]"
			}
			summary["preview"] = text
			break
		}
	}
	return summary
}
