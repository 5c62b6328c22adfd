package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Error codes returned in structured tool errors.
const (
	CodeInvalidParameters = "invalid_parameters"
	CodeSchemaEmpty       = "schema_empty"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a successful tool result so the client sees the details
// instead of a bare protocol error.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on, such as a missing argument.
// System failures (database down, classifier unavailable) return Go errors.
//
// Example:
//
//	if query == "" {
//	    return NewErrorResult(CodeInvalidParameters, "parameter 'query' cannot be empty"), nil
//	}
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}
