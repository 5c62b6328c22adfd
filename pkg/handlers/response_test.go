package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekam-query/pkg/models"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad request", http.StatusBadRequest, "invalid_request", "Query cannot be empty."},
		{"not found", http.StatusNotFound, "not_found", "No tables found in the database."},
		{"internal error", http.StatusInternalServerError, "internal_error", queryFailedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			require.NoError(t, ErrorResponse(w, tt.statusCode, tt.errorCode, tt.message))

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, map[string]string{"error": tt.errorCode, "message": tt.message}, body)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteJSON(w, http.StatusOK, map[string]string{"key": "value"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"value"}`, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, WriteJSON(w, http.StatusServiceUnavailable, map[string]int{"count": 5}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Error(t, WriteJSON(httptest.NewRecorder(), http.StatusOK, make(chan int)))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"query":"List all employees"}`, ""},
		{"empty body", ``, "request body is empty"},
		{"malformed", `{"query":`, "invalid request body"},
		{"wrong type", `{"query":5}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body))
			var req models.QueryRequest

			err := DecodeJSON(httptest.NewRecorder(), r, &req)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "List all employees", req.Query)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
