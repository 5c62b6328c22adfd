package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"both sides whitespace", "  test  ", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trimString(tt.input))
		})
	}
}

func TestJSONResult(t *testing.T) {
	result, err := jsonResult(map[string]int{"total_tables": 2})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"total_tables":2}`, getTextContent(t, result))

	_, err = jsonResult(make(chan int))
	assert.Error(t, err)
}
