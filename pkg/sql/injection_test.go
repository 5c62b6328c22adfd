package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckForInjection_Detects(t *testing.T) {
	payloads := []string{
		"' OR '1'='1",
		"'; DROP TABLE employees--",
		"1 UNION SELECT * FROM passwords",
		"admin'--",
		"' OR 1=1--",
		"1' AND SLEEP(5)--",
		"' UNION SELECT NULL, NULL--",
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			result := CheckForInjection("query", p)
			require.NotNil(t, result)
			assert.True(t, result.IsSQLi)
			assert.NotEmpty(t, result.Fingerprint)
			assert.Equal(t, "query", result.Field)
			assert.Equal(t, p, result.Value)
		})
	}
}

func TestCheckForInjection_CleanText(t *testing.T) {
	clean := []string{
		"",
		"SELECT the best option from the menu",
		"O'Brien",
		"This is a note -- with dashes",
		"user+tag@example.com",
		"https://example.com/path?query=value&other=123",
	}

	for _, q := range clean {
		t.Run(q, func(t *testing.T) {
			assert.Nil(t, CheckForInjection("query", q))
		})
	}
}
