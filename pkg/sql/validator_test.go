package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAndNormalize_Valid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple select", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"trailing semicolon and whitespace", "SELECT 1;  \n", "SELECT 1"},
		{"whitespace before semicolon", "SELECT 1 ;", "SELECT 1"},
		{"surrounding whitespace", "  SELECT * FROM employees  ", "SELECT * FROM employees"},
		{"semicolon in single quotes", "SELECT * FROM employees WHERE name = 'a;b'", "SELECT * FROM employees WHERE name = 'a;b'"},
		{"semicolon in quoted identifier", `SELECT * FROM "odd;name"`, `SELECT * FROM "odd;name"`},
		{"doubled quote escape", "SELECT * FROM employees WHERE name = 'O''Brien;'", "SELECT * FROM employees WHERE name = 'O''Brien;'"},
		{"trailing backslash in literal", `SELECT 'C:\' AS drive`, `SELECT 'C:\' AS drive`},
		{"semicolon in line comment", "SELECT 1 -- first; second\nFROM employees", "SELECT 1 -- first; second\nFROM employees"},
		{"semicolon in block comment", "SELECT /* a; b */ 1", "SELECT /* a; b */ 1"},
		{"multiline", "SELECT *\nFROM employees\nWHERE id = 1;", "SELECT *\nFROM employees\nWHERE id = 1"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			assert.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestValidateAndNormalize_MultipleStatements(t *testing.T) {
	inputs := []string{
		"SELECT 1; SELECT 2",
		"SELECT 1; SELECT 2;",
		"SELECT 1;SELECT 2",
		"SELECT 1; DROP TABLE employees",
		"SELECT * FROM employees WHERE 1=1; DELETE FROM employees",
		"SELECT 'a;b'; SELECT 1",
		"SELECT 1;;",
		"SELECT 1 /* c */; DELETE FROM employees",
		`SELECT 'a\'; DELETE FROM employees; SELECT '1' AS x`,
		`SELECT 'it\'s;here'`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			result := ValidateAndNormalize(input)
			assert.ErrorIs(t, result.Error, ErrMultipleStatements)
			assert.Empty(t, result.NormalizedSQL)
		})
	}
}
