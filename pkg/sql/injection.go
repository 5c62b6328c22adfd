package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes text that libinjection flagged.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if a SQL injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Field       string // Where the text came from, e.g. "query"
	Value       string // The text that was checked
}

// CheckForInjection screens free text with libinjection. It returns nil for
// clean text, including natural-language questions that mention SQL keywords.
//
// Example:
//
//	result := CheckForInjection("query", "List all employees in Sales")
//	// result == nil
//
//	result := CheckForInjection("query", "'; DROP TABLE employees--")
//	// result.IsSQLi == true
func CheckForInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Field:       field,
		Value:       value,
	}
}
