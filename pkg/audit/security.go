// Package audit records security-relevant events for SIEM consumption. Events
// are logged as structured JSON under the security_audit logger.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/logging"
	"github.com/ekaya-inc/ekam-query/pkg/middleware"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionSuspect is logged when libinjection flags a user question.
	EventSQLInjectionSuspect SecurityEventType = "sql_injection_suspect"
	// EventGeneratedSQLBlocked is logged when generated SQL fails the guard.
	EventGeneratedSQLBlocked SecurityEventType = "generated_sql_blocked"
	// EventGeneratedSQLExecuted is logged for every generated statement that runs.
	EventGeneratedSQLExecuted SecurityEventType = "generated_sql_executed"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"`
}

// InjectionDetails describes a question that looked like a SQL injection payload.
type InjectionDetails struct {
	Query       string `json:"query"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// BlockedSQLDetails describes generated SQL the guard refused to run.
type BlockedSQLDetails struct {
	Query        string `json:"query"`
	GeneratedSQL string `json:"generated_sql"`
	Reason       string `json:"reason"`
}

// ExecutedSQLDetails describes generated SQL that was run.
type ExecutedSQLDetails struct {
	Query        string `json:"query"`
	GeneratedSQL string `json:"generated_sql"`
	RowCount     int    `json:"row_count"`
}

// SecurityAuditor logs security events. Request id and client IP are taken
// from the context when the call came through the HTTP stack.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor logging under "security_audit".
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogInjectionSuspect records a user question that libinjection flagged. The
// question is not blocked; generated SQL is still subject to the guard.
func (a *SecurityAuditor) LogInjectionSuspect(ctx context.Context, details InjectionDetails) {
	details.Query = logging.SanitizeQuery(details.Query)
	event := a.newEvent(ctx, EventSQLInjectionSuspect, SeverityCritical, details)

	a.logger.Error("SQL injection pattern in user query",
		zap.String("event_json", marshalEvent(event)),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("request_id", event.RequestID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", SeverityCritical),
	)
}

// LogBlockedSQL records generated SQL that was refused.
func (a *SecurityAuditor) LogBlockedSQL(ctx context.Context, details BlockedSQLDetails) {
	details.Query = logging.SanitizeQuery(details.Query)
	details.GeneratedSQL = logging.SanitizeQuery(details.GeneratedSQL)
	event := a.newEvent(ctx, EventGeneratedSQLBlocked, SeverityWarning, details)

	a.logger.Warn("Generated SQL blocked",
		zap.String("event_json", marshalEvent(event)),
		zap.String("reason", details.Reason),
		zap.String("request_id", event.RequestID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", SeverityWarning),
	)
}

// LogExecutedSQL records generated SQL that ran. High volume; logged at INFO.
func (a *SecurityAuditor) LogExecutedSQL(ctx context.Context, details ExecutedSQLDetails) {
	details.Query = logging.SanitizeQuery(details.Query)
	details.GeneratedSQL = logging.SanitizeQuery(details.GeneratedSQL)
	event := a.newEvent(ctx, EventGeneratedSQLExecuted, SeverityInfo, details)

	a.logger.Info("Generated SQL executed",
		zap.String("event_json", marshalEvent(event)),
		zap.Int("row_count", details.RowCount),
		zap.String("request_id", event.RequestID),
		zap.String("severity", SeverityInfo),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, t SecurityEventType, severity string, details any) SecurityEvent {
	info, _ := middleware.GetRequestInfo(ctx)
	return SecurityEvent{
		EventID:   uuid.New(),
		Timestamp: a.now().UTC(),
		EventType: t,
		RequestID: info.ID,
		ClientIP:  info.ClientIP,
		Details:   details,
		Severity:  severity,
	}
}

// marshalEvent never fails for the fixed event shapes above.
func marshalEvent(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
