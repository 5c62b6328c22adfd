package database

import (
	"context"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

type contextKey string

// SessionKey is the context key for the request-scoped datasource session.
const SessionKey contextKey = "datasourceSession"

// GetSession retrieves the request-scoped session from context.
func GetSession(ctx context.Context) (datasource.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(datasource.Session)
	return sess, ok
}

// SetSession stores the request-scoped session in context.
func SetSession(ctx context.Context, sess datasource.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
