package middleware

import (
	"context"
	"net"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestInfoKey struct{}

// RequestInfo identifies the HTTP request a unit of work belongs to.
type RequestInfo struct {
	ID       string
	ClientIP string
}

// validRequestID bounds ids accepted from clients so they are safe to log.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID returns middleware that assigns every request an id. A
// well-formed incoming X-Request-ID is reused; otherwise a UUID is generated.
// The id is echoed in the response header and stored in the request context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !validRequestID.MatchString(id) {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := WithRequestInfo(r.Context(), RequestInfo{ID: id, ClientIP: clientIP(r)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithRequestInfo stores request identity in ctx. CLI and MCP callers may
// use it to tag work that did not arrive through RequestID.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// GetRequestInfo returns the request identity stored in ctx, if any.
func GetRequestInfo(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	info, _ := GetRequestInfo(ctx)
	return info.ID
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
