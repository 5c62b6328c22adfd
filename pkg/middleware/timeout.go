package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds each request's context by d. Handlers observe the deadline
// through r.Context(); nothing is written on their behalf. A non-positive d
// disables the middleware.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
