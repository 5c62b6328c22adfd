package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// WithSessionContext creates middleware that opens one datasource session per
// request. The session commits when the handler finishes with a status below
// 500 and rolls back otherwise; either way it is released before returning.
func WithSessionContext(ds datasource.Datasource, opts datasource.SessionOptions, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, err := ds.Begin(r.Context(), opts)
			if err != nil {
				logger.Error("Failed to open datasource session", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			committed := false
			defer func() {
				if committed {
					return
				}
				if err := sess.Rollback(r.Context()); err != nil {
					logger.Error("Failed to roll back session", zap.Error(err))
				}
			}()

			next(rec, r.WithContext(SetSession(r.Context(), sess)))

			if rec.status >= http.StatusInternalServerError {
				return
			}
			if err := sess.Commit(r.Context()); err != nil {
				logger.Error("Failed to commit session", zap.Error(err))
				return
			}
			committed = true
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
